package repository

import (
	"context"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VentaRepository is the order-entry side of the ledger: it registers pending
// orders and cancels unpaid ones. Settling an order happens through CajaTx.
type VentaRepository interface {
	Create(ctx context.Context, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// Anular cancels a pendiente venta. Paid ventas are rejected with
	// model.ErrVentaYaPagada.
	Anular(ctx context.Context, id uuid.UUID) error
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

// Create inserts the venta and its items in one transaction. A reused id
// fails with model.ErrVentaDuplicada.
func (r *ventaRepo) Create(ctx context.Context, v *model.Venta) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(v).Error
	})
	return traducirError(err)
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	if err := r.db.WithContext(ctx).Preload("Items").First(&v, "id = ?", id).Error; err != nil {
		return nil, traducirError(err)
	}
	return &v, nil
}

func (r *ventaRepo) Anular(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&model.Venta{}).
		Where("id = ? AND estado = ?", id, model.VentaPendiente).
		Update("estado", model.VentaAnulada)
	if res.Error != nil {
		return traducirError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	return estadoVentaError(db, id)
}
