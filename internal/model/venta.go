package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoVenta: "pendiente" | "pagada" | "anulada"
type EstadoVenta string

const (
	VentaPendiente EstadoVenta = "pendiente"
	VentaPagada    EstadoVenta = "pagada"
	VentaAnulada   EstadoVenta = "anulada"
)

// Venta is the order reference owned by the order-entry workflow. The ledger
// only reads its items and flips Estado from pendiente to pagada.
type Venta struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descuento    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Vuelto       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Estado       EstadoVenta     `gorm:"type:varchar(20);not null;default:'pendiente';index"`
	SesionCajaID *uuid.UUID      `gorm:"type:uuid;index"`
	PagadaAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Items []VentaItem `gorm:"foreignKey:VentaID"`
}

func (Venta) TableName() string { return "ventas" }

type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Nombre         string          `gorm:"type:varchar(200);not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (VentaItem) TableName() string { return "venta_items" }

func (i VentaItem) Subtotal() decimal.Decimal {
	return i.PrecioUnitario.Mul(decimal.NewFromInt(int64(i.Cantidad)))
}

// PagoVenta is what the ledger needs to settle a Venta.
type PagoVenta struct {
	VentaID      uuid.UUID
	SesionCajaID uuid.UUID
	Descuento    decimal.Decimal
	Vuelto       decimal.Decimal
	PagadaAt     time.Time
}
