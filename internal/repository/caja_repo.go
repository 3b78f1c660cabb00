package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CajaTx is the set of operations available inside one atomic ledger
// transaction. Nothing written through it is visible to other callers until
// the surrounding WithinTx commits.
type CajaTx interface {
	// LockSesion loads the session and holds its row lock until commit.
	LockSesion(id uuid.UUID) (*model.SesionCaja, error)
	FindSesionAbiertaPorUsuario(usuarioID uuid.UUID) (*model.SesionCaja, error)
	CreateSesion(s *model.SesionCaja) error
	UpdateSesion(s *model.SesionCaja) error
	AppendMovimiento(m *model.MovimientoCaja) error
	ListMovimientos(sesionID uuid.UUID) ([]model.MovimientoCaja, error)
	ListVentasPagadas(sesionID uuid.UUID) ([]model.Venta, error)
	// LockVenta loads a venta without its items and holds its row lock.
	LockVenta(id uuid.UUID) (*model.Venta, error)
	// MarcarVentaPagada flips a pendiente venta to pagada. It fails with
	// model.ErrVentaYaPagada when another transaction already settled it.
	MarcarVentaPagada(p model.PagoVenta) error
}

// CajaStore is the storage port of the cash ledger. WithinTx is the only write
// path; the read methods never take part in a transaction.
type CajaStore interface {
	WithinTx(ctx context.Context, fn func(tx CajaTx) error) error
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error)
	ListMovimientos(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error)
	ListVentasPagadas(ctx context.Context, sesionID uuid.UUID) ([]model.Venta, error)
	ListSesiones(ctx context.Context, limit int) ([]model.SesionCaja, error)
}

type cajaStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewCajaStore returns the Postgres-backed store. lockTimeout bounds how long a
// transaction waits on a session row lock before failing as transient.
func NewCajaStore(db *gorm.DB, lockTimeout time.Duration) CajaStore {
	return &cajaStore{db: db, lockTimeout: lockTimeout}
}

func (r *cajaStore) WithinTx(ctx context.Context, fn func(tx CajaTx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(&gormCajaTx{tx: tx})
	})
	return traducirError(err)
}

func (r *cajaStore) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, traducirError(err)
	}
	return &s, nil
}

func (r *cajaStore) FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	return r.reader(ctx).FindSesionAbiertaPorUsuario(usuarioID)
}

func (r *cajaStore) ListMovimientos(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	return r.reader(ctx).ListMovimientos(sesionID)
}

func (r *cajaStore) ListVentasPagadas(ctx context.Context, sesionID uuid.UUID) ([]model.Venta, error) {
	return r.reader(ctx).ListVentasPagadas(sesionID)
}

func (r *cajaStore) ListSesiones(ctx context.Context, limit int) ([]model.SesionCaja, error) {
	var sesiones []model.SesionCaja
	err := r.db.WithContext(ctx).Order("opened_at DESC").Limit(limit).Find(&sesiones).Error
	return sesiones, traducirError(err)
}

// reader runs the tx-scoped queries against the plain connection.
func (r *cajaStore) reader(ctx context.Context) *gormCajaTx {
	return &gormCajaTx{tx: r.db.WithContext(ctx)}
}

// ── gormCajaTx ────────────────────────────────────────────────────────────────

type gormCajaTx struct{ tx *gorm.DB }

func (t *gormCajaTx) LockSesion(id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, traducirError(err)
	}
	return &s, nil
}

func (t *gormCajaTx) FindSesionAbiertaPorUsuario(usuarioID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := t.tx.Where("usuario_id = ? AND estado = ?", usuarioID, model.SesionAbierta).First(&s).Error
	if err != nil {
		return nil, traducirError(err)
	}
	return &s, nil
}

func (t *gormCajaTx) CreateSesion(s *model.SesionCaja) error {
	return traducirError(t.tx.Create(s).Error)
}

func (t *gormCajaTx) UpdateSesion(s *model.SesionCaja) error {
	return traducirError(t.tx.Save(s).Error)
}

func (t *gormCajaTx) AppendMovimiento(m *model.MovimientoCaja) error {
	return traducirError(t.tx.Create(m).Error)
}

func (t *gormCajaTx) ListMovimientos(sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := t.tx.Where("sesion_caja_id = ?", sesionID).Order("secuencia ASC").Find(&movs).Error
	return movs, traducirError(err)
}

func (t *gormCajaTx) ListVentasPagadas(sesionID uuid.UUID) ([]model.Venta, error) {
	var ventas []model.Venta
	err := t.tx.Preload("Items").
		Where("sesion_caja_id = ? AND estado = ?", sesionID, model.VentaPagada).
		Order("pagada_at ASC").
		Find(&ventas).Error
	return ventas, traducirError(err)
}

func (t *gormCajaTx) LockVenta(id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", id).Error
	if err != nil {
		return nil, traducirError(err)
	}
	return &v, nil
}

func (t *gormCajaTx) MarcarVentaPagada(p model.PagoVenta) error {
	res := t.tx.Model(&model.Venta{}).
		Where("id = ? AND estado = ?", p.VentaID, model.VentaPendiente).
		Updates(map[string]interface{}{
			"estado":         model.VentaPagada,
			"sesion_caja_id": p.SesionCajaID,
			"descuento":      p.Descuento,
			"vuelto":         p.Vuelto,
			"pagada_at":      p.PagadaAt,
			"updated_at":     p.PagadaAt,
		})
	if res.Error != nil {
		return traducirError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	return estadoVentaError(t.tx, p.VentaID)
}

// estadoVentaError explains why a conditional update on a venta touched no rows.
func estadoVentaError(db *gorm.DB, id uuid.UUID) error {
	var estado model.EstadoVenta
	err := db.Model(&model.Venta{}).Select("estado").Where("id = ?", id).Take(&estado).Error
	if err != nil {
		return traducirError(err)
	}
	switch estado {
	case model.VentaPagada:
		return model.ErrVentaYaPagada
	case model.VentaAnulada:
		return model.ErrVentaAnulada
	default:
		return fmt.Errorf("venta %s en estado inesperado %q: %w", id, estado, model.ErrConflictoTransitorio)
	}
}
