package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoSesion: "abierta" | "cerrada"
type EstadoSesion string

const (
	SesionAbierta EstadoSesion = "abierta"
	SesionCerrada EstadoSesion = "cerrada"
)

// SesionCaja represents the lifecycle of one operator's cash drawer shift.
// SaldoActual is a denormalized cache of the cash balance; the movement log is
// the source of truth and both are written in the same transaction.
type SesionCaja struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	UsuarioNombre string          `gorm:"type:varchar(120);not null"`
	MontoInicial  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SaldoActual   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Estado        EstadoSesion    `gorm:"type:varchar(20);not null;default:'abierta'"`
	// UltimaSecuencia is the sequence of the last movement appended to the session.
	UltimaSecuencia int64 `gorm:"not null;default:0"`

	// Closing data, written once by the arqueo.
	MontoEsperado       *decimal.Decimal     `gorm:"type:decimal(15,2)"`
	MontoDeclarado      *decimal.Decimal     `gorm:"type:decimal(15,2)"`
	Desvio              *decimal.Decimal     `gorm:"type:decimal(15,2)"`
	DesvioPct           *decimal.Decimal     `gorm:"type:decimal(7,2)"`
	ClasificacionDesvio *ClasificacionDesvio `gorm:"type:varchar(20)"`
	Observaciones       *string
	ResumenCierre       *ReporteArqueo `gorm:"type:jsonb;serializer:json"`

	OpenedAt time.Time `gorm:"not null;index"`
	ClosedAt *time.Time
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

func (s *SesionCaja) Abierta() bool { return s.Estado == SesionAbierta }

// TipoMovimiento: "apertura" | "venta" | "sangria" | "suprimento" | "cierre" | "relevo"
type TipoMovimiento string

const (
	MovApertura   TipoMovimiento = "apertura"
	MovVenta      TipoMovimiento = "venta"
	MovSangria    TipoMovimiento = "sangria"
	MovSuprimento TipoMovimiento = "suprimento"
	MovCierre     TipoMovimiento = "cierre"
	MovRelevo     TipoMovimiento = "relevo"
)

func (t TipoMovimiento) Valid() bool {
	switch t {
	case MovApertura, MovVenta, MovSangria, MovSuprimento, MovCierre, MovRelevo:
		return true
	}
	return false
}

// Manual reports whether operators may register this kind by hand.
func (t TipoMovimiento) Manual() bool {
	return t == MovSangria || t == MovSuprimento
}

// MetodoPago: "efectivo" | "credito" | "debito" | "pix" | "otro"
type MetodoPago string

const (
	PagoEfectivo MetodoPago = "efectivo"
	PagoCredito  MetodoPago = "credito"
	PagoDebito   MetodoPago = "debito"
	PagoPix      MetodoPago = "pix"
	PagoOtro     MetodoPago = "otro"
)

// MetodosPago lists every tender type in report order.
var MetodosPago = []MetodoPago{PagoEfectivo, PagoCredito, PagoDebito, PagoPix, PagoOtro}

func (m MetodoPago) Valid() bool {
	switch m {
	case PagoEfectivo, PagoCredito, PagoDebito, PagoPix, PagoOtro:
		return true
	}
	return false
}

// MovimientoCaja is an immutable event in the cash register ledger.
// Monto is always stored positive; Tipo implies the sign.
// Movements are NEVER modified or deleted.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_movimientos_sesion_secuencia,priority:1"`
	Secuencia    int64           `gorm:"not null;uniqueIndex:idx_movimientos_sesion_secuencia,priority:2"`
	Tipo         TipoMovimiento  `gorm:"type:varchar(20);not null"`
	MetodoPago   *MetodoPago     `gorm:"type:varchar(20)"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// MontoRecibido and Vuelto are only set on cash sale movements.
	MontoRecibido *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Vuelto        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Descripcion   string           `gorm:"not null;default:''"`
	// Sentido is only set on the cierre movement, whose Monto is the magnitude
	// of the close difference.
	Sentido *SentidoDiferencia `gorm:"type:varchar(20)"`
	// ReferenciaID links to the originating Venta.
	ReferenciaID *uuid.UUID `gorm:"type:uuid;index"`
	UsuarioID    uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt    time.Time  `gorm:"not null;index"`
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }

// EsEfectivo reports whether the movement is a cash sale credit.
func (m *MovimientoCaja) EsEfectivo() bool {
	return m.MetodoPago != nil && *m.MetodoPago == PagoEfectivo
}
