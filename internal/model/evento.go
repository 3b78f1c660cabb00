package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventoCaja is the realtime notification emitted after a ledger transaction
// commits. Dashboards consume it; it never feeds back into the write path.
type EventoCaja struct {
	SesionCajaID uuid.UUID       `json:"sesion_caja_id"`
	Tipo         TipoMovimiento  `json:"tipo"`
	MovimientoID *uuid.UUID      `json:"movimiento_id,omitempty"`
	Monto        decimal.Decimal `json:"monto"`
	Saldo        decimal.Decimal `json:"saldo"`
	Estado       EstadoSesion    `json:"estado"`
	UsuarioID    uuid.UUID       `json:"usuario_id"`
	Fecha        time.Time       `json:"fecha"`
}
