package dto

import (
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operador is the identity supplied by the identity service's token.
type Operador struct {
	ID     uuid.UUID
	Nombre string
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoInicial decimal.Decimal `json:"monto_inicial" validate:"min=0,max=9999999999.99"`
}

type RelevoRequest struct {
	UsuarioNombre string `json:"usuario_nombre" validate:"required,min=2,max=120"`
}

type MovimientoManualRequest struct {
	Tipo        string          `json:"tipo"        validate:"required,oneof=sangria suprimento"`
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0,max=9999999999.99"`
	Descripcion string          `json:"descripcion" validate:"required,min=3"`
}

type ArqueoRequest struct {
	DeclaradoEfectivo   decimal.Decimal `json:"declarado_efectivo"    validate:"min=0,max=9999999999.99"`
	DeclaradoNoEfectivo decimal.Decimal `json:"declarado_no_efectivo" validate:"min=0,max=9999999999.99"`
	Observaciones       *string         `json:"observaciones"         validate:"omitempty,max=1000"`
}

// HistorialQuery is bound from the query string of GET /v1/caja/historial.
type HistorialQuery struct {
	Limit int `form:"limit,default=20" validate:"min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID                  string           `json:"id"`
	UsuarioID           string           `json:"usuario_id"`
	UsuarioNombre       string           `json:"usuario_nombre"`
	Estado              string           `json:"estado"`
	MontoInicial        decimal.Decimal  `json:"monto_inicial"`
	SaldoActual         decimal.Decimal  `json:"saldo_actual"`
	MontoEsperado       *decimal.Decimal `json:"monto_esperado,omitempty"`
	MontoDeclarado      *decimal.Decimal `json:"monto_declarado,omitempty"`
	Desvio              *decimal.Decimal `json:"desvio,omitempty"`
	DesvioPct           *decimal.Decimal `json:"desvio_pct,omitempty"`
	ClasificacionDesvio *string          `json:"clasificacion_desvio,omitempty"`
	Observaciones       *string          `json:"observaciones,omitempty"`
	OpenedAt            string           `json:"opened_at"`
	ClosedAt            *string          `json:"closed_at,omitempty"`
}

func NewSesionCajaResponse(s *model.SesionCaja) SesionCajaResponse {
	resp := SesionCajaResponse{
		ID:             s.ID.String(),
		UsuarioID:      s.UsuarioID.String(),
		UsuarioNombre:  s.UsuarioNombre,
		Estado:         string(s.Estado),
		MontoInicial:   s.MontoInicial,
		SaldoActual:    s.SaldoActual,
		MontoEsperado:  s.MontoEsperado,
		MontoDeclarado: s.MontoDeclarado,
		Desvio:         s.Desvio,
		DesvioPct:      s.DesvioPct,
		Observaciones:  s.Observaciones,
		OpenedAt:       s.OpenedAt.Format(time.RFC3339),
	}
	if s.ClasificacionDesvio != nil {
		c := string(*s.ClasificacionDesvio)
		resp.ClasificacionDesvio = &c
	}
	if s.ClosedAt != nil {
		closed := s.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closed
	}
	return resp
}

type MovimientoResponse struct {
	ID            string           `json:"id"`
	SesionCajaID  string           `json:"sesion_caja_id"`
	Secuencia     int64            `json:"secuencia"`
	Tipo          string           `json:"tipo"`
	MetodoPago    *string          `json:"metodo_pago,omitempty"`
	Monto         decimal.Decimal  `json:"monto"`
	MontoRecibido *decimal.Decimal `json:"monto_recibido,omitempty"`
	Vuelto        *decimal.Decimal `json:"vuelto,omitempty"`
	Descripcion   string           `json:"descripcion,omitempty"`
	Sentido       *string          `json:"sentido,omitempty"`
	ReferenciaID  *string          `json:"referencia_id,omitempty"`
	UsuarioID     string           `json:"usuario_id"`
	CreatedAt     string           `json:"created_at"`
}

func NewMovimientoResponse(m *model.MovimientoCaja) MovimientoResponse {
	resp := MovimientoResponse{
		ID:            m.ID.String(),
		SesionCajaID:  m.SesionCajaID.String(),
		Secuencia:     m.Secuencia,
		Tipo:          string(m.Tipo),
		Monto:         m.Monto,
		MontoRecibido: m.MontoRecibido,
		Vuelto:        m.Vuelto,
		Descripcion:   m.Descripcion,
		UsuarioID:     m.UsuarioID.String(),
		CreatedAt:     m.CreatedAt.Format(time.RFC3339Nano),
	}
	if m.MetodoPago != nil {
		mp := string(*m.MetodoPago)
		resp.MetodoPago = &mp
	}
	if m.Sentido != nil {
		sentido := string(*m.Sentido)
		resp.Sentido = &sentido
	}
	if m.ReferenciaID != nil {
		ref := m.ReferenciaID.String()
		resp.ReferenciaID = &ref
	}
	return resp
}

func NewMovimientosResponse(movs []model.MovimientoCaja) []MovimientoResponse {
	out := make([]MovimientoResponse, 0, len(movs))
	for i := range movs {
		out = append(out, NewMovimientoResponse(&movs[i]))
	}
	return out
}
