package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClasificacionDesvio: "normal" | "advertencia" | "critico"
type ClasificacionDesvio string

const (
	DesvioNormal      ClasificacionDesvio = "normal"
	DesvioAdvertencia ClasificacionDesvio = "advertencia"
	DesvioCritico     ClasificacionDesvio = "critico"
)

// SentidoDiferencia: "sobrante" (surplus) | "faltante" (shortage) | "cuadrado"
type SentidoDiferencia string

const (
	DiferenciaSobrante SentidoDiferencia = "sobrante"
	DiferenciaFaltante SentidoDiferencia = "faltante"
	DiferenciaCuadrado SentidoDiferencia = "cuadrado"
)

// TotalMetodo aggregates sale credits per tender type.
type TotalMetodo struct {
	Metodo   MetodoPago      `json:"metodo"`
	Cantidad int             `json:"cantidad"`
	Monto    decimal.Decimal `json:"monto"`
}

// TotalItem aggregates sold quantities per line item name.
type TotalItem struct {
	Nombre   string          `json:"nombre"`
	Cantidad int             `json:"cantidad"`
	Monto    decimal.Decimal `json:"monto"`
}

// SalidaCaja is one sangria entry with its reason.
type SalidaCaja struct {
	MovimientoID uuid.UUID       `json:"movimiento_id"`
	Monto        decimal.Decimal `json:"monto"`
	Descripcion  string          `json:"descripcion"`
	UsuarioID    uuid.UUID       `json:"usuario_id"`
	Fecha        time.Time       `json:"fecha"`
}

// Diferencia carries the signed close difference plus its magnitude and sense,
// so a shortage is never mistaken for a surplus when rendered.
type Diferencia struct {
	Monto         decimal.Decimal     `json:"monto"`
	Absoluta      decimal.Decimal     `json:"absoluta"`
	Sentido       SentidoDiferencia   `json:"sentido"`
	Porcentaje    decimal.Decimal     `json:"porcentaje"`
	Clasificacion ClasificacionDesvio `json:"clasificacion"`
}

// ReporteArqueo is the reconciliation report. It is derived from the movement
// log and, once the session closes, persisted as the closing summary.
type ReporteArqueo struct {
	SesionCajaID  uuid.UUID    `json:"sesion_caja_id"`
	UsuarioID     uuid.UUID    `json:"usuario_id"`
	UsuarioNombre string       `json:"usuario_nombre"`
	Estado        EstadoSesion `json:"estado"`
	Parcial       bool         `json:"parcial"`
	OpenedAt      time.Time    `json:"opened_at"`
	ClosedAt      *time.Time   `json:"closed_at,omitempty"`

	MontoInicial        decimal.Decimal  `json:"monto_inicial"`
	VentasEfectivo      decimal.Decimal  `json:"ventas_efectivo"`
	TotalSuprimentos    decimal.Decimal  `json:"total_suprimentos"`
	TotalSangrias       decimal.Decimal  `json:"total_sangrias"`
	EsperadoEfectivo    decimal.Decimal  `json:"esperado_efectivo"`
	EsperadoNoEfectivo  decimal.Decimal  `json:"esperado_no_efectivo"`
	DeclaradoEfectivo   *decimal.Decimal `json:"declarado_efectivo,omitempty"`
	DeclaradoNoEfectivo *decimal.Decimal `json:"declarado_no_efectivo,omitempty"`
	Diferencia          *Diferencia      `json:"diferencia,omitempty"`
	Observaciones       *string          `json:"observaciones,omitempty"`

	VentasPorMetodo     []TotalMetodo `json:"ventas_por_metodo"`
	VentasPorItem       []TotalItem   `json:"ventas_por_item"`
	Sangrias            []SalidaCaja  `json:"sangrias"`
	CantidadVentas      int           `json:"cantidad_ventas"`
	CantidadMovimientos int           `json:"cantidad_movimientos"`
}

// EsperadoTotal is the system-expected total across all tenders.
func (r *ReporteArqueo) EsperadoTotal() decimal.Decimal {
	return r.EsperadoEfectivo.Add(r.EsperadoNoEfectivo)
}
