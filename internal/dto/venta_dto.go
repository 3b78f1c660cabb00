package dto

import (
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemVentaRequest struct {
	Nombre         string          `json:"nombre"          validate:"required,max=200"`
	Cantidad       int             `json:"cantidad"        validate:"required,min=1,max=100000"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" validate:"min=0,max=9999999999.99"`
}

// RegistrarVentaRequest registers a pending order. ID lets the order-entry
// client pick the identifier so retries do not create duplicates.
type RegistrarVentaRequest struct {
	ID    *string            `json:"id"    validate:"omitempty,uuid"`
	Items []ItemVentaRequest `json:"items" validate:"required,min=1,dive"`
}

type PagoRequest struct {
	Metodo string          `json:"metodo" validate:"required,oneof=efectivo credito debito pix otro"`
	Monto  decimal.Decimal `json:"monto"  validate:"gt=0,max=9999999999.99"`
}

// ProcesarPagoRequest is the tender breakdown confirmed by the payment UI.
// The cash entry carries the amount received; Vuelto is the change handed back.
type ProcesarPagoRequest struct {
	SesionCajaID string          `json:"sesion_caja_id" validate:"required,uuid"`
	Pagos        []PagoRequest   `json:"pagos"          validate:"required,min=1,dive"`
	Vuelto       decimal.Decimal `json:"vuelto"         validate:"min=0,max=9999999999.99"`
	Descuento    decimal.Decimal `json:"descuento"      validate:"min=0,max=9999999999.99"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	Nombre         string          `json:"nombre"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type VentaResponse struct {
	ID           string              `json:"id"`
	Total        decimal.Decimal     `json:"total"`
	Descuento    decimal.Decimal     `json:"descuento"`
	Vuelto       decimal.Decimal     `json:"vuelto"`
	Estado       string              `json:"estado"`
	SesionCajaID *string             `json:"sesion_caja_id,omitempty"`
	Items        []ItemVentaResponse `json:"items"`
	PagadaAt     *string             `json:"pagada_at,omitempty"`
	CreatedAt    string              `json:"created_at"`
}

func NewVentaResponse(v *model.Venta) VentaResponse {
	resp := VentaResponse{
		ID:        v.ID.String(),
		Total:     v.Total,
		Descuento: v.Descuento,
		Vuelto:    v.Vuelto,
		Estado:    string(v.Estado),
		Items:     make([]ItemVentaResponse, 0, len(v.Items)),
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
	}
	if v.SesionCajaID != nil {
		id := v.SesionCajaID.String()
		resp.SesionCajaID = &id
	}
	if v.PagadaAt != nil {
		at := v.PagadaAt.Format(time.RFC3339)
		resp.PagadaAt = &at
	}
	for _, it := range v.Items {
		resp.Items = append(resp.Items, ItemVentaResponse{
			Nombre:         it.Nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.Subtotal(),
		})
	}
	return resp
}

type PagoResponse struct {
	VentaID     string               `json:"venta_id"`
	SaldoActual decimal.Decimal      `json:"saldo_actual"`
	Movimientos []MovimientoResponse `json:"movimientos"`
}
