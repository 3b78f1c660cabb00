package handler

import (
	"net/http"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/middleware"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// RegistrarVenta godoc
// @Summary      Registrar una venta pendiente de pago
// @Description  El total se calcula a partir de los items. Reenviar el mismo id devuelve la venta existente.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/ventas [post]
func (h *VentasHandler) RegistrarVenta(c *gin.Context) {
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	venta, err := h.svc.Registrar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewVentaResponse(venta))
}

// GetVenta godoc
// @Summary      Obtener una venta
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "UUID de la venta"
// @Success      200  {object} dto.VentaResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) GetVenta(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	venta, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewVentaResponse(venta))
}

// PagarVenta godoc
// @Summary      Cobrar una venta en una sesion de caja
// @Description  Registra un movimiento por medio de pago y marca la venta como pagada, todo en una transaccion.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                  true "UUID de la venta"
// @Param        body body     dto.ProcesarPagoRequest true "Desglose de pagos"
// @Success      200  {object} dto.PagoResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Failure      503  {object} apierror.APIError
// @Router       /v1/ventas/{id}/pagar [post]
func (h *VentasHandler) PagarVenta(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ProcesarPagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.ProcesarPago(c.Request.Context(), id, middleware.GetOperador(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PagoResponse{
		VentaID:     res.Venta.ID.String(),
		SaldoActual: res.SaldoActual,
		Movimientos: dto.NewMovimientosResponse(res.Movimientos),
	})
}

// AnularVenta godoc
// @Summary      Anular una venta pendiente
// @Description  Nunca toca el libro de caja; una venta pagada no puede anularse.
// @Tags         ventas
// @Security     BearerAuth
// @Param        id   path     string true "UUID de la venta"
// @Success      204
// @Failure      409  {object} apierror.APIError
// @Router       /v1/ventas/{id} [delete]
func (h *VentasHandler) AnularVenta(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Anular(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
