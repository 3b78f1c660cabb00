package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/apierror"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/middleware"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// EventSubscriber is the read-only side of the event bus.
type EventSubscriber interface {
	Subscribe(ctx context.Context, sesionID uuid.UUID) (<-chan model.EventoCaja, error)
}

type CajaHandler struct {
	svc       service.CajaService
	eventos   EventSubscriber
	heartbeat time.Duration
}

func NewCajaHandler(svc service.CajaService, eventos EventSubscriber) *CajaHandler {
	return &CajaHandler{svc: svc, eventos: eventos, heartbeat: 15 * time.Second}
}

// Abrir godoc
// @Summary Abre una nueva sesion de caja para el operador autenticado
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Fondo inicial"
// @Success 201 {object} dto.SesionCajaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ses, err := h.svc.Abrir(c.Request.Context(), middleware.GetOperador(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSesionCajaResponse(ses))
}

// GetActiva godoc
// @Summary Sesion abierta del operador autenticado
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/activa [get]
func (h *CajaHandler) GetActiva(c *gin.Context) {
	ses, err := h.svc.GetActiva(c.Request.Context(), middleware.GetOperador(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if ses == nil {
		c.JSON(http.StatusNotFound, apierror.New(apierror.CodeNoEncontrado, "No hay caja abierta para el operador"))
		return
	}
	c.JSON(http.StatusOK, dto.NewSesionCajaResponse(ses))
}

// GetSesion godoc
// @Summary Obtiene una sesion de caja
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id} [get]
func (h *CajaHandler) GetSesion(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ses, err := h.svc.GetSesion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSesionCajaResponse(ses))
}

// Relevar godoc
// @Summary Relevo de operador sin cerrar la caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Param body body dto.RelevoRequest true "Nuevo operador"
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/{id}/relevo [post]
func (h *CajaHandler) Relevar(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.RelevoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ses, err := h.svc.Relevar(c.Request.Context(), id, middleware.GetOperador(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSesionCajaResponse(ses))
}

// RegistrarMovimiento godoc
// @Summary Registra una sangria o un suprimento
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Param body body dto.MovimientoManualRequest true "Movimiento manual"
// @Success 201 {object} dto.MovimientoResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/caja/{id}/movimientos [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.MovimientoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}
	mov, err := h.svc.RegistrarMovimiento(c.Request.Context(), id, middleware.GetOperador(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewMovimientoResponse(mov))
}

// ListMovimientos godoc
// @Summary Movimientos de la sesion en orden de secuencia
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {array} dto.MovimientoResponse
// @Router /v1/caja/{id}/movimientos [get]
func (h *CajaHandler) ListMovimientos(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	movs, err := h.svc.ListMovimientos(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMovimientosResponse(movs))
}

// Arqueo godoc
// @Summary Arqueo ciego y cierre de la sesion
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Param body body dto.ArqueoRequest true "Montos contados"
// @Success 200 {object} model.ReporteArqueo
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/caja/{id}/arqueo [post]
func (h *CajaHandler) Arqueo(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ArqueoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rep, err := h.svc.Arqueo(c.Request.Context(), id, middleware.GetOperador(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// ObtenerReporte godoc
// @Summary Reporte parcial (o resumen de cierre si la sesion esta cerrada)
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} model.ReporteArqueo
// @Router /v1/caja/{id}/reporte [get]
func (h *CajaHandler) ObtenerReporte(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rep, err := h.svc.ReporteParcial(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Historial godoc
// @Summary Sesiones mas recientes primero
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Cantidad maxima" default(20)
// @Success 200 {array} dto.SesionCajaResponse
// @Router /v1/caja/historial [get]
func (h *CajaHandler) Historial(c *gin.Context) {
	var q dto.HistorialQuery
	if !bindQuery(c, &q) {
		return
	}
	sesiones, err := h.svc.Historial(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.SesionCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		out = append(out, dto.NewSesionCajaResponse(&sesiones[i]))
	}
	c.JSON(http.StatusOK, out)
}

// ExportHistorial godoc
// @Summary Exporta el historial de sesiones a XLSX
// @Tags caja
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param limit query int false "Cantidad maxima" default(20)
// @Success 200 {file} binary
// @Router /v1/caja/historial/export [get]
func (h *CajaHandler) ExportHistorial(c *gin.Context) {
	var q dto.HistorialQuery
	if !bindQuery(c, &q) {
		return
	}
	data, err := h.svc.ExportHistorial(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("historial_caja_%s.xlsx", time.Now().Format("20060102_1504"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Eventos godoc
// @Summary Stream SSE de los movimientos de una sesion
// @Description Solo lectura; alimentado por pub/sub despues de cada commit.
// @Tags caja
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} model.EventoCaja
// @Failure 503 {object} apierror.APIError
// @Router /v1/caja/{id}/eventos [get]
func (h *CajaHandler) Eventos(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ses, err := h.svc.GetSesion(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	eventos, err := h.eventos.Subscribe(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	// the first frame lets the dashboard render before any movement arrives
	c.SSEvent("estado", dto.NewSesionCajaResponse(ses))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case evt, open := <-eventos:
			if !open {
				return false
			}
			c.SSEvent("movimiento", evt)
			return evt.Estado == model.SesionAbierta
		}
	})
	log.Debug().Str("sesion_id", id.String()).Str("request_id", c.GetString(middleware.RequestIDKey)).
		Msg("caja: stream de eventos finalizado")
}
