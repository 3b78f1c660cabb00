package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CantidadMaxima bounds the quantity of a single order line.
const CantidadMaxima = 100000

// ResultadoPago is what a settled payment left in the ledger.
type ResultadoPago struct {
	Venta       *model.Venta
	SaldoActual decimal.Decimal
	Movimientos []model.MovimientoCaja
}

type VentaService interface {
	Registrar(ctx context.Context, req dto.RegistrarVentaRequest) (*model.Venta, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	ProcesarPago(ctx context.Context, ventaID uuid.UUID, op dto.Operador, req dto.ProcesarPagoRequest) (*ResultadoPago, error)
	// Anular cancels an unpaid venta. It never touches the ledger.
	Anular(ctx context.Context, id uuid.UUID) error
}

type ventaService struct {
	ledger
	ventas repository.VentaRepository
}

func NewVentaService(store repository.CajaStore, ventas repository.VentaRepository, events EventPublisher, cfg LedgerConfig) VentaService {
	return &ventaService{ledger: newLedger(store, events, nil, cfg), ventas: ventas}
}

// ── Registrar ─────────────────────────────────────────────────────────────────

func (s *ventaService) Registrar(ctx context.Context, req dto.RegistrarVentaRequest) (*model.Venta, error) {
	if len(req.Items) == 0 {
		return nil, model.NewValidacion("items", "la venta debe tener al menos un ítem")
	}
	id := uuid.New()
	if req.ID != nil {
		parsed, err := uuid.Parse(*req.ID)
		if err != nil {
			return nil, model.NewValidacion("id", "uuid inválido")
		}
		if existente, err := s.ventas.FindByID(ctx, parsed); err == nil {
			return existente, nil
		} else if !errors.Is(err, model.ErrNoEncontrado) {
			return nil, err
		}
		id = parsed
	}

	now := s.now()
	venta := &model.Venta{
		ID:        id,
		Estado:    model.VentaPendiente,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, it := range req.Items {
		nombre := strings.TrimSpace(it.Nombre)
		if nombre == "" {
			return nil, model.NewValidacion(fmt.Sprintf("items[%d].nombre", i), "requerido")
		}
		if it.Cantidad <= 0 || it.Cantidad > CantidadMaxima {
			return nil, model.NewValidacion(fmt.Sprintf("items[%d].cantidad", i),
				fmt.Sprintf("debe estar entre 1 y %d", CantidadMaxima))
		}
		if err := validarMonto(fmt.Sprintf("items[%d].precio_unitario", i), it.PrecioUnitario, false); err != nil {
			return nil, err
		}
		item := model.VentaItem{
			ID:             uuid.New(),
			VentaID:        id,
			Nombre:         nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
		}
		venta.Items = append(venta.Items, item)
		venta.Total = venta.Total.Add(item.Subtotal())
	}

	if err := validarMonto("total", venta.Total, false); err != nil {
		return nil, err
	}

	if err := s.ventas.Create(ctx, venta); err != nil {
		if req.ID != nil && errors.Is(err, model.ErrVentaDuplicada) {
			// a concurrent retry with the same id inserted first
			return s.ventas.FindByID(ctx, id)
		}
		return nil, err
	}
	log.Info().Str("venta_id", venta.ID.String()).Str("total", venta.Total.StringFixed(2)).Msg("venta: registrada")
	return venta, nil
}

func (s *ventaService) Get(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	v, err := s.ventas.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("venta %s: %w", id, err)
	}
	return v, nil
}

func (s *ventaService) Anular(ctx context.Context, id uuid.UUID) error {
	if err := s.ventas.Anular(ctx, id); err != nil {
		return fmt.Errorf("venta %s: %w", id, err)
	}
	log.Info().Str("venta_id", id.String()).Msg("venta: anulada")
	return nil
}

// ── ProcesarPago ──────────────────────────────────────────────────────────────
// One sale movement per tender, the cash balance and the venta's pagada flag
// are written in a single transaction. The venta's status transition is the
// idempotency guard: a second payment finds it pagada and writes nothing.

func (s *ventaService) ProcesarPago(ctx context.Context, ventaID uuid.UUID, op dto.Operador, req dto.ProcesarPagoRequest) (*ResultadoPago, error) {
	sesionID, err := uuid.Parse(req.SesionCajaID)
	if err != nil {
		return nil, model.NewValidacion("sesion_caja_id", "uuid inválido")
	}
	desglose, err := desglosePagos(req.Pagos)
	if err != nil {
		return nil, err
	}
	if err := validarMonto("vuelto", req.Vuelto, false); err != nil {
		return nil, err
	}
	if err := validarMonto("descuento", req.Descuento, false); err != nil {
		return nil, err
	}
	efectivo := desglose[model.PagoEfectivo]
	if req.Vuelto.GreaterThan(efectivo) {
		if efectivo.IsZero() {
			return nil, model.NewValidacion("vuelto", "solo se entrega vuelto sobre pagos en efectivo")
		}
		return nil, model.NewValidacion("vuelto", "el vuelto supera el efectivo recibido")
	}
	recibido := decimal.Zero
	for _, monto := range desglose {
		recibido = recibido.Add(monto)
	}

	var res *ResultadoPago
	err = s.runTx(ctx, "venta", func(tx repository.CajaTx) error {
		ses, err := lockAbierta(tx, sesionID)
		if err != nil {
			return err
		}
		venta, err := tx.LockVenta(ventaID)
		if err != nil {
			return fmt.Errorf("venta %s: %w", ventaID, err)
		}
		switch venta.Estado {
		case model.VentaPagada:
			return fmt.Errorf("venta %s: %w", ventaID, model.ErrVentaYaPagada)
		case model.VentaAnulada:
			return fmt.Errorf("venta %s: %w", ventaID, model.ErrVentaAnulada)
		}

		if req.Descuento.GreaterThan(venta.Total) {
			return model.NewValidacion("descuento", "el descuento supera el total de la venta")
		}
		neto := venta.Total.Sub(req.Descuento)
		if recibido.Sub(req.Vuelto).LessThan(neto) {
			return model.NewValidacion("pagos", fmt.Sprintf("pago insuficiente: cubre %s de %s",
				recibido.Sub(req.Vuelto).StringFixed(2), neto.StringFixed(2)))
		}

		now := s.now()
		movs := make([]model.MovimientoCaja, 0, len(desglose))
		for _, metodo := range model.MetodosPago {
			monto, ok := desglose[metodo]
			if !ok {
				continue
			}
			metodo := metodo
			ref := venta.ID
			mov := model.MovimientoCaja{
				Tipo:         model.MovVenta,
				MetodoPago:   &metodo,
				Monto:        monto,
				ReferenciaID: &ref,
				UsuarioID:    op.ID,
				CreatedAt:    now,
			}
			if metodo == model.PagoEfectivo {
				recibidoEf, vuelto := monto, req.Vuelto
				mov.Monto = monto.Sub(req.Vuelto)
				mov.MontoRecibido = &recibidoEf
				mov.Vuelto = &vuelto
				ses.SaldoActual = ses.SaldoActual.Add(mov.Monto)
			}
			if err := s.appendMovimiento(tx, ses, &mov); err != nil {
				return err
			}
			movs = append(movs, mov)
		}

		if err := tx.MarcarVentaPagada(model.PagoVenta{
			VentaID:      venta.ID,
			SesionCajaID: ses.ID,
			Descuento:    req.Descuento,
			Vuelto:       req.Vuelto,
			PagadaAt:     now,
		}); err != nil {
			return fmt.Errorf("venta %s: %w", ventaID, err)
		}
		if err := tx.UpdateSesion(ses); err != nil {
			return err
		}

		venta.Estado = model.VentaPagada
		venta.SesionCajaID = &ses.ID
		venta.Descuento = req.Descuento
		venta.Vuelto = req.Vuelto
		venta.PagadaAt = &now
		res = &ResultadoPago{Venta: venta, SaldoActual: ses.SaldoActual, Movimientos: movs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sesion := &model.SesionCaja{ID: sesionID, SaldoActual: res.SaldoActual, Estado: model.SesionAbierta}
	evts := make([]model.EventoCaja, 0, len(res.Movimientos))
	for i := range res.Movimientos {
		evts = append(evts, eventoDe(sesion, &res.Movimientos[i]))
	}
	log.Info().
		Str("venta_id", ventaID.String()).
		Str("sesion_id", sesionID.String()).
		Int("movimientos", len(res.Movimientos)).
		Str("saldo", res.SaldoActual.StringFixed(2)).
		Msg("venta: pago aplicado")
	s.publish(ctx, evts...)
	return res, nil
}

// desglosePagos folds the tender list into one amount per method.
func desglosePagos(pagos []dto.PagoRequest) (map[model.MetodoPago]decimal.Decimal, error) {
	if len(pagos) == 0 {
		return nil, model.NewValidacion("pagos", "se requiere al menos un medio de pago")
	}
	out := make(map[model.MetodoPago]decimal.Decimal, len(pagos))
	for i, p := range pagos {
		metodo := model.MetodoPago(p.Metodo)
		if !metodo.Valid() {
			return nil, model.NewValidacion(fmt.Sprintf("pagos[%d].metodo", i), fmt.Sprintf("medio %q desconocido", p.Metodo))
		}
		if err := validarMonto(fmt.Sprintf("pagos[%d].monto", i), p.Monto, true); err != nil {
			return nil, err
		}
		out[metodo] = out[metodo].Add(p.Monto)
		if err := validarMonto(fmt.Sprintf("pagos[%d].monto", i), out[metodo], true); err != nil {
			return nil, err
		}
	}
	return out, nil
}
