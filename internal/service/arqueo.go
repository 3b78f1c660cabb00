package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	cien              = decimal.NewFromInt(100)
	umbralNormal      = decimal.NewFromInt(1)
	umbralAdvertencia = decimal.NewFromInt(5)
	// pctMaximo is the widest value desvio_pct (DECIMAL(7,2)) holds.
	pctMaximo = decimal.RequireFromString("99999.99")
)

// ── ConstruirReporte ──────────────────────────────────────────────────────────
// The expected amounts are derived from the movement log alone; SaldoActual is
// never consulted. Item aggregates come from the ventas settled in the session.

func ConstruirReporte(ses *model.SesionCaja, movs []model.MovimientoCaja, ventas []model.Venta) model.ReporteArqueo {
	rep := model.ReporteArqueo{
		SesionCajaID:        ses.ID,
		UsuarioID:           ses.UsuarioID,
		UsuarioNombre:       ses.UsuarioNombre,
		Estado:              ses.Estado,
		Parcial:             ses.Abierta(),
		OpenedAt:            ses.OpenedAt,
		ClosedAt:            ses.ClosedAt,
		MontoInicial:        ses.MontoInicial,
		CantidadMovimientos: len(movs),
		Sangrias:            []model.SalidaCaja{},
	}

	porMetodo := make(map[model.MetodoPago]*model.TotalMetodo, len(model.MetodosPago))
	for _, m := range model.MetodosPago {
		porMetodo[m] = &model.TotalMetodo{Metodo: m}
	}
	ventasVistas := make(map[uuid.UUID]bool)
	apertura := false

	for _, mov := range movs {
		switch mov.Tipo {
		case model.MovApertura:
			rep.MontoInicial = mov.Monto
			apertura = true
		case model.MovVenta:
			if mov.ReferenciaID != nil {
				ventasVistas[*mov.ReferenciaID] = true
			}
			if mov.EsEfectivo() {
				rep.VentasEfectivo = rep.VentasEfectivo.Add(mov.Monto)
			} else {
				rep.EsperadoNoEfectivo = rep.EsperadoNoEfectivo.Add(mov.Monto)
			}
			if mov.MetodoPago != nil {
				if t, ok := porMetodo[*mov.MetodoPago]; ok {
					t.Cantidad++
					t.Monto = t.Monto.Add(mov.Monto)
				}
			}
		case model.MovSangria:
			rep.TotalSangrias = rep.TotalSangrias.Add(mov.Monto)
			rep.Sangrias = append(rep.Sangrias, model.SalidaCaja{
				MovimientoID: mov.ID,
				Monto:        mov.Monto,
				Descripcion:  mov.Descripcion,
				UsuarioID:    mov.UsuarioID,
				Fecha:        mov.CreatedAt,
			})
		case model.MovSuprimento:
			rep.TotalSuprimentos = rep.TotalSuprimentos.Add(mov.Monto)
		case model.MovCierre, model.MovRelevo:
			// audit only
		}
	}
	if !apertura {
		log.Warn().Str("sesion_id", ses.ID.String()).Msg("arqueo: sesión sin movimiento de apertura")
	}

	rep.EsperadoEfectivo = rep.MontoInicial.
		Add(rep.VentasEfectivo).
		Add(rep.TotalSuprimentos).
		Sub(rep.TotalSangrias)
	rep.CantidadVentas = len(ventasVistas)

	rep.VentasPorMetodo = make([]model.TotalMetodo, 0, len(model.MetodosPago))
	for _, m := range model.MetodosPago {
		rep.VentasPorMetodo = append(rep.VentasPorMetodo, *porMetodo[m])
	}
	rep.VentasPorItem = agruparItems(ventas)
	return rep
}

// SaldoDesdeMovimientos replays the cash balance of a session from its log.
func SaldoDesdeMovimientos(movs []model.MovimientoCaja) decimal.Decimal {
	saldo := decimal.Zero
	for _, mov := range movs {
		switch mov.Tipo {
		case model.MovApertura, model.MovSuprimento:
			saldo = saldo.Add(mov.Monto)
		case model.MovVenta:
			if mov.EsEfectivo() {
				saldo = saldo.Add(mov.Monto)
			}
		case model.MovSangria:
			saldo = saldo.Sub(mov.Monto)
		case model.MovCierre, model.MovRelevo:
		}
	}
	return saldo
}

func agruparItems(ventas []model.Venta) []model.TotalItem {
	porNombre := make(map[string]*model.TotalItem)
	for _, v := range ventas {
		for _, it := range v.Items {
			t, ok := porNombre[it.Nombre]
			if !ok {
				t = &model.TotalItem{Nombre: it.Nombre}
				porNombre[it.Nombre] = t
			}
			t.Cantidad += it.Cantidad
			t.Monto = t.Monto.Add(it.Subtotal())
		}
	}
	out := make([]model.TotalItem, 0, len(porNombre))
	for _, t := range porNombre {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out
}

// calcularDiferencia compares counted against expected totals. A positive
// amount is a surplus; the percentage is relative to the expected total.
func calcularDiferencia(esperado, declarado decimal.Decimal) model.Diferencia {
	monto := declarado.Sub(esperado)
	d := model.Diferencia{
		Monto:    monto,
		Absoluta: monto.Abs(),
		Sentido:  model.DiferenciaCuadrado,
	}
	switch monto.Sign() {
	case 1:
		d.Sentido = model.DiferenciaSobrante
	case -1:
		d.Sentido = model.DiferenciaFaltante
	}

	switch {
	case monto.IsZero():
		d.Porcentaje = decimal.Zero
	case esperado.IsZero():
		d.Porcentaje = cien.Mul(decimal.NewFromInt(int64(monto.Sign())))
	default:
		d.Porcentaje = monto.Div(esperado).Mul(cien).Round(2)
		if d.Porcentaje.Abs().GreaterThan(pctMaximo) {
			d.Porcentaje = pctMaximo.Mul(decimal.NewFromInt(int64(monto.Sign())))
		}
	}
	d.Clasificacion = clasificarDesvio(d.Porcentaje)
	return d
}

// clasificarDesvio: normal ≤ 1 %, advertencia ≤ 5 %, critico above.
func clasificarDesvio(pct decimal.Decimal) model.ClasificacionDesvio {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(umbralNormal):
		return model.DesvioNormal
	case abs.LessThanOrEqual(umbralAdvertencia):
		return model.DesvioAdvertencia
	default:
		return model.DesvioCritico
	}
}

// ── Arqueo ────────────────────────────────────────────────────────────────────
// Close and reconcile in one transaction: the report, the cierre movement and
// the frozen session are written together or not at all.

func (s *cajaService) Arqueo(ctx context.Context, sesionID uuid.UUID, op dto.Operador, req dto.ArqueoRequest) (*model.ReporteArqueo, error) {
	if err := validarMonto("declarado_efectivo", req.DeclaradoEfectivo, false); err != nil {
		return nil, err
	}
	if err := validarMonto("declarado_no_efectivo", req.DeclaradoNoEfectivo, false); err != nil {
		return nil, err
	}
	var observaciones *string
	if req.Observaciones != nil {
		if obs := strings.TrimSpace(*req.Observaciones); obs != "" {
			observaciones = &obs
		}
	}

	var (
		sesion  *model.SesionCaja
		mov     *model.MovimientoCaja
		reporte model.ReporteArqueo
	)
	err := s.runTx(ctx, "arqueo", func(tx repository.CajaTx) error {
		ses, err := lockAbierta(tx, sesionID)
		if err != nil {
			return err
		}
		movs, err := tx.ListMovimientos(ses.ID)
		if err != nil {
			return err
		}
		ventas, err := tx.ListVentasPagadas(ses.ID)
		if err != nil {
			return err
		}

		rep := ConstruirReporte(ses, movs, ventas)
		if !rep.EsperadoEfectivo.Equal(ses.SaldoActual) {
			// The log wins; the cache is only reported.
			log.Error().
				Str("sesion_id", ses.ID.String()).
				Str("saldo_cache", ses.SaldoActual.StringFixed(2)).
				Str("saldo_log", rep.EsperadoEfectivo.StringFixed(2)).
				Msg("arqueo: saldo en cache difiere del log de movimientos")
		}

		declarado := req.DeclaradoEfectivo.Add(req.DeclaradoNoEfectivo)
		esperado := rep.EsperadoTotal()
		if esperado.GreaterThan(montoMaximoCierre) {
			return model.NewValidacion("monto_esperado", "el total esperado supera el máximo admitido para el cierre")
		}
		dif := calcularDiferencia(esperado, declarado)
		if dif.Clasificacion == model.DesvioCritico && observaciones == nil {
			return model.NewValidacion("observaciones", "desvío crítico: se requieren observaciones del supervisor")
		}

		now := s.now()
		sentido := dif.Sentido
		mov = &model.MovimientoCaja{
			Tipo:        model.MovCierre,
			Monto:       dif.Absoluta,
			Sentido:     &sentido,
			Descripcion: fmt.Sprintf("cierre: %s %s", dif.Sentido, dif.Monto.StringFixed(2)),
			UsuarioID:   op.ID,
			CreatedAt:   now,
		}
		if err := s.appendMovimiento(tx, ses, mov); err != nil {
			return err
		}

		declaradoEf, declaradoNoEf := req.DeclaradoEfectivo, req.DeclaradoNoEfectivo
		clasificacion := dif.Clasificacion
		ses.Estado = model.SesionCerrada
		ses.ClosedAt = &now
		ses.MontoEsperado = &esperado
		ses.MontoDeclarado = &declarado
		ses.Desvio = &dif.Monto
		ses.DesvioPct = &dif.Porcentaje
		ses.ClasificacionDesvio = &clasificacion
		ses.Observaciones = observaciones

		rep.Estado = model.SesionCerrada
		rep.Parcial = false
		rep.ClosedAt = &now
		rep.DeclaradoEfectivo = &declaradoEf
		rep.DeclaradoNoEfectivo = &declaradoNoEf
		rep.Diferencia = &dif
		rep.Observaciones = observaciones
		rep.CantidadMovimientos++
		ses.ResumenCierre = &rep

		if err := tx.UpdateSesion(ses); err != nil {
			return err
		}
		sesion, reporte = ses, rep
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sesion_id", sesion.ID.String()).
		Str("esperado", reporte.EsperadoTotal().StringFixed(2)).
		Str("diferencia", reporte.Diferencia.Monto.StringFixed(2)).
		Str("clasificacion", string(reporte.Diferencia.Clasificacion)).
		Msg("caja: sesión cerrada")
	infra.IncCierre(string(reporte.Diferencia.Clasificacion))
	s.publish(ctx, eventoDe(sesion, mov))
	s.enqueueCierre(ctx, sesion.ID)
	return &reporte, nil
}
