package service

import (
	"context"
	"testing"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// Open with 100, sell 50 half cash half pix, withdraw 30, fail to withdraw 96,
// close counting 95 + 25.
func TestArqueo_FullShiftScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	op := nuevoOperador("Ana")
	ses := f.abrir(t, op, "100.00")

	v := f.venta(t, "Combo", "50.00")
	_, err := f.ventas.ProcesarPago(ctx, v.ID, op,
		pago(ses.ID, "0", tender(model.PagoEfectivo, "25.00"), tender(model.PagoPix, "25.00")))
	require.NoError(t, err)
	decEq(t, "125.00", f.saldo(t, ses.ID))

	_, err = f.caja.RegistrarMovimiento(ctx, ses.ID, op, sangria("30.00", "fornecedor"))
	require.NoError(t, err)
	decEq(t, "95.00", f.saldo(t, ses.ID))

	_, err = f.caja.RegistrarMovimiento(ctx, ses.ID, op, sangria("96.00", "fornecedor"))
	assert.ErrorIs(t, err, model.ErrFondosInsuficientes)
	decEq(t, "95.00", f.saldo(t, ses.ID))

	rep, err := f.caja.Arqueo(ctx, ses.ID, op, dto.ArqueoRequest{
		DeclaradoEfectivo:   d("95.00"),
		DeclaradoNoEfectivo: d("25.00"),
	})
	require.NoError(t, err)

	decEq(t, "95.00", rep.EsperadoEfectivo)
	decEq(t, "25.00", rep.EsperadoNoEfectivo)
	require.NotNil(t, rep.Diferencia)
	decEq(t, "0", rep.Diferencia.Monto)
	assert.Equal(t, model.DiferenciaCuadrado, rep.Diferencia.Sentido)
	assert.Equal(t, model.DesvioNormal, rep.Diferencia.Clasificacion)
	assert.Equal(t, model.SesionCerrada, rep.Estado)
	assert.False(t, rep.Parcial)
	assert.Equal(t, 1, rep.CantidadVentas)
	require.Len(t, rep.Sangrias, 1)
	assert.Equal(t, "fornecedor", rep.Sangrias[0].Descripcion)
	require.Len(t, rep.VentasPorItem, 1)
	assert.Equal(t, "Combo", rep.VentasPorItem[0].Nombre)

	cerrada, err := f.caja.GetSesion(ctx, ses.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SesionCerrada, cerrada.Estado)
	require.NotNil(t, cerrada.ClosedAt)
	require.NotNil(t, cerrada.ResumenCierre)
	decEq(t, "120.00", *cerrada.MontoEsperado)
	decEq(t, "120.00", *cerrada.MontoDeclarado)

	movs := f.movimientos(t, ses.ID)
	last := movs[len(movs)-1]
	assert.Equal(t, model.MovCierre, last.Tipo)
	require.NotNil(t, last.Sentido)
	assert.Equal(t, model.DiferenciaCuadrado, *last.Sentido)
	assert.Equal(t, len(movs), rep.CantidadMovimientos)

	assert.Equal(t, []uuid.UUID{ses.ID}, f.cierres.sesiones)
	tipos := f.events.tipos()
	assert.Equal(t, model.MovCierre, tipos[len(tipos)-1])
}

func TestArqueo_SurplusAndShortageAreDistinct(t *testing.T) {
	cases := []struct {
		name    string
		contado string
		monto   string
		sentido model.SentidoDiferencia
		pct     string
		clasif  model.ClasificacionDesvio
		obs     *string
	}{
		{"surplus", "101.00", "1.00", model.DiferenciaSobrante, "1", model.DesvioNormal, nil},
		{"shortage", "97.00", "-3.00", model.DiferenciaFaltante, "-3", model.DesvioAdvertencia, nil},
		{"critical shortage", "80.00", "-20.00", model.DiferenciaFaltante, "-20", model.DesvioCritico, strPtr("faltante investigado")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			op := nuevoOperador("Ana")
			ses := f.abrir(t, op, "100.00")

			rep, err := f.caja.Arqueo(context.Background(), ses.ID, op, dto.ArqueoRequest{
				DeclaradoEfectivo: d(tc.contado),
				Observaciones:     tc.obs,
			})
			require.NoError(t, err)
			decEq(t, tc.monto, rep.Diferencia.Monto)
			decEq(t, tc.monto, rep.Diferencia.Absoluta.Mul(decimal.NewFromInt(int64(rep.Diferencia.Monto.Sign()))))
			assert.True(t, rep.Diferencia.Absoluta.IsPositive())
			assert.Equal(t, tc.sentido, rep.Diferencia.Sentido)
			decEq(t, tc.pct, rep.Diferencia.Porcentaje)
			assert.Equal(t, tc.clasif, rep.Diferencia.Clasificacion)

			movs := f.movimientos(t, ses.ID)
			cierre := movs[len(movs)-1]
			assert.True(t, cierre.Monto.Equal(rep.Diferencia.Absoluta), "close movement stores the magnitude")
			require.NotNil(t, cierre.Sentido)
			assert.Equal(t, tc.sentido, *cierre.Sentido)
		})
	}
}

func TestArqueo_CriticalDeviationRequiresObservations(t *testing.T) {
	f := newFixture(t)
	op := nuevoOperador("Ana")
	ses := f.abrir(t, op, "100.00")

	_, err := f.caja.Arqueo(context.Background(), ses.ID, op, dto.ArqueoRequest{
		DeclaradoEfectivo: d("50.00"),
		Observaciones:     strPtr("   "),
	})
	assert.ErrorIs(t, err, model.ErrValidacion)

	still, err := f.caja.GetSesion(context.Background(), ses.ID)
	require.NoError(t, err)
	assert.True(t, still.Abierta())
	assert.Len(t, f.movimientos(t, ses.ID), 1)
}

func TestArqueo_ZeroExpectedWithCountedCashIsCritical(t *testing.T) {
	f := newFixture(t)
	op := nuevoOperador("Ana")
	ses := f.abrir(t, op, "0")

	rep, err := f.caja.Arqueo(context.Background(), ses.ID, op, dto.ArqueoRequest{
		DeclaradoEfectivo: d("5"),
		Observaciones:     strPtr("billete encontrado"),
	})
	require.NoError(t, err)
	decEq(t, "100", rep.Diferencia.Porcentaje)
	assert.Equal(t, model.DesvioCritico, rep.Diferencia.Clasificacion)
}

func TestArqueo_TinyExpectedClampsPercentage(t *testing.T) {
	f := newFixture(t)
	op := nuevoOperador("Ana")
	ses := f.abrir(t, op, "0.01")

	rep, err := f.caja.Arqueo(context.Background(), ses.ID, op, dto.ArqueoRequest{
		DeclaradoEfectivo: d("100.00"),
		Observaciones:     strPtr("fondo mal cargado"),
	})
	require.NoError(t, err)
	decEq(t, "99999.99", rep.Diferencia.Porcentaje)
	decEq(t, "99.99", rep.Diferencia.Monto)
	assert.Equal(t, model.DesvioCritico, rep.Diferencia.Clasificacion)

	cerrada, err := f.caja.GetSesion(context.Background(), ses.ID)
	require.NoError(t, err)
	require.NotNil(t, cerrada.DesvioPct)
	decEq(t, "99999.99", *cerrada.DesvioPct)
}

func TestCalcularDiferencia_PercentageFitsColumn(t *testing.T) {
	cases := []struct {
		esperado, declarado, pct string
	}{
		{"0.01", "100.00", "99999.99"},
		{"0.01", "9999999999.99", "99999.99"},
		{"1000.00", "999.99", "0"},
		{"1000.00", "0", "-100"},
		{"0", "0", "0"},
	}
	for _, tc := range cases {
		dif := calcularDiferencia(d(tc.esperado), d(tc.declarado))
		decEq(t, tc.pct, dif.Porcentaje)
		assert.True(t, dif.Porcentaje.Abs().LessThanOrEqual(pctMaximo))
	}
}

func TestClosedSessionIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	op := nuevoOperador("Ana")
	ses := f.abrir(t, op, "10")
	_, err := f.caja.Arqueo(ctx, ses.ID, op, dto.ArqueoRequest{DeclaradoEfectivo: d("10")})
	require.NoError(t, err)
	before := len(f.movimientos(t, ses.ID))

	v := f.venta(t, "Pizza", "5")
	_, err = f.ventas.ProcesarPago(ctx, v.ID, op, pago(ses.ID, "0", tender(model.PagoEfectivo, "5")))
	assert.ErrorIs(t, err, model.ErrSesionCerrada)
	_, err = f.caja.RegistrarMovimiento(ctx, ses.ID, op, suprimento("5", "cambio"))
	assert.ErrorIs(t, err, model.ErrSesionCerrada)
	_, err = f.caja.Arqueo(ctx, ses.ID, op, dto.ArqueoRequest{DeclaradoEfectivo: d("10")})
	assert.ErrorIs(t, err, model.ErrSesionCerrada)

	assert.Len(t, f.movimientos(t, ses.ID), before)
	got, err := f.ventas.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VentaPendiente, got.Estado, "order stays unpaid when the sale is rejected")
	assert.Len(t, f.cierres.sesiones, 1)
}

func TestReporteParcial_IsDeterministicAndKeepsSessionOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	op := nuevoOperador("Ana")
	ses := f.abrir(t, op, "20")

	ventas := []struct {
		nombre, total string
		metodo        model.MetodoPago
	}{
		{"Pizza", "12.00", model.PagoEfectivo},
		{"Pizza", "12.00", model.PagoDebito},
		{"Refri", "4.00", model.PagoEfectivo},
	}
	for _, v := range ventas {
		orden := f.venta(t, v.nombre, v.total)
		_, err := f.ventas.ProcesarPago(ctx, orden.ID, op, pago(ses.ID, "0", tender(v.metodo, v.total)))
		require.NoError(t, err)
	}
	_, err := f.caja.RegistrarMovimiento(ctx, ses.ID, op, suprimento("10", "monedas"))
	require.NoError(t, err)

	a, err := f.caja.ReporteParcial(ctx, ses.ID)
	require.NoError(t, err)
	b, err := f.caja.ReporteParcial(ctx, ses.ID)
	require.NoError(t, err)

	assert.True(t, a.Parcial)
	decEq(t, "46.00", a.EsperadoEfectivo)
	decEq(t, "12.00", a.EsperadoNoEfectivo)
	assert.True(t, a.EsperadoEfectivo.Equal(b.EsperadoEfectivo))
	assert.True(t, a.EsperadoNoEfectivo.Equal(b.EsperadoNoEfectivo))
	require.Len(t, b.VentasPorItem, len(a.VentasPorItem))
	for i := range a.VentasPorItem {
		assert.Equal(t, a.VentasPorItem[i].Nombre, b.VentasPorItem[i].Nombre)
		assert.True(t, a.VentasPorItem[i].Monto.Equal(b.VentasPorItem[i].Monto))
	}
	assert.Equal(t, 3, a.CantidadVentas)
	decEq(t, "46.00", f.saldo(t, ses.ID))

	require.Len(t, a.VentasPorItem, 2)
	assert.Equal(t, "Pizza", a.VentasPorItem[0].Nombre)
	assert.Equal(t, 2, a.VentasPorItem[0].Cantidad)
	decEq(t, "24.00", a.VentasPorItem[0].Monto)

	require.Len(t, a.VentasPorMetodo, len(model.MetodosPago))
	assert.Equal(t, model.PagoEfectivo, a.VentasPorMetodo[0].Metodo)
	assert.Equal(t, 2, a.VentasPorMetodo[0].Cantidad)
	decEq(t, "16.00", a.VentasPorMetodo[0].Monto)

	still, err := f.caja.GetActiva(ctx, op.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
}

func TestReporteParcial_ClosedSessionReturnsFrozenSummary(t *testing.T) {
	f := newFixture(t)
	op := nuevoOperador("Ana")
	ses := f.abrir(t, op, "20")
	cierre, err := f.caja.Arqueo(context.Background(), ses.ID, op, dto.ArqueoRequest{DeclaradoEfectivo: d("20")})
	require.NoError(t, err)

	rep, err := f.caja.ReporteParcial(context.Background(), ses.ID)
	require.NoError(t, err)
	assert.False(t, rep.Parcial)
	assert.Equal(t, cierre.Diferencia, rep.Diferencia)
}

func TestConstruirReporte_DerivesFromLogOnly(t *testing.T) {
	ses := &model.SesionCaja{
		ID:           uuid.New(),
		MontoInicial: d("50"),
		// a stale cache must not leak into the report
		SaldoActual: d("999"),
		Estado:      model.SesionAbierta,
		OpenedAt:    time.Now(),
	}
	ef, pix := model.PagoEfectivo, model.PagoPix
	ref := uuid.New()
	movs := []model.MovimientoCaja{
		{Secuencia: 1, Tipo: model.MovApertura, Monto: d("50")},
		{Secuencia: 2, Tipo: model.MovVenta, MetodoPago: &ef, Monto: d("30"), ReferenciaID: &ref},
		{Secuencia: 3, Tipo: model.MovVenta, MetodoPago: &pix, Monto: d("15"), ReferenciaID: &ref},
		{Secuencia: 4, Tipo: model.MovSuprimento, Monto: d("5")},
		{Secuencia: 5, Tipo: model.MovSangria, Monto: d("20"), Descripcion: "banco"},
		{Secuencia: 6, Tipo: model.MovRelevo},
	}

	rep := ConstruirReporte(ses, movs, nil)
	decEq(t, "65", rep.EsperadoEfectivo)
	decEq(t, "15", rep.EsperadoNoEfectivo)
	decEq(t, "80", rep.EsperadoTotal())
	decEq(t, "65", SaldoDesdeMovimientos(movs))
	assert.Equal(t, 1, rep.CantidadVentas)
	assert.Equal(t, 6, rep.CantidadMovimientos)
	assert.Empty(t, rep.VentasPorItem)
}

func TestClasificarDesvio(t *testing.T) {
	assert.Equal(t, model.DesvioNormal, clasificarDesvio(d("0")))
	assert.Equal(t, model.DesvioNormal, clasificarDesvio(d("-1")))
	assert.Equal(t, model.DesvioAdvertencia, clasificarDesvio(d("1.01")))
	assert.Equal(t, model.DesvioAdvertencia, clasificarDesvio(d("-5")))
	assert.Equal(t, model.DesvioCritico, clasificarDesvio(d("5.01")))
}
