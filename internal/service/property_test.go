package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// cents returns a random amount in [0.01, max/100].
func cents(r *rand.Rand, max int64) decimal.Decimal {
	return decimal.New(r.Int63n(max)+1, -2)
}

// Random operation sequences: after every step the replayed log, the cached
// balance, the partial report and an independently tracked total all agree.
func TestBalanceInvariantUnderRandomOperations(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 1337} {
		r := rand.New(rand.NewSource(seed))
		f := newFixture(t)
		ctx := context.Background()
		op := nuevoOperador("Ana")

		esperado := cents(r, 50_000)
		noEfectivo := decimal.Zero
		ses, err := f.caja.Abrir(ctx, op, dto.AbrirCajaRequest{MontoInicial: esperado})
		require.NoError(t, err)

		for step := 0; step < 60; step++ {
			switch r.Intn(4) {
			case 0:
				monto := cents(r, 10_000)
				_, err := f.caja.RegistrarMovimiento(ctx, ses.ID, op,
					dto.MovimientoManualRequest{Tipo: string(model.MovSuprimento), Monto: monto, Descripcion: "refuerzo"})
				require.NoError(t, err)
				esperado = esperado.Add(monto)

			case 1:
				monto := cents(r, 20_000)
				_, err := f.caja.RegistrarMovimiento(ctx, ses.ID, op,
					dto.MovimientoManualRequest{Tipo: string(model.MovSangria), Monto: monto, Descripcion: "retiro"})
				if monto.GreaterThan(esperado) {
					require.True(t, errors.Is(err, model.ErrFondosInsuficientes), "seed %d step %d: %v", seed, step, err)
				} else {
					require.NoError(t, err)
					esperado = esperado.Sub(monto)
				}

			case 2:
				total := cents(r, 15_000)
				v := f.venta(t, "Item", total.String())
				metodo := model.MetodosPago[r.Intn(len(model.MetodosPago))]
				req := pago(ses.ID, "0", tender(metodo, total.String()))
				if metodo == model.PagoEfectivo {
					vuelto := cents(r, 2_000)
					req.Pagos[0].Monto = total.Add(vuelto)
					req.Vuelto = vuelto
					esperado = esperado.Add(total)
				} else {
					noEfectivo = noEfectivo.Add(total)
				}
				_, err := f.ventas.ProcesarPago(ctx, v.ID, op, req)
				require.NoError(t, err)

			case 3:
				_, err := f.caja.Relevar(ctx, ses.ID, nuevoOperador("Bruno"), dto.RelevoRequest{UsuarioNombre: "Bruno"})
				require.NoError(t, err)
			}

			decEq(t, esperado.String(), f.saldo(t, ses.ID))
			f.requireBalanceInvariant(t, ses.ID)
			rep, err := f.caja.ReporteParcial(ctx, ses.ID)
			require.NoError(t, err)
			decEq(t, esperado.String(), rep.EsperadoEfectivo)
			decEq(t, noEfectivo.String(), rep.EsperadoNoEfectivo)
		}

		rep, err := f.caja.Arqueo(ctx, ses.ID, op, dto.ArqueoRequest{
			DeclaradoEfectivo:   esperado,
			DeclaradoNoEfectivo: noEfectivo,
		})
		require.NoError(t, err)
		decEq(t, esperado.String(), rep.EsperadoEfectivo)
		require.True(t, rep.Diferencia.Monto.IsZero())

		movs := f.movimientos(t, ses.ID)
		for i, m := range movs {
			require.Equal(t, int64(i+1), m.Secuencia)
		}
	}
}
