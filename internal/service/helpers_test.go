package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakePublisher struct {
	mu   sync.Mutex
	evts []model.EventoCaja
}

func (p *fakePublisher) Publish(_ context.Context, evt model.EventoCaja) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evts = append(p.evts, evt)
	return nil
}

func (p *fakePublisher) tipos() []model.TipoMovimiento {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.TipoMovimiento, 0, len(p.evts))
	for _, e := range p.evts {
		out = append(out, e.Tipo)
	}
	return out
}

type fakeCierres struct {
	mu       sync.Mutex
	sesiones []uuid.UUID
}

func (c *fakeCierres) EnqueueCierre(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sesiones = append(c.sesiones, id)
	return nil
}

type fixture struct {
	store   *repository.MemoryStore
	caja    CajaService
	ventas  VentaService
	events  *fakePublisher
	cierres *fakeCierres
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	events := &fakePublisher{}
	cierres := &fakeCierres{}
	cfg := LedgerConfig{MaxRetries: 3, RetryBase: time.Millisecond, HistorialMax: 50}
	return &fixture{
		store:   store,
		caja:    NewCajaService(store, events, cierres, cfg),
		ventas:  NewVentaService(store, store, events, cfg),
		events:  events,
		cierres: cierres,
	}
}

func nuevoOperador(nombre string) dto.Operador {
	return dto.Operador{ID: uuid.New(), Nombre: nombre}
}

func (f *fixture) abrir(t *testing.T, op dto.Operador, inicial string) *model.SesionCaja {
	t.Helper()
	ses, err := f.caja.Abrir(context.Background(), op, dto.AbrirCajaRequest{MontoInicial: d(inicial)})
	require.NoError(t, err)
	return ses
}

// venta registers a pending order with a single line item worth total.
func (f *fixture) venta(t *testing.T, nombre, total string) *model.Venta {
	t.Helper()
	v, err := f.ventas.Registrar(context.Background(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{Nombre: nombre, Cantidad: 1, PrecioUnitario: d(total)}},
	})
	require.NoError(t, err)
	return v
}

func pago(sesionID uuid.UUID, vuelto string, pagos ...dto.PagoRequest) dto.ProcesarPagoRequest {
	return dto.ProcesarPagoRequest{
		SesionCajaID: sesionID.String(),
		Pagos:        pagos,
		Vuelto:       d(vuelto),
		Descuento:    decimal.Zero,
	}
}

func tender(metodo model.MetodoPago, monto string) dto.PagoRequest {
	return dto.PagoRequest{Metodo: string(metodo), Monto: d(monto)}
}

func (f *fixture) saldo(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	ses, err := f.caja.GetSesion(context.Background(), id)
	require.NoError(t, err)
	return ses.SaldoActual
}

func (f *fixture) movimientos(t *testing.T, id uuid.UUID) []model.MovimientoCaja {
	t.Helper()
	movs, err := f.caja.ListMovimientos(context.Background(), id)
	require.NoError(t, err)
	return movs
}

// requireBalanceInvariant replays the log and compares it with the cached balance.
func (f *fixture) requireBalanceInvariant(t *testing.T, id uuid.UUID) {
	t.Helper()
	replay, cache := SaldoDesdeMovimientos(f.movimientos(t, id)), f.saldo(t, id)
	require.Truef(t, replay.Equal(cache), "saldo replay %s != cache %s", replay, cache)
}

func decEq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s got %s", want, got)
}
