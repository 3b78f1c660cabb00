package infra

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/config"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// ── Circuit breaker ──────────────────────────────────────────────────────────

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	})
	cb.now = func() time.Time { return *now }
	return cb
}

func TestCircuitBreaker_Cycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	boom := errors.New("smtp caido")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Execute(fail), boom)
	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(fail), boom)
	assert.Equal(t, CBOpen, cb.State())

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls, "open breaker must not call through")

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	boom := errors.New("timeout")

	_ = cb.Execute(func() error { return boom })
	_ = cb.Execute(func() error { return boom })
	now = now.Add(2 * time.Minute)
	require.Equal(t, CBHalfOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, CBOpen, cb.State())
	assert.Equal(t, "open", cb.State().String())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	boom := errors.New("x")

	_ = cb.Execute(func() error { return boom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return boom })
	assert.Equal(t, CBClosed, cb.State())
}

// ── Reports ──────────────────────────────────────────────────────────────────

func sampleReporte() *model.ReporteArqueo {
	closed := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	declarado := decimal.RequireFromString("95")
	obs := "faltante de cambio"
	return &model.ReporteArqueo{
		SesionCajaID:       uuid.New(),
		UsuarioNombre:      "Ana Pérez",
		Estado:             model.SesionCerrada,
		OpenedAt:           closed.Add(-8 * time.Hour),
		ClosedAt:           &closed,
		MontoInicial:       decimal.RequireFromString("100"),
		VentasEfectivo:     decimal.RequireFromString("25"),
		TotalSangrias:      decimal.RequireFromString("30"),
		EsperadoEfectivo:   decimal.RequireFromString("95"),
		EsperadoNoEfectivo: decimal.RequireFromString("12"),
		DeclaradoEfectivo:  &declarado,
		Observaciones:      &obs,
		Diferencia: &model.Diferencia{
			Sentido:       model.DiferenciaCuadrado,
			Clasificacion: model.DesvioNormal,
		},
		VentasPorMetodo: []model.TotalMetodo{
			{Metodo: model.PagoEfectivo, Cantidad: 1, Monto: decimal.RequireFromString("25")},
			{Metodo: model.PagoDebito, Cantidad: 1, Monto: decimal.RequireFromString("12")},
		},
		VentasPorItem: []model.TotalItem{{Nombre: "Café con leche", Cantidad: 3, Monto: decimal.RequireFromString("37")}},
		Sangrias:      []model.SalidaCaja{{MovimientoID: uuid.New(), Monto: decimal.RequireFromString("30"), Descripcion: "depósito"}},
	}
}

func TestGenerateCierrePDF_WritesFile(t *testing.T) {
	rep := sampleReporte()
	dir := filepath.Join(t.TempDir(), "pdfs")

	path, err := GenerateCierrePDF(rep, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cierre_"+rep.SesionCajaID.String()+".pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestBuildHistorialXLSX(t *testing.T) {
	desvio := decimal.RequireFromString("-3")
	clasif := model.DesvioAdvertencia
	closed := time.Now()
	sesiones := []model.SesionCaja{
		{ID: uuid.New(), UsuarioNombre: "ana", Estado: model.SesionAbierta, OpenedAt: time.Now()},
		{
			ID: uuid.New(), UsuarioNombre: "bea", Estado: model.SesionCerrada, OpenedAt: time.Now(),
			ClosedAt: &closed, Desvio: &desvio, ClasificacionDesvio: &clasif,
		},
	}

	data, err := BuildHistorialXLSX(sesiones)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(hojaSesiones)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Sesión", rows[0][0])
	assert.Equal(t, "bea", rows[2][1])
	assert.Equal(t, "advertencia", rows[2][11])

	abiertas, err := f.GetCellValue(hojaResumen, "B4")
	require.NoError(t, err)
	assert.Equal(t, "1", abiertas)
	faltantes, err := f.GetCellValue(hojaResumen, "B6")
	require.NoError(t, err)
	assert.Equal(t, "3", faltantes)
}

// ── Mailer / events / metrics ────────────────────────────────────────────────

func TestMailer_MissingAttachmentFailsBeforeDialing(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "127.0.0.1", SMTPPort: 1, SMTPUser: "caja@example.com"})
	err := m.SendCierre("gerencia@example.com", "Cierre", "cuerpo", filepath.Join(t.TempDir(), "no-existe.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attach PDF")
}

func TestNoopEventBus(t *testing.T) {
	var bus EventBus = NoopEventBus{}
	assert.NoError(t, bus.Publish(context.Background(), model.EventoCaja{SesionCajaID: uuid.New()}))
	_, err := bus.Subscribe(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrEventosNoDisponibles)
}

func TestMetrics_CountAfterInit(t *testing.T) {
	InitMetrics()
	InitMetrics()

	before := testutil.ToFloat64(workerJobs.WithLabelValues("cierre", ResultadoError))
	IncWorkerJob("cierre", errors.New("x"))
	assert.Equal(t, before+1, testutil.ToFloat64(workerJobs.WithLabelValues("cierre", ResultadoError)))

	IncCierre("")
	assert.GreaterOrEqual(t, testutil.ToFloat64(cierresDesvio.WithLabelValues("unknown")), 1.0)
}
