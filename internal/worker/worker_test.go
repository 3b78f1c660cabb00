package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/dto"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/repository"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu    sync.Mutex
	sent  []EmailJobPayload
	fails bool
}

func (m *fakeMailer) SendCierre(to, subject, body, pdfPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, EmailJobPayload{ToEmail: to, Subject: subject, Body: body, PDFPath: pdfPath})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeEmails struct {
	jobs []EmailJobPayload
}

func (f *fakeEmails) EnqueueEmail(_ context.Context, p EmailJobPayload) error {
	f.jobs = append(f.jobs, p)
	return nil
}

func testPool(b Broker) *Pool {
	return NewPool(b, PoolConfig{Size: 2, PopTimeout: 20 * time.Millisecond, RetryDelay: time.Millisecond})
}

// cerrada opens and closes a session on a fresh memory store.
func cerrada(t *testing.T) (*repository.MemoryStore, uuid.UUID) {
	t.Helper()
	store := repository.NewMemoryStore()
	caja := service.NewCajaService(store, nil, nil, service.LedgerConfig{MaxRetries: 1, RetryBase: time.Millisecond})
	op := dto.Operador{ID: uuid.New(), Nombre: "Ana"}

	ses, err := caja.Abrir(context.Background(), op, dto.AbrirCajaRequest{MontoInicial: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = caja.Arqueo(context.Background(), ses.ID, op, dto.ArqueoRequest{DeclaradoEfectivo: decimal.NewFromInt(100)})
	require.NoError(t, err)
	return store, ses.ID
}

func TestDispatcher_EnqueueCierre(t *testing.T) {
	b := NewMemoryBroker()
	id := uuid.New()
	require.NoError(t, NewDispatcher(b).EnqueueCierre(context.Background(), id))

	queue, raw, err := b.Pop(context.Background(), time.Second, QueueCierre)
	require.NoError(t, err)
	assert.Equal(t, QueueCierre, queue)

	var job Job
	require.NoError(t, json.Unmarshal(raw, &job))
	assert.Equal(t, JobCierre, job.Type)
	assert.Zero(t, job.Attempts)

	var payload CierreJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, id.String(), payload.SesionCajaID)
}

func TestPool_FailingJobIsRetriedThenParked(t *testing.T) {
	b := NewMemoryBroker()
	var calls atomic.Int32
	p := testPool(b)
	p.Handle(QueueEmail, JobEmail, func(context.Context, json.RawMessage) error {
		calls.Add(1)
		return errors.New("smtp down")
	})
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer func() { cancel(); p.Wait() }()

	require.NoError(t, NewDispatcher(b).EnqueueEmail(ctx, EmailJobPayload{ToEmail: "a@b.c"}))

	assert.Eventually(t, func() bool {
		n, _ := DLQLength(ctx, b, QueueEmail)
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(MaxJobAttempts), calls.Load())

	_, raw, err := b.Pop(ctx, time.Second, DLQPrefix+QueueEmail)
	require.NoError(t, err)
	var entry DLQEntry
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, JobEmail, entry.JobType)
	assert.Equal(t, MaxJobAttempts, entry.Attempts)
	assert.Contains(t, entry.Reason, "smtp down")
}

func TestPool_PermanentErrorSkipsRetries(t *testing.T) {
	b := NewMemoryBroker()
	var calls atomic.Int32
	p := testPool(b)
	p.Handle(QueueCierre, JobCierre, func(context.Context, json.RawMessage) error {
		calls.Add(1)
		return ErrPermanente
	})
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer func() { cancel(); p.Wait() }()

	require.NoError(t, NewDispatcher(b).EnqueueCierre(ctx, uuid.New()))
	assert.Eventually(t, func() bool {
		n, _ := DLQLength(ctx, b, QueueCierre)
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPool_ClosingPipelineEndToEnd(t *testing.T) {
	store, sesionID := cerrada(t)
	b := NewMemoryBroker()
	d := NewDispatcher(b)
	mailer := &fakeMailer{}
	dir := t.TempDir()

	p := testPool(b)
	p.Handle(QueueCierre, JobCierre, NewCierreWorker(store, d, dir, "supervisor@local").Process)
	p.Handle(QueueEmail, JobEmail, NewEmailWorker(mailer, infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))).Process)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer func() { cancel(); p.Wait() }()

	require.NoError(t, d.EnqueueCierre(ctx, sesionID))
	require.Eventually(t, func() bool { return mailer.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	mailer.mu.Lock()
	sent := mailer.sent[0]
	mailer.mu.Unlock()
	assert.Equal(t, "supervisor@local", sent.ToEmail)
	assert.Contains(t, sent.Subject, "Ana")
	assert.Contains(t, sent.Body, "cuadrado")
	_, err := os.Stat(sent.PDFPath)
	assert.NoError(t, err)
}

func TestCierreWorker_WithoutNotifyAddressOnlyRendersPDF(t *testing.T) {
	store, sesionID := cerrada(t)
	emails := &fakeEmails{}
	dir := t.TempDir()
	w := NewCierreWorker(store, emails, dir, "")

	raw, _ := json.Marshal(CierreJobPayload{SesionCajaID: sesionID.String()})
	require.NoError(t, w.Process(context.Background(), raw))
	assert.Empty(t, emails.jobs)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCierreWorker_PermanentFailures(t *testing.T) {
	store := repository.NewMemoryStore()
	caja := service.NewCajaService(store, nil, nil, service.LedgerConfig{})
	abierta, err := caja.Abrir(context.Background(), dto.Operador{ID: uuid.New(), Nombre: "Ana"},
		dto.AbrirCajaRequest{MontoInicial: decimal.NewFromInt(1)})
	require.NoError(t, err)

	w := NewCierreWorker(store, &fakeEmails{}, t.TempDir(), "x@y.z")
	for name, raw := range map[string]string{
		"bad json":        `{`,
		"bad id":          `{"sesion_caja_id":"nope"}`,
		"unknown session": `{"sesion_caja_id":"` + uuid.NewString() + `"}`,
		"session open":    `{"sesion_caja_id":"` + abierta.ID.String() + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, w.Process(context.Background(), json.RawMessage(raw)), ErrPermanente)
		})
	}
}

func TestEmailWorker_BreakerFailsFast(t *testing.T) {
	mailer := &fakeMailer{fails: true}
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "smtp", FailureThreshold: 2, OpenTimeout: time.Hour})
	w := NewEmailWorker(mailer, cb)
	raw, _ := json.Marshal(EmailJobPayload{ToEmail: "x@y.z", Subject: "s"})

	assert.Error(t, w.Process(context.Background(), raw))
	assert.Error(t, w.Process(context.Background(), raw))
	assert.Equal(t, infra.CBOpen, cb.State())
	assert.ErrorIs(t, w.Process(context.Background(), raw), infra.ErrCircuitOpen)

	// empty recipient is a no-op, not a failure
	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`{"to_email":""}`)))
}
