package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	QueueCierre = "jobs:cierre"
	QueueEmail  = "jobs:email"

	JobCierre = "cierre"
	JobEmail  = "email"

	// MaxJobAttempts counts the first run; after that many failures the job
	// goes to the DLQ.
	MaxJobAttempts = 3
)

// ErrPermanente marks failures that retrying cannot fix (bad payload, missing
// session). Such jobs skip straight to the DLQ.
var ErrPermanente = errors.New("worker: error permanente")

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload.
type Handler func(ctx context.Context, payload json.RawMessage) error

// ── Dispatcher ────────────────────────────────────────────────────────────────

// Dispatcher enqueues async jobs; the pool dequeues them.
type Dispatcher struct {
	broker Broker
}

func NewDispatcher(broker Broker) *Dispatcher {
	return &Dispatcher{broker: broker}
}

// EnqueueCierre schedules the closing-report pipeline of a closed session.
func (d *Dispatcher) EnqueueCierre(ctx context.Context, sesionID uuid.UUID) error {
	return d.enqueue(ctx, QueueCierre, JobCierre, CierreJobPayload{SesionCajaID: sesionID.String()})
}

// EnqueueEmail pushes an email job.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	if err := d.broker.Push(ctx, queue, encoded); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return nil
}

// ── Pool ──────────────────────────────────────────────────────────────────────

type PoolConfig struct {
	Size       int
	PopTimeout time.Duration
	RetryDelay time.Duration
}

// Pool runs Size goroutines consuming every registered queue.
type Pool struct {
	broker   Broker
	cfg      PoolConfig
	queues   []string
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewPool(broker Broker, cfg PoolConfig) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Pool{broker: broker, cfg: cfg, handlers: make(map[string]Handler)}
}

// Handle registers h for jobType on queue. Call before Start.
func (p *Pool) Handle(queue, jobType string, h Handler) {
	p.handlers[jobType] = h
	for _, q := range p.queues {
		if q == queue {
			return
		}
	}
	p.queues = append(p.queues, queue)
}

// Start launches the workers; they stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	log.Info().Int("workers", p.cfg.Size).Strs("queues", p.queues).Msg("worker pool started")
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		}
		queue, raw, err := p.broker.Pop(ctx, p.cfg.PopTimeout, p.queues...)
		if err != nil {
			if !errors.Is(err, errColaVacia) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("worker: pop failed")
				sleepCtx(ctx, p.cfg.RetryDelay)
			}
			continue
		}
		p.process(ctx, queue, raw)
	}
}

func (p *Pool) process(ctx context.Context, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: failed to unmarshal job")
		SendToDLQ(ctx, p.broker, queue, "desconocido", raw, err.Error(), 0)
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, p.broker, queue, job.Type, job.Payload, "tipo de job sin handler", job.Attempts)
		return
	}

	err := h(ctx, job.Payload)
	infra.IncWorkerJob(job.Type, err)
	if err == nil {
		return
	}

	job.Attempts++
	if errors.Is(err, ErrPermanente) || job.Attempts >= MaxJobAttempts {
		SendToDLQ(ctx, p.broker, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}

	wait := p.cfg.RetryDelay << uint(job.Attempts-1)
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Dur("wait", wait).
		Msg("worker: job failed, requeueing")
	sleepCtx(ctx, wait)

	encoded, mErr := json.Marshal(job)
	if mErr == nil {
		// the job must survive shutdown, so requeue without the worker context
		mErr = p.broker.Push(context.WithoutCancel(ctx), queue, encoded)
	}
	if mErr != nil {
		log.Error().Err(mErr).Str("type", job.Type).Msg("worker: requeue failed")
		SendToDLQ(ctx, p.broker, queue, job.Type, job.Payload, err.Error(), job.Attempts)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
