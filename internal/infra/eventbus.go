package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrEventosNoDisponibles is returned by Subscribe when no broker is configured.
var ErrEventosNoDisponibles = errors.New("stream de eventos no disponible")

// EventBus fans ledger events out to dashboard subscribers.
type EventBus interface {
	Publish(ctx context.Context, evt model.EventoCaja) error
	// Subscribe streams events of one session until ctx is cancelled.
	Subscribe(ctx context.Context, sesionID uuid.UUID) (<-chan model.EventoCaja, error)
}

func canalSesion(id uuid.UUID) string { return "caja:eventos:" + id.String() }

// ── Redis ─────────────────────────────────────────────────────────────────────

type redisEventBus struct{ rdb *redis.Client }

func NewRedisEventBus(rdb *redis.Client) EventBus { return &redisEventBus{rdb: rdb} }

func (b *redisEventBus) Publish(ctx context.Context, evt model.EventoCaja) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	err = b.rdb.Publish(ctx, canalSesion(evt.SesionCajaID), payload).Err()
	IncEventoPublicado(err)
	return err
}

func (b *redisEventBus) Subscribe(ctx context.Context, sesionID uuid.UUID) (<-chan model.EventoCaja, error) {
	sub := b.rdb.Subscribe(ctx, canalSesion(sesionID))
	// Receive blocks until the subscription is confirmed so no event published
	// after Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("eventbus: subscribe: %w", err)
	}

	out := make(chan model.EventoCaja, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt model.EventoCaja
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					log.Warn().Err(err).Str("canal", msg.Channel).Msg("eventbus: payload inválido")
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// ── Noop ──────────────────────────────────────────────────────────────────────

// NoopEventBus drops every event. Used when REDIS_URL is not configured.
type NoopEventBus struct{}

func (NoopEventBus) Publish(context.Context, model.EventoCaja) error { return nil }

func (NoopEventBus) Subscribe(context.Context, uuid.UUID) (<-chan model.EventoCaja, error) {
	return nil, ErrEventosNoDisponibles
}
