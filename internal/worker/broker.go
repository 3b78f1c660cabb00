package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// errColaVacia is returned by Pop when no job arrived within the timeout.
var errColaVacia = errors.New("worker: cola vacía")

// Broker is the list transport behind the job queues: producers push on the
// left, workers pop from the right.
type Broker interface {
	Push(ctx context.Context, queue string, data []byte) error
	Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error)
	Len(ctx context.Context, queue string) (int64, error)
}

// ── Redis ─────────────────────────────────────────────────────────────────────

type redisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) Broker {
	return &redisBroker{rdb: rdb}
}

func (b *redisBroker) Push(ctx context.Context, queue string, data []byte) error {
	return b.rdb.LPush(ctx, queue, data).Err()
}

// Pop blocks on BRPOP, zero CPU while idle.
func (b *redisBroker) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error) {
	res, err := b.rdb.BRPop(ctx, timeout, queues...).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, errColaVacia
	}
	if err != nil {
		return "", nil, err
	}
	if len(res) < 2 {
		return "", nil, errColaVacia
	}
	return res[0], []byte(res[1]), nil
}

func (b *redisBroker) Len(ctx context.Context, queue string) (int64, error) {
	return b.rdb.LLen(ctx, queue).Result()
}

// ── In-process ────────────────────────────────────────────────────────────────
// Used when the service runs without Redis (STORAGE_DRIVER=memory). Jobs are
// lost on restart.

type memoryBroker struct {
	mu     sync.Mutex
	lists  map[string][][]byte
	signal chan struct{}
}

func NewMemoryBroker() Broker {
	return &memoryBroker{
		lists:  make(map[string][][]byte),
		signal: make(chan struct{}, 1),
	}
}

func (b *memoryBroker) Push(_ context.Context, queue string, data []byte) error {
	b.mu.Lock()
	b.lists[queue] = append(b.lists[queue], append([]byte(nil), data...))
	b.mu.Unlock()
	b.wake()
	return nil
}

func (b *memoryBroker) wake() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *memoryBroker) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if q, data, pending, ok := b.take(queues); ok {
			if pending {
				// hand the wakeup on to the next idle worker
				b.wake()
			}
			return q, data, nil
		}
		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-timer.C:
			return "", nil, errColaVacia
		case <-b.signal:
		}
	}
}

func (b *memoryBroker) take(queues []string) (queue string, data []byte, pending, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, q := range queues {
		if l := b.lists[q]; len(l) > 0 && !ok {
			b.lists[q] = l[1:]
			queue, data, ok = q, l[0], true
		}
		if len(b.lists[q]) > 0 {
			pending = true
		}
	}
	return queue, data, pending, ok
}

func (b *memoryBroker) Len(_ context.Context, queue string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.lists[queue])), nil
}
