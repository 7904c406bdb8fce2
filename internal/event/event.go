package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultPoolSize = 1000
	defaultTimeout  = 30 * time.Second
)

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

type Option func(b *Bus)

// WithPoolSize bounds the number of in-flight handlers per event name.
func WithPoolSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.poolSize = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// Bus is an in-memory event bus. Each event name has its own worker pool so a
// slow subscriber of one event cannot starve subscribers of another.
type Bus struct {
	poolSize int
	timeout  time.Duration

	wg     sync.WaitGroup
	mu     sync.RWMutex
	topics map[string]*topic
}

type topic struct {
	pool     chan struct{}
	handlers []Handler
}

// NewBus create a new event bus. Caller should call Stop for graceful shutdown the bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		poolSize: defaultPoolSize,
		timeout:  defaultTimeout,
		topics:   make(map[string]*topic),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[name]
	if !ok {
		t = &topic{pool: make(chan struct{}, b.poolSize)}
		b.topics[name] = t
	}
	t.handlers = append(t.handlers, h)
}

// Publish dispatches e to every subscriber asynchronously. Publishing an event
// nobody subscribed to is a no-op.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	t, ok := b.topics[e.Name()]
	var handlers []Handler
	if ok {
		handlers = append(handlers, t.handlers...)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, t.pool, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, pool chan struct{}, h Handler, e Event) {
	b.wg.Add(1)

	pool <- struct{}{}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "event: handler panic",
					"event", e.Name(),
					"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
				)
			}

			cancel()
			<-pool
			b.wg.Done()
		}()

		if err := h(ctx, e); err != nil {
			slog.ErrorContext(ctx, "event: handle event failed",
				"event", e.Name(),
				"error", err,
			)
		}
	}()
}

// Stop waits for all handlers to finish
func (b *Bus) Stop() {
	b.wg.Wait()
}
