// Package events carries lifecycle events from the mutation paths to the
// notification side without blocking them. Emit never waits: when the buffer
// is full the event is dropped and logged, because a slow webhook must not
// stall a booking or a release.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/titlekeep/titlekeep-server/internal/domain"
)

// Handler consumes one event. Handlers run on the bus goroutine, so they
// should hand slow work (HTTP delivery) to their own goroutines or accept
// the serialization.
type Handler func(ctx context.Context, event domain.Event)

// Bus is an in-process fan-out with a bounded buffer.
type Bus struct {
	logger   *slog.Logger
	events   chan domain.Event
	mu       sync.RWMutex
	handlers []Handler
	wg       sync.WaitGroup
}

// NewBus creates a bus buffering up to 256 pending events.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		events: make(chan domain.Event, 256),
	}
}

// Subscribe registers a handler. Call before Start.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Emit enqueues an event without blocking. A full buffer drops the event.
func (b *Bus) Emit(event domain.Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn("event buffer full, dropping event",
			"kind", string(event.Kind),
			"title", event.TitleName)
	}
}

// Start runs the dispatch loop until ctx is canceled.
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case event := <-b.events:
				b.dispatch(ctx, event)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Wait blocks until the dispatch loop has exited.
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) dispatch(ctx context.Context, event domain.Event) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, event)
	}
}
