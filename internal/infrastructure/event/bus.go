package event

import (
	"context"
	"sync"

	"github.com/crm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus dispatches events to in-process handlers. It is the
// publisher used when no broker is configured; with no subscribers it
// drops events.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler // event type -> handlers
	wildcard []shared.EventHandler
	logger   *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]shared.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the given event types, or for every
// event when no type is given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
		return
	}
	for _, eventType := range eventTypes {
		b.handlers[eventType] = append(b.handlers[eventType], handler)
	}
}

// Publish runs the handlers of every event synchronously. Handler errors
// and panics are logged and do not stop the remaining handlers.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.handlersFor(event.Type) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("event_type", event.Type),
					zap.String("event_id", event.ID.String()),
					zap.Error(err))
			}
		}
	}
	return nil
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	handlers := make([]shared.EventHandler, 0, len(b.handlers[eventType])+len(b.wildcard))
	handlers = append(handlers, b.handlers[eventType]...)
	return append(handlers, b.wildcard...)
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) error {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event_type", event.Type),
				zap.Any("panic", r))
		}
	}()
	return handler(ctx, event)
}

var _ shared.EventPublisher = (*InMemoryEventBus)(nil)
