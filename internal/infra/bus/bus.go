// File: internal/infra/bus/bus.go
package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/adapter"
	"recruitment-billing/internal/infra/metrics"
)

var _ adapter.EventPublisher = (*EventBus)(nil)

// Handler consumes one committed domain event.
type Handler func(ctx context.Context, ev model.DomainEvent)

// EventBus is the in-process fan-out for committed domain events. Handlers
// run on the publisher's goroutine in subscription order; anything slow
// must hand off to the worker pool itself.
type EventBus struct {
	mu       sync.RWMutex
	handlers []Handler
	log      *zerolog.Logger
}

func New(logger *zerolog.Logger) *EventBus {
	l := logger.With().Str("component", "EventBus").Logger()
	return &EventBus{log: &l}
}

func (b *EventBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *EventBus) Publish(ctx context.Context, ev model.DomainEvent) {
	switch ev.Type {
	case model.EventSubscriptionActivated, model.EventSubscriptionRenewed,
		model.EventSubscriptionPastDue, model.EventSubscriptionCancelled,
		model.EventSubscriptionExpired:
		metrics.IncSubscriptionTransition(string(ev.Type))
	}
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(ev.Type)).
		Str("user_id", ev.UserID).
		Msg("event published")
	for _, h := range handlers {
		h(ctx, ev)
	}
}
