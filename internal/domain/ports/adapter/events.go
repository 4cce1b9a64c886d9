// File: internal/domain/ports/adapter/events.go
package adapter

import (
	"context"

	"recruitment-billing/internal/domain/model"
)

// EventPublisher fans committed domain events out to subscribed
// collaborators. Publish must only be called after the transition that
// produced the event has committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.DomainEvent)
}
