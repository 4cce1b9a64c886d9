// File: internal/domain/model/event.go
package model

import "time"

type EventType string

const (
	EventPaymentSucceeded     EventType = "payment.succeeded"
	EventPaymentFailed        EventType = "payment.failed"
	EventPaymentRefunded      EventType = "payment.refunded"
	EventSubscriptionActivated EventType = "subscription.activated"
	EventSubscriptionRenewed   EventType = "subscription.renewed"
	EventSubscriptionPastDue   EventType = "subscription.past_due"
	EventSubscriptionCancelled EventType = "subscription.cancelled"
	EventSubscriptionExpired   EventType = "subscription.expired"
)

// DomainEvent is emitted after a committed transition. Collaborators
// (notifications, quota caches) subscribe explicitly; nothing fires as a
// side effect of persistence itself.
type DomainEvent struct {
	Type           EventType
	UserID         string
	SubscriptionID string
	PaymentID      string
	Gateway        string
	PackageCode    string
	Amount         int64
	Currency       string
	RetryCount     int
	GraceEndsAt    *time.Time
	OccurredAt     time.Time
}
