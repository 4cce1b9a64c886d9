// File: internal/domain/ports/adapter/gateway.go
package adapter

import (
	"context"
	"time"
)

// NotificationOutcome classifies what a verified gateway event means for the
// payment lifecycle. Unknown covers event types the core does not model;
// those are acknowledged and ignored, never failed.
type NotificationOutcome string

const (
	OutcomeSucceeded             NotificationOutcome = "succeeded"
	OutcomeFailed                NotificationOutcome = "failed"
	OutcomeSubscriptionCancelled NotificationOutcome = "subscription_cancelled"
	OutcomeUnknown               NotificationOutcome = "unknown"
)

// Notification is the provider-agnostic view of one webhook event.
type Notification struct {
	EventType  string // provider's own event name, kept for the audit row
	Outcome    NotificationOutcome
	GatewayRef string // provider transaction reference (idempotency key)
	OrderRef   string // our ORD... reference when the provider echoes it
	// GatewaySubID identifies the provider-side recurring subscription for
	// renewal/cancellation events.
	GatewaySubID string
	Amount       int64
	Currency     string
	FailReason   string
}

// RefundResult captures a minimal, provider-agnostic result of a refund.
type RefundResult struct {
	RefID  string
	Status string
	Amount int64
	At     time.Time
}

// PaymentGateway is the port for payment providers.
//
// VerifyWebhook must be called on the raw body before any parsing so the
// core never acts on unauthenticated input.
type PaymentGateway interface {
	Name() string

	// Charge starts a payment against a stored payment method token and
	// returns the provider transaction reference. The outcome arrives later
	// through the webhook channel.
	Charge(ctx context.Context, methodToken string, amount int64, currency, orderRef, description string) (gatewayRef string, err error)

	// VerifyWebhook checks the gateway signature over the raw request body.
	VerifyWebhook(signatureHeader string, rawBody []byte) error
	// ParseWebhook interprets a verified body. Unsupported event types
	// return a Notification with OutcomeUnknown, not an error.
	ParseWebhook(rawBody []byte) (*Notification, error)

	// Refund issues a refund for a settled transaction. Implementations
	// bound the call with the context deadline; transport retries live in
	// the use case, not here.
	Refund(ctx context.Context, gatewayRef string, amount int64, reason string) (RefundResult, error)
}
