// File: internal/domain/model/webhook_event.go
package model

import "time"

type WebhookResult string

const (
	WebhookResultApplied  WebhookResult = "applied"  // drove a state transition
	WebhookResultReplayed WebhookResult = "replayed" // duplicate of an applied event
	WebhookResultIgnored  WebhookResult = "ignored"  // unknown/unsupported event type
)

// WebhookEvent is the audit row stored for every verified gateway
// notification, keyed for dedup inspection by (Gateway, GatewayRef).
type WebhookEvent struct {
	ID         string // UUID
	Gateway    string
	EventType  string
	GatewayRef string
	PaymentID  *string
	Result     WebhookResult
	RawBody    []byte
	ReceivedAt time.Time
}
