// File: internal/domain/model/payment.go
package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // attempt recorded; awaiting gateway outcome
	PaymentStatusSucceeded PaymentStatus = "succeeded" // verified OK at provider
	PaymentStatusFailed    PaymentStatus = "failed"    // provider reported failure
	PaymentStatusRefunded  PaymentStatus = "refunded"  // refund issued for a succeeded payment
)

// Payment records one payment attempt against a package. The
// (Gateway, GatewayRef) pair is unique and is the idempotency boundary for
// external notifications: no two rows may share it.
type Payment struct {
	ID         string // UUID
	UserID     string // opaque user identity
	PackageID  string // UUID -> PaymentPackage version row
	OrderRef   string // our sortable order reference (ORD...)
	Amount     int64  // minor units
	Currency   string
	Gateway    string // e.g. "vnpay", "stripe"
	GatewayRef string // provider transaction reference (idempotency key)
	Status     PaymentStatus
	FailReason string
	RawPayload []byte // opaque gateway payload, stored for audit/replay
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ProcessedAt *time.Time // set when a terminal status is applied
	// Link to the subscription granted/extended by this payment, if any.
	SubscriptionID *string
}

// Terminal reports whether the payment can no longer change outcome
// (refunded rows stay mutable only for audit metadata).
func (p *Payment) Terminal() bool {
	return p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusFailed || p.Status == PaymentStatusRefunded
}
