// File: internal/domain/ports/repository/payment.go
package repository

import (
	"context"
	"time"

	"recruitment-billing/internal/domain/model"
)

// PaymentRepository is the port for the payment ledger. The table carries a
// unique constraint on (gateway, gateway_ref); Insert surfaces a conflict as
// domain.ErrAlreadyExists so callers can race on the constraint instead of
// read-then-write.
type PaymentRepository interface {
	// Insert creates a new attempt row; it never updates an existing one.
	Insert(ctx context.Context, tx Tx, p *model.Payment) error
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// FindByGatewayRef resolves the idempotency key; locks the row when
	// called inside a transaction.
	FindByGatewayRef(ctx context.Context, tx Tx, gateway, gatewayRef string) (*model.Payment, error)
	FindByOrderRef(ctx context.Context, tx Tx, orderRef string) (*model.Payment, error)
	// UpdateStatusIf transitions status only when the current status is one
	// of from; reports whether a row changed. This is the CAS that makes
	// terminal marks idempotent under webhook re-delivery.
	UpdateStatusIf(ctx context.Context, tx Tx, id string, from []model.PaymentStatus, to model.PaymentStatus, failReason string, rawPayload []byte, processedAt *time.Time) (bool, error)
	SetSubscriptionID(ctx context.Context, tx Tx, paymentID, subscriptionID string) error
	// ListPendingOlderThan feeds the stale-pending reconciler.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	// SumSucceededByPeriod totals revenue for "week"|"month"|"year".
	SumSucceededByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}
