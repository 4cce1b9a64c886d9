// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/adapter"
	"recruitment-billing/internal/domain/ports/repository"
)

var _ PaymentUseCase = (*paymentUC)(nil)

// RetryPolicy bounds gateway-call retries (refunds).
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// PaymentUseCase owns the payment ledger: initiating charges, resolving
// webhook notifications onto ledger rows, terminal marks, refunds and the
// stale-pending sweep.
type PaymentUseCase interface {
	// Purchase initiates a charge for an active paid package and records the
	// pending attempt. The outcome arrives later via webhook.
	Purchase(ctx context.Context, userID, packageCode, gateway, methodToken string) (*model.Payment, error)

	// EnsureForNotification maps a verified gateway notification onto a
	// ledger row inside the caller's transaction: by (gateway, ref) first,
	// then by our order reference, finally by inserting a fresh row for
	// gateway-initiated charges such as renewal invoices. Reports whether a
	// row was created.
	EnsureForNotification(ctx context.Context, tx repository.Tx, gateway string, n *adapter.Notification, fallbackUserID, fallbackPackageID string) (*model.Payment, bool, error)
	// MarkSucceeded / MarkFailed apply the terminal status through the
	// status CAS; a false return means another delivery won the race.
	MarkSucceeded(ctx context.Context, tx repository.Tx, p *model.Payment, rawPayload []byte) (bool, error)
	MarkFailed(ctx context.Context, tx repository.Tx, p *model.Payment, reason string, rawPayload []byte) (bool, error)

	// Refund issues a gateway refund for a succeeded payment and marks the
	// row refunded. Gateway calls retry with backoff up to the policy bound.
	Refund(ctx context.Context, paymentID, reason string) (*model.Payment, error)

	// ReconcileStalePending fails pending rows older than the threshold so
	// abandoned checkouts do not linger forever. Returns how many rows moved.
	ReconcileStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)

	RevenueByPeriod(ctx context.Context, period string) (int64, error)
	FindByID(ctx context.Context, id string) (*model.Payment, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	pkgs     repository.PackageRepository
	tm       repository.TransactionManager
	gateways map[string]adapter.PaymentGateway
	events   adapter.EventPublisher
	retry    RetryPolicy
	log      *zerolog.Logger
	now      func() time.Time
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	pkgs repository.PackageRepository,
	tm repository.TransactionManager,
	gateways map[string]adapter.PaymentGateway,
	events adapter.EventPublisher,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &paymentUC{
		payments: payments,
		pkgs:     pkgs,
		tm:       tm,
		gateways: gateways,
		events:   events,
		retry:    retry,
		log:      &l,
		now:      time.Now,
	}
}

// NewOrderRef mints a lexically sortable order reference.
func NewOrderRef(now time.Time) string {
	return "ORD" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

func (uc *paymentUC) gateway(name string) (adapter.PaymentGateway, error) {
	gw, ok := uc.gateways[strings.ToLower(name)]
	if !ok {
		return nil, domain.NewValidation("gateway", fmt.Sprintf("unsupported gateway %q", name))
	}
	return gw, nil
}

func (uc *paymentUC) Purchase(ctx context.Context, userID, packageCode, gatewayName, methodToken string) (*model.Payment, error) {
	if userID == "" {
		return nil, domain.NewValidation("user_id", "user id is required")
	}
	gw, err := uc.gateway(gatewayName)
	if err != nil {
		return nil, err
	}
	pkg, err := uc.pkgs.FindByCode(ctx, repository.NoTX, packageCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewInvalidPackage(packageCode)
		}
		return nil, err
	}
	if pkg.IsFree() {
		return nil, domain.NewValidation("package_code", "free packages cannot be purchased")
	}

	now := uc.now()
	p := &model.Payment{
		ID:        uuid.NewString(),
		UserID:    userID,
		PackageID: pkg.ID,
		OrderRef:  NewOrderRef(now),
		Amount:    pkg.Price,
		Currency:  pkg.Currency,
		Gateway:   gw.Name(),
		Status:    model.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ref, err := gw.Charge(ctx, methodToken, p.Amount, p.Currency, p.OrderRef, pkg.Name)
	if err != nil {
		return nil, domain.NewGatewayError(gw.Name(), err)
	}
	p.GatewayRef = ref

	if err := uc.payments.Insert(ctx, repository.NoTX, p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.NewDuplicatePayment(p.Gateway, p.GatewayRef)
		}
		return nil, err
	}
	uc.log.Info().
		Str("payment_id", p.ID).
		Str("order_ref", p.OrderRef).
		Str("gateway", p.Gateway).
		Int64("amount", p.Amount).
		Msg("payment initiated")
	return p, nil
}

func (uc *paymentUC) EnsureForNotification(ctx context.Context, tx repository.Tx, gateway string, n *adapter.Notification, fallbackUserID, fallbackPackageID string) (*model.Payment, bool, error) {
	if n.GatewayRef == "" {
		return nil, false, domain.NewValidation("gateway_ref", "notification carries no transaction reference")
	}
	p, err := uc.payments.FindByGatewayRef(ctx, tx, gateway, n.GatewayRef)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	// Checkout flows echo our order reference; attach the provider ref to
	// the pending row we created at purchase time.
	if n.OrderRef != "" {
		p, err = uc.payments.FindByOrderRef(ctx, tx, n.OrderRef)
		if err == nil {
			if p.GatewayRef == "" {
				p.GatewayRef = n.GatewayRef
				p.UpdatedAt = uc.now()
				if err := uc.payments.Save(ctx, tx, p); err != nil {
					return nil, false, err
				}
			} else if p.GatewayRef != n.GatewayRef {
				return nil, false, domain.NewDuplicatePayment(gateway, n.GatewayRef)
			}
			return p, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
	}

	if fallbackUserID == "" || fallbackPackageID == "" {
		return nil, false, domain.NewProcessing("UNMATCHED_NOTIFICATION",
			fmt.Sprintf("no payment for %s ref %s and no subscription context", gateway, n.GatewayRef), nil)
	}

	// Gateway-initiated charge (recurring renewal): create the row now and
	// let the unique constraint arbitrate concurrent deliveries.
	now := uc.now()
	p = &model.Payment{
		ID:         uuid.NewString(),
		UserID:     fallbackUserID,
		PackageID:  fallbackPackageID,
		OrderRef:   NewOrderRef(now),
		Amount:     n.Amount,
		Currency:   n.Currency,
		Gateway:    gateway,
		GatewayRef: n.GatewayRef,
		Status:     model.PaymentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.payments.Insert(ctx, tx, p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			existing, ferr := uc.payments.FindByGatewayRef(ctx, tx, gateway, n.GatewayRef)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return p, true, nil
}

func (uc *paymentUC) MarkSucceeded(ctx context.Context, tx repository.Tx, p *model.Payment, rawPayload []byte) (bool, error) {
	now := uc.now()
	applied, err := uc.payments.UpdateStatusIf(ctx, tx, p.ID,
		[]model.PaymentStatus{model.PaymentStatusPending},
		model.PaymentStatusSucceeded, "", rawPayload, &now)
	if err != nil {
		return false, err
	}
	if applied {
		p.Status = model.PaymentStatusSucceeded
		p.ProcessedAt = &now
	}
	return applied, nil
}

func (uc *paymentUC) MarkFailed(ctx context.Context, tx repository.Tx, p *model.Payment, reason string, rawPayload []byte) (bool, error) {
	now := uc.now()
	applied, err := uc.payments.UpdateStatusIf(ctx, tx, p.ID,
		[]model.PaymentStatus{model.PaymentStatusPending},
		model.PaymentStatusFailed, reason, rawPayload, &now)
	if err != nil {
		return false, err
	}
	if applied {
		p.Status = model.PaymentStatusFailed
		p.FailReason = reason
		p.ProcessedAt = &now
	}
	return applied, nil
}

func (uc *paymentUC) Refund(ctx context.Context, paymentID, reason string) (*model.Payment, error) {
	p, err := uc.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewRefundError(paymentID, "payment not found")
		}
		return nil, err
	}
	if p.Status != model.PaymentStatusSucceeded {
		return nil, domain.NewRefundError(paymentID, fmt.Sprintf("cannot refund payment in status %s", p.Status))
	}
	gw, err := uc.gateway(p.Gateway)
	if err != nil {
		return nil, err
	}

	var res adapter.RefundResult
	var lastErr error
	for attempt := 1; attempt <= uc.retry.Attempts; attempt++ {
		res, lastErr = gw.Refund(ctx, p.GatewayRef, p.Amount, reason)
		if lastErr == nil {
			break
		}
		uc.log.Warn().Err(lastErr).
			Str("payment_id", p.ID).
			Int("attempt", attempt).
			Msg("refund attempt failed")
		if attempt == uc.retry.Attempts {
			return nil, domain.NewGatewayError(gw.Name(), lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoffDelay(uc.retry.Backoff, attempt)):
		}
	}

	var out *model.Payment
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		applied, err := uc.payments.UpdateStatusIf(ctx, tx, p.ID,
			[]model.PaymentStatus{model.PaymentStatusSucceeded},
			model.PaymentStatusRefunded, reason, nil, nil)
		if err != nil {
			return err
		}
		if !applied {
			return domain.NewRefundError(paymentID, "payment status changed during refund")
		}
		out, err = uc.payments.FindByID(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.events.Publish(ctx, model.DomainEvent{
		Type:       model.EventPaymentRefunded,
		UserID:     out.UserID,
		PaymentID:  out.ID,
		Gateway:    out.Gateway,
		Amount:     out.Amount,
		Currency:   out.Currency,
		OccurredAt: uc.now(),
	})
	uc.log.Info().Str("payment_id", out.ID).Str("refund_id", res.RefID).Msg("payment refunded")
	return out, nil
}

func (uc *paymentUC) ReconcileStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := uc.now().Add(-olderThan)
	stale, err := uc.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, limit)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, p := range stale {
		now := uc.now()
		applied, err := uc.payments.UpdateStatusIf(ctx, repository.NoTX, p.ID,
			[]model.PaymentStatus{model.PaymentStatusPending},
			model.PaymentStatusFailed, "timeout: no gateway confirmation", nil, &now)
		if err != nil {
			uc.log.Error().Err(err).Str("payment_id", p.ID).Msg("stale-pending sweep failed")
			continue
		}
		if applied {
			moved++
		}
	}
	if moved > 0 {
		uc.log.Info().Int("count", moved).Msg("stale pending payments timed out")
	}
	return moved, nil
}

func (uc *paymentUC) RevenueByPeriod(ctx context.Context, period string) (int64, error) {
	switch period {
	case "week", "month", "year":
	default:
		return 0, domain.NewValidation("period", "period must be week, month or year")
	}
	return uc.payments.SumSucceededByPeriod(ctx, repository.NoTX, period)
}

func (uc *paymentUC) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	return uc.payments.FindByID(ctx, repository.NoTX, id)
}

// backoffDelay grows linearly with a little jitter so concurrent retries
// spread out.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	d := base * time.Duration(attempt)
	return d + time.Duration(rand.Int63n(int64(base/2)+1))
}
