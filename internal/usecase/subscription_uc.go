// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/adapter"
	"recruitment-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase owns every transition on subscription rows. The
// tx-scoped methods (GrantOrExtend, RecordBillingFailure, CancelByGatewaySubID)
// are called by the webhook reconciler inside its transaction so payment and
// subscription state commit together; the remaining methods open their own
// transaction. All paths serialize on a per-user advisory lock.
type SubscriptionUseCase interface {
	GrantOrExtend(ctx context.Context, tx repository.Tx, userID string, pkg *model.PaymentPackage, gatewaySubID *string) (*model.Subscription, []model.DomainEvent, error)
	RecordBillingFailure(ctx context.Context, tx repository.Tx, userID string, pkgType model.PackageType) (*model.Subscription, []model.DomainEvent, error)
	FindByGatewaySubID(ctx context.Context, tx repository.Tx, gatewaySubID string) (*model.Subscription, error)

	Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	Current(ctx context.Context, userID string, pkgType model.PackageType) (*model.Subscription, error)
	// ExpireDue applies the scheduler transition to every due row and
	// returns how many rows expired. Safe to re-run: rows already expired
	// by a concurrent tick or a late webhook are skipped.
	ExpireDue(ctx context.Context, now time.Time) (int, error)

	// CheckQuota is side-effect free: it reports usage and limit for the
	// quota type, falling back to the free tier when the user holds no
	// usable subscription. Exhausted usage (current >= limit) fails with
	// QuotaExceeded alongside the numbers.
	CheckQuota(ctx context.Context, userID string, pkgType model.PackageType, quotaType string) (current, limit int, err error)
	// ConsumeQuota verifies and increments usage atomically.
	ConsumeQuota(ctx context.Context, userID string, pkgType model.PackageType, quotaType string, amount int) error
}

type subscriptionUC struct {
	subs   repository.SubscriptionRepository
	pkgs   repository.PackageRepository
	tm     repository.TransactionManager
	events adapter.EventPublisher
	policy model.DunningPolicy
	log    *zerolog.Logger
	now    func() time.Time
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	pkgs repository.PackageRepository,
	tm repository.TransactionManager,
	events adapter.EventPublisher,
	policy model.DunningPolicy,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{
		subs:   subs,
		pkgs:   pkgs,
		tm:     tm,
		events: events,
		policy: policy,
		log:    &l,
		now:    time.Now,
	}
}

// GrantOrExtend applies a successful payment: creates the subscription when
// the user has none in this package family, otherwise extends/recovers the
// existing one. Caller must already hold the user lock via LockKey.
func (uc *subscriptionUC) GrantOrExtend(ctx context.Context, tx repository.Tx, userID string, pkg *model.PaymentPackage, gatewaySubID *string) (*model.Subscription, []model.DomainEvent, error) {
	now := uc.now()
	cur, err := uc.subs.FindCurrentByUserAndType(ctx, tx, userID, pkg.PackageType)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	if cur == nil {
		sub, err := model.NewSubscription(uuid.NewString(), userID, pkg, gatewaySubID, now)
		if err != nil {
			return nil, nil, err
		}
		if err := uc.subs.Save(ctx, tx, sub); err != nil {
			return nil, nil, err
		}
		ev := uc.event(model.EventSubscriptionActivated, sub, pkg)
		return sub, []model.DomainEvent{ev}, nil
	}

	wasPastDue := cur.Status == model.SubscriptionStatusPastDue
	next, err := cur.ApplyPaymentSucceeded(pkg, now)
	if err != nil {
		return nil, nil, err
	}
	if gatewaySubID != nil {
		next.GatewaySubscriptionID = gatewaySubID
	}
	if err := uc.subs.Save(ctx, tx, next); err != nil {
		return nil, nil, err
	}
	evType := model.EventSubscriptionRenewed
	if wasPastDue {
		uc.log.Info().Str("subscription_id", next.ID).Msg("subscription recovered from past_due")
	}
	return next, []model.DomainEvent{uc.event(evType, next, pkg)}, nil
}

// RecordBillingFailure advances dunning on the user's current subscription.
// Caller must already hold the user lock.
func (uc *subscriptionUC) RecordBillingFailure(ctx context.Context, tx repository.Tx, userID string, pkgType model.PackageType) (*model.Subscription, []model.DomainEvent, error) {
	now := uc.now()
	cur, err := uc.subs.FindCurrentByUserAndType(ctx, tx, userID, pkgType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.NewSubscriptionNotFound(userID)
		}
		return nil, nil, err
	}
	next, err := cur.ApplyPaymentFailed(uc.policy, now)
	if err != nil {
		return nil, nil, err
	}
	if err := uc.subs.Save(ctx, tx, next); err != nil {
		return nil, nil, err
	}
	evType := model.EventSubscriptionPastDue
	if next.Status == model.SubscriptionStatusCancelled {
		evType = model.EventSubscriptionCancelled
	}
	return next, []model.DomainEvent{uc.event(evType, next, nil)}, nil
}

func (uc *subscriptionUC) FindByGatewaySubID(ctx context.Context, tx repository.Tx, gatewaySubID string) (*model.Subscription, error) {
	return uc.subs.FindByGatewaySubID(ctx, tx, gatewaySubID)
}

// Cancel applies an explicit user cancellation to a subscription the user
// owns.
func (uc *subscriptionUC) Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	var out *model.Subscription
	var ev model.DomainEvent
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.tm.LockKey(ctx, tx, userID); err != nil {
			return err
		}
		sub, err := uc.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewSubscriptionNotFound(userID)
			}
			return err
		}
		if sub.UserID != userID {
			return domain.NewSubscriptionNotFound(userID)
		}
		next, err := sub.Cancel(uc.now())
		if err != nil {
			return err
		}
		if err := uc.subs.Save(ctx, tx, next); err != nil {
			return err
		}
		out = next
		ev = uc.event(model.EventSubscriptionCancelled, next, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.events.Publish(ctx, ev)
	return out, nil
}

func (uc *subscriptionUC) Current(ctx context.Context, userID string, pkgType model.PackageType) (*model.Subscription, error) {
	sub, err := uc.subs.FindCurrentByUserAndType(ctx, repository.NoTX, userID, pkgType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewSubscriptionNotFound(userID)
		}
		return nil, err
	}
	return sub, nil
}

func (uc *subscriptionUC) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := uc.subs.ListDueForExpiry(ctx, repository.NoTX, now, 500)
	if err != nil {
		return 0, err
	}
	expired := 0
	var pending []model.DomainEvent
	for _, candidate := range due {
		id := candidate.ID
		// Staged inside the closure, counted only once the tx commits.
		var staged *model.DomainEvent
		err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := uc.tm.LockKey(ctx, tx, candidate.UserID); err != nil {
				return err
			}
			// Re-read under the lock: a webhook may have recovered or a
			// concurrent tick may have expired this row meanwhile.
			sub, err := uc.subs.FindByID(ctx, tx, id)
			if err != nil {
				return err
			}
			if sub.IsTerminal() {
				return nil
			}
			next, err := sub.Expire(now)
			if err != nil {
				return err
			}
			if next.Status != model.SubscriptionStatusExpired {
				return nil
			}
			if err := uc.subs.Save(ctx, tx, next); err != nil {
				return err
			}
			ev := uc.event(model.EventSubscriptionExpired, next, nil)
			staged = &ev
			return nil
		})
		if err != nil {
			uc.log.Error().Err(err).Str("subscription_id", id).Msg("expiry failed")
			continue
		}
		if staged != nil {
			expired++
			pending = append(pending, *staged)
		}
	}
	for _, ev := range pending {
		uc.events.Publish(ctx, ev)
	}
	return expired, nil
}

func (uc *subscriptionUC) CheckQuota(ctx context.Context, userID string, pkgType model.PackageType, quotaType string) (int, int, error) {
	current, limit, _, _, err := uc.quotaState(ctx, repository.NoTX, userID, pkgType, quotaType)
	if err != nil {
		return 0, 0, err
	}
	if limit != model.QuotaUnlimited && current >= limit {
		return current, limit, domain.NewQuotaExceeded(quotaType, current, limit)
	}
	return current, limit, nil
}

func (uc *subscriptionUC) ConsumeQuota(ctx context.Context, userID string, pkgType model.PackageType, quotaType string, amount int) error {
	if amount <= 0 {
		return domain.NewValidation("amount", "amount must be positive")
	}
	return uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.tm.LockKey(ctx, tx, userID); err != nil {
			return err
		}
		current, limit, sub, _, err := uc.quotaState(ctx, tx, userID, pkgType, quotaType)
		if err != nil {
			return err
		}
		if limit != model.QuotaUnlimited && current+amount > limit {
			return domain.NewQuotaExceeded(quotaType, current, limit)
		}
		if sub == nil {
			// Free-tier usage has no subscription row to count against.
			return domain.NewSubscriptionNotFound(userID)
		}
		return uc.subs.Save(ctx, tx, sub.ConsumeQuota(quotaType, amount, uc.now()))
	})
}

// quotaState resolves (current, limit) for a quota type. An inactive
// subscription grants nothing; the free-tier package, when configured,
// provides the fallback limit.
func (uc *subscriptionUC) quotaState(ctx context.Context, tx repository.Tx, userID string, pkgType model.PackageType, quotaType string) (int, int, *model.Subscription, *model.PaymentPackage, error) {
	now := uc.now()
	sub, err := uc.subs.FindCurrentByUserAndType(ctx, tx, userID, pkgType)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, 0, nil, nil, err
	}
	if sub != nil && sub.IsActive(now) {
		pkg, err := uc.pkgs.FindByID(ctx, tx, sub.PackageID)
		if err != nil {
			return 0, 0, nil, nil, err
		}
		return sub.QuotaUsed[quotaType], pkg.QuotaLimit(quotaType), sub, pkg, nil
	}
	free, err := uc.pkgs.FindFreeTier(ctx, tx, pkgType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, 0, nil, nil, nil
		}
		return 0, 0, nil, nil, err
	}
	current := 0
	if sub != nil {
		current = sub.QuotaUsed[quotaType]
	}
	return current, free.QuotaLimit(quotaType), sub, free, nil
}

func (uc *subscriptionUC) event(t model.EventType, sub *model.Subscription, pkg *model.PaymentPackage) model.DomainEvent {
	ev := model.DomainEvent{
		Type:           t,
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		RetryCount:     sub.PaymentRetryCount,
		GraceEndsAt:    sub.GracePeriodEnds,
		OccurredAt:     uc.now(),
	}
	if pkg != nil {
		ev.PackageCode = pkg.Code
		ev.Amount = pkg.Price
		ev.Currency = pkg.Currency
	}
	return ev
}
