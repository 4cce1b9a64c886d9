// File: internal/usecase/webhook_uc.go
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

var _ WebhookUseCase = (*webhookUC)(nil)

// WebhookUseCase reconciles asynchronous gateway notifications with the
// payment ledger and subscription state. Verification happens before any
// parsing; the payment mark and the subscription transition commit in one
// transaction; domain events publish only after that commit.
type WebhookUseCase interface {
	Handle(ctx context.Context, gatewayName, signatureHeader string, rawBody []byte) (*model.WebhookEvent, error)
}

type webhookUC struct {
	gateways    map[string]adapter.PaymentGateway
	payments    PaymentUseCase
	subs        SubscriptionUseCase
	paymentRepo repository.PaymentRepository
	subRepo     repository.SubscriptionRepository
	pkgs        repository.PackageRepository
	audit       repository.WebhookEventRepository
	tm          repository.TransactionManager
	events      adapter.EventPublisher
	log         *zerolog.Logger
	now         func() time.Time
}

func NewWebhookUseCase(
	gateways map[string]adapter.PaymentGateway,
	payments PaymentUseCase,
	subs SubscriptionUseCase,
	paymentRepo repository.PaymentRepository,
	subRepo repository.SubscriptionRepository,
	pkgs repository.PackageRepository,
	audit repository.WebhookEventRepository,
	tm repository.TransactionManager,
	events adapter.EventPublisher,
	logger *zerolog.Logger,
) *webhookUC {
	l := logger.With().Str("component", "WebhookUC").Logger()
	return &webhookUC{
		gateways:    gateways,
		payments:    payments,
		subs:        subs,
		paymentRepo: paymentRepo,
		subRepo:     subRepo,
		pkgs:        pkgs,
		audit:       audit,
		tm:          tm,
		events:      events,
		log:         &l,
		now:         time.Now,
	}
}

func (uc *webhookUC) Handle(ctx context.Context, gatewayName, signatureHeader string, rawBody []byte) (*model.WebhookEvent, error) {
	gw, ok := uc.gateways[gatewayName]
	if !ok {
		return nil, domain.NewValidation("gateway", "unsupported gateway "+gatewayName)
	}
	if err := gw.VerifyWebhook(signatureHeader, rawBody); err != nil {
		uc.log.Warn().Err(err).Str("gateway", gatewayName).Msg("webhook signature rejected")
		return nil, domain.NewWebhookVerification(gatewayName)
	}
	n, err := gw.ParseWebhook(rawBody)
	if err != nil {
		return nil, domain.NewProcessing("WEBHOOK_PARSE", "cannot parse webhook body", err)
	}

	ev := &model.WebhookEvent{
		ID:         uuid.NewString(),
		Gateway:    gatewayName,
		EventType:  n.EventType,
		GatewayRef: n.GatewayRef,
		RawBody:    rawBody,
		ReceivedAt: uc.now(),
	}

	if n.Outcome == adapter.OutcomeUnknown {
		ev.Result = model.WebhookResultIgnored
		if err := uc.audit.Save(ctx, repository.NoTX, ev); err != nil {
			return nil, err
		}
		return ev, nil
	}

	var pending []model.DomainEvent
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		pending = pending[:0]

		userID, packageID, sub, err := uc.resolveContext(ctx, tx, gatewayName, n)
		if err != nil {
			return err
		}
		if userID != "" {
			if err := uc.tm.LockKey(ctx, tx, userID); err != nil {
				return err
			}
		}

		switch n.Outcome {
		case adapter.OutcomeSubscriptionCancelled:
			return uc.applyCancellation(ctx, tx, n, sub, ev, &pending)
		default:
			return uc.applyPaymentOutcome(ctx, tx, gatewayName, n, userID, packageID, ev, &pending)
		}
	})
	if err != nil {
		return nil, err
	}

	for _, de := range pending {
		uc.events.Publish(ctx, de)
	}
	return ev, nil
}

// resolveContext locates the user the notification concerns, so the advisory
// lock is taken before any mutation. Checkout events resolve through the
// ledger; recurring events through the provider subscription id.
func (uc *webhookUC) resolveContext(ctx context.Context, tx repository.Tx, gateway string, n *adapter.Notification) (userID, packageID string, sub *model.Subscription, err error) {
	if n.GatewaySubID != "" {
		sub, err = uc.subs.FindByGatewaySubID(ctx, tx, n.GatewaySubID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return "", "", nil, nil
			}
			return "", "", nil, err
		}
		return sub.UserID, sub.PackageID, sub, nil
	}
	p, err := uc.findLedgerRow(ctx, tx, gateway, n)
	if err != nil || p == nil {
		return "", "", nil, err
	}
	return p.UserID, p.PackageID, nil, nil
}

func (uc *webhookUC) findLedgerRow(ctx context.Context, tx repository.Tx, gateway string, n *adapter.Notification) (*model.Payment, error) {
	p, err := uc.paymentRepo.FindByGatewayRef(ctx, tx, gateway, n.GatewayRef)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if n.OrderRef == "" {
		return nil, nil
	}
	p, err = uc.paymentRepo.FindByOrderRef(ctx, tx, n.OrderRef)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *webhookUC) applyPaymentOutcome(ctx context.Context, tx repository.Tx, gateway string, n *adapter.Notification, userID, packageID string, ev *model.WebhookEvent, pending *[]model.DomainEvent) error {
	p, _, err := uc.payments.EnsureForNotification(ctx, tx, gateway, n, userID, packageID)
	if err != nil {
		return err
	}
	ev.PaymentID = &p.ID

	if p.Terminal() {
		ev.Result = model.WebhookResultReplayed
		uc.log.Info().Str("payment_id", p.ID).Str("gateway_ref", n.GatewayRef).Msg("webhook replay ignored")
		return uc.audit.Save(ctx, tx, ev)
	}

	if n.Outcome == adapter.OutcomeSucceeded && n.Amount > 0 && p.Amount > 0 && n.Amount != p.Amount {
		applied, err := uc.payments.MarkFailed(ctx, tx, p, "amount mismatch", ev.RawBody)
		if err != nil {
			return err
		}
		ev.Result = model.WebhookResultApplied
		if !applied {
			ev.Result = model.WebhookResultReplayed
		}
		uc.log.Warn().
			Str("payment_id", p.ID).
			Int64("expected", p.Amount).
			Int64("got", n.Amount).
			Msg("webhook amount mismatch")
		return uc.audit.Save(ctx, tx, ev)
	}

	switch n.Outcome {
	case adapter.OutcomeSucceeded:
		applied, err := uc.payments.MarkSucceeded(ctx, tx, p, ev.RawBody)
		if err != nil {
			return err
		}
		if !applied {
			ev.Result = model.WebhookResultReplayed
			return uc.audit.Save(ctx, tx, ev)
		}
		pkg, err := uc.pkgs.FindByID(ctx, tx, p.PackageID)
		if err != nil {
			return err
		}
		var gwSubID *string
		if n.GatewaySubID != "" {
			s := n.GatewaySubID
			gwSubID = &s
		}
		sub, subEvents, err := uc.subs.GrantOrExtend(ctx, tx, p.UserID, pkg, gwSubID)
		if err != nil {
			return err
		}
		if err := uc.paymentRepo.SetSubscriptionID(ctx, tx, p.ID, sub.ID); err != nil {
			return err
		}
		*pending = append(*pending, model.DomainEvent{
			Type:        model.EventPaymentSucceeded,
			UserID:      p.UserID,
			PaymentID:   p.ID,
			Gateway:     p.Gateway,
			PackageCode: pkg.Code,
			Amount:      p.Amount,
			Currency:    p.Currency,
			OccurredAt:  uc.now(),
		})
		*pending = append(*pending, subEvents...)
		ev.Result = model.WebhookResultApplied
		return uc.audit.Save(ctx, tx, ev)

	case adapter.OutcomeFailed:
		applied, err := uc.payments.MarkFailed(ctx, tx, p, n.FailReason, ev.RawBody)
		if err != nil {
			return err
		}
		if !applied {
			ev.Result = model.WebhookResultReplayed
			return uc.audit.Save(ctx, tx, ev)
		}
		*pending = append(*pending, model.DomainEvent{
			Type:       model.EventPaymentFailed,
			UserID:     p.UserID,
			PaymentID:  p.ID,
			Gateway:    p.Gateway,
			Amount:     p.Amount,
			Currency:   p.Currency,
			OccurredAt: uc.now(),
		})
		// Dunning applies only when the user holds a subscription in this
		// package family; a failed first checkout has nothing to advance.
		pkg, err := uc.pkgs.FindByID(ctx, tx, p.PackageID)
		if err != nil {
			return err
		}
		_, subEvents, err := uc.subs.RecordBillingFailure(ctx, tx, p.UserID, pkg.PackageType)
		if err != nil {
			if domain.KindOf(err) != domain.KindSubscriptionNotFound {
				return err
			}
		} else {
			*pending = append(*pending, subEvents...)
		}
		ev.Result = model.WebhookResultApplied
		return uc.audit.Save(ctx, tx, ev)
	}
	ev.Result = model.WebhookResultIgnored
	return uc.audit.Save(ctx, tx, ev)
}

func (uc *webhookUC) applyCancellation(ctx context.Context, tx repository.Tx, n *adapter.Notification, sub *model.Subscription, ev *model.WebhookEvent, pending *[]model.DomainEvent) error {
	if sub == nil {
		ev.Result = model.WebhookResultIgnored
		uc.log.Warn().Str("gateway_sub_id", n.GatewaySubID).Msg("cancellation for unknown subscription")
		return uc.audit.Save(ctx, tx, ev)
	}
	if sub.IsTerminal() {
		ev.Result = model.WebhookResultReplayed
		return uc.audit.Save(ctx, tx, ev)
	}
	next, err := sub.Cancel(uc.now())
	if err != nil {
		return err
	}
	if err := uc.subRepo.Save(ctx, tx, next); err != nil {
		return err
	}
	*pending = append(*pending, model.DomainEvent{
		Type:           model.EventSubscriptionCancelled,
		UserID:         next.UserID,
		SubscriptionID: next.ID,
		OccurredAt:     uc.now(),
	})
	ev.Result = model.WebhookResultApplied
	return uc.audit.Save(ctx, tx, ev)
}
