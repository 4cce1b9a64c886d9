// File: internal/infra/sched/payment_reconciler.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"recruitment-billing/internal/infra/redis"
	"recruitment-billing/internal/usecase"
)

// PaymentReconciler periodically fails pending payments that never received
// a gateway notification. This covers dropped webhooks and processes that
// crashed between charge and confirmation.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	locker     redis.Locker
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to time out
	log        *zerolog.Logger
}

const reconcileLockKey = "billing:sweep:reconcile"

func NewPaymentReconciler(uc usecase.PaymentUseCase, locker redis.Locker, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{uc: uc, locker: locker, interval: interval, staleAfter: staleAfter, log: &l}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, reconcileLockKey, w.interval)
	if err != nil {
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, reconcileLockKey, token) }()

	n, err := w.uc.ReconcileStalePending(ctx, w.staleAfter, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("stale-pending scan error")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("stale pending payments reconciled")
	}
}
