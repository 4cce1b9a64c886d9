// File: internal/infra/sched/dunning_worker.go
package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"recruitment-billing/internal/infra/metrics"
	"recruitment-billing/internal/infra/redis"
	"recruitment-billing/internal/usecase"
)

// DunningWorker runs the expiry sweep on a cron schedule: past_due
// subscriptions whose grace elapsed and lapsed non-recurring ones move to
// expired. The redis lock keeps the sweep single-flight across replicas.
type DunningWorker struct {
	schedule string
	subUC    usecase.SubscriptionUseCase
	locker   redis.Locker
	cron     *cron.Cron
	log      *zerolog.Logger
}

const dunningLockKey = "billing:sweep:dunning"

func NewDunningWorker(schedule string, subUC usecase.SubscriptionUseCase, locker redis.Locker, logger *zerolog.Logger) *DunningWorker {
	l := logger.With().Str("component", "DunningWorker").Logger()
	return &DunningWorker{
		schedule: schedule,
		subUC:    subUC,
		locker:   locker,
		cron:     cron.New(),
		log:      &l,
	}
}

func (w *DunningWorker) Start(ctx context.Context) error {
	w.log.Info().Str("schedule", w.schedule).Msg("starting dunning worker")
	_, err := w.cron.AddFunc(w.schedule, func() { w.tick(ctx) })
	if err != nil {
		return err
	}
	w.cron.Start()
	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

func (w *DunningWorker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.log.Info().Msg("dunning worker stopped")
}

func (w *DunningWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, dunningLockKey, 10*time.Minute)
	if err != nil {
		w.log.Debug().Msg("dunning sweep held by another instance")
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, dunningLockKey, token) }()

	n, err := w.subUC.ExpireDue(ctx, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("dunning sweep error")
		return
	}
	if n > 0 {
		metrics.AddExpiredBySweep(n)
		w.log.Info().Int("count", n).Msg("subscriptions expired by sweep")
	}
}
