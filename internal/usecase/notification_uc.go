// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/adapter"
	"recruitment-billing/internal/domain/ports/repository"
)

var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase turns committed domain events into user notifications.
// Delivery runs on the job queue so a slow provider never blocks payment
// processing; exhausted jobs land in the dead-letter log for operators.
type NotificationUseCase interface {
	// HandleEvent is wired as an event bus subscriber.
	HandleEvent(ctx context.Context, ev model.DomainEvent)
	DeadLetters(ctx context.Context, limit int) ([]*model.NotificationRecord, error)
}

type notificationUC struct {
	sender adapter.NotificationSender
	queue  adapter.JobQueue
	logRep repository.NotificationLogRepository
	log    *zerolog.Logger
	now    func() time.Time
}

func NewNotificationUseCase(
	sender adapter.NotificationSender,
	queue adapter.JobQueue,
	logRep repository.NotificationLogRepository,
	logger *zerolog.Logger,
) *notificationUC {
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{sender: sender, queue: queue, logRep: logRep, log: &l, now: time.Now}
}

func (uc *notificationUC) HandleEvent(ctx context.Context, ev model.DomainEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		uc.log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("event payload marshal failed")
		return
	}
	job := adapter.Job{
		Kind: "notify:" + string(ev.Type),
		Run: func(ctx context.Context) error {
			if err := uc.sender.Send(ctx, ev.UserID, string(ev.Type), payload); err != nil {
				return err
			}
			rec := &model.NotificationRecord{
				ID:        uuid.NewString(),
				UserID:    ev.UserID,
				EventType: ev.Type,
				Payload:   payload,
				Status:    model.NotificationStatusSent,
				Attempts:  1,
				CreatedAt: uc.now(),
			}
			if err := uc.logRep.Save(ctx, repository.NoTX, rec); err != nil {
				// Delivery already happened; log only, never retry the send.
				uc.log.Error().Err(err).Str("user_id", ev.UserID).Msg("notification log write failed")
			}
			return nil
		},
		OnDead: func(ctx context.Context, attempts int, lastErr error) {
			uc.deadLetter(ctx, ev, payload, attempts, lastErr)
		},
	}
	if err := uc.queue.Submit(job); err != nil {
		// A saturated queue never ran the job; dead-letter it directly so
		// the operator ledger stays complete.
		uc.deadLetter(ctx, ev, payload, 0, err)
	}
}

func (uc *notificationUC) deadLetter(ctx context.Context, ev model.DomainEvent, payload []byte, attempts int, cause error) {
	rec := &model.NotificationRecord{
		ID:        uuid.NewString(),
		UserID:    ev.UserID,
		EventType: ev.Type,
		Payload:   payload,
		Status:    model.NotificationStatusDeadLetter,
		Attempts:  attempts,
		LastError: cause.Error(),
		CreatedAt: uc.now(),
	}
	if err := uc.logRep.Save(ctx, repository.NoTX, rec); err != nil {
		uc.log.Error().Err(err).Str("user_id", ev.UserID).Msg("dead-letter write failed")
	}
	uc.log.Warn().
		Str("user_id", ev.UserID).
		Str("event_type", string(ev.Type)).
		Int("attempts", attempts).
		Err(cause).
		Msg("notification moved to dead letter")
}

func (uc *notificationUC) DeadLetters(ctx context.Context, limit int) ([]*model.NotificationRecord, error) {
	return uc.logRep.ListDeadLetters(ctx, repository.NoTX, limit)
}
