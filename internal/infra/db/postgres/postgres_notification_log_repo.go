// File: internal/infra/db/postgres/postgres_notification_log_repo.go
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/repository"
)

var _ repository.NotificationLogRepository = (*notificationLogRepo)(nil)

type notificationLogRepo struct{ pool *pgxpool.Pool }

func NewNotificationLogRepo(pool *pgxpool.Pool) *notificationLogRepo {
	return &notificationLogRepo{pool: pool}
}

const notificationColumns = `id, user_id, event_type, payload, status, attempts, last_error, created_at`

func (r *notificationLogRepo) Save(ctx context.Context, tx repository.Tx, rec *model.NotificationRecord) error {
	const q = `
INSERT INTO notification_log (` + notificationColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
);`
	_, err := execSQL(ctx, r.pool, tx, q, rec.ID, rec.UserID, rec.EventType, rec.Payload, rec.Status, rec.Attempts, rec.LastError, rec.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *notificationLogRepo) ListDeadLetters(ctx context.Context, tx repository.Tx, limit int) ([]*model.NotificationRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + notificationColumns + ` FROM notification_log WHERE status='dead_letter' ORDER BY created_at DESC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.NotificationRecord
	for rows.Next() {
		rec := &model.NotificationRecord{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.EventType, &rec.Payload, &rec.Status, &rec.Attempts, &rec.LastError, &rec.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rec)
	}
	return out, nil
}
