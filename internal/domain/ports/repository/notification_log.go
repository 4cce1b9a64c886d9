// File: internal/domain/ports/repository/notification_log.go
package repository

import (
	"context"

	"recruitment-billing/internal/domain/model"
)

// NotificationLogRepository persists delivery outcomes, including the
// dead-letter rows written when a job exhausts its retries.
type NotificationLogRepository interface {
	Save(ctx context.Context, tx Tx, rec *model.NotificationRecord) error
	ListDeadLetters(ctx context.Context, tx Tx, limit int) ([]*model.NotificationRecord, error)
}
