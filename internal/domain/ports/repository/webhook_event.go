// File: internal/domain/ports/repository/webhook_event.go
package repository

import (
	"context"

	"recruitment-billing/internal/domain/model"
)

// WebhookEventRepository stores the audit row for every verified gateway
// notification.
type WebhookEventRepository interface {
	Save(ctx context.Context, tx Tx, e *model.WebhookEvent) error
	ListByGatewayRef(ctx context.Context, tx Tx, gateway, gatewayRef string) ([]*model.WebhookEvent, error)
}
