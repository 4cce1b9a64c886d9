// File: internal/infra/db/postgres/postgres_webhook_event_repo.go
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

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

// webhookEventRepo is the append-only audit trail of received webhooks.
type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

const webhookEventColumns = `id, gateway, event_type, gateway_ref, payment_id, result, raw_body, received_at`

func (r *webhookEventRepo) Save(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) error {
	const q = `
INSERT INTO webhook_events (` + webhookEventColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
);`
	_, err := execSQL(ctx, r.pool, tx, q, ev.ID, ev.Gateway, ev.EventType, ev.GatewayRef, ev.PaymentID, ev.Result, ev.RawBody, ev.ReceivedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *webhookEventRepo) ListByGatewayRef(ctx context.Context, tx repository.Tx, gateway, gatewayRef string) ([]*model.WebhookEvent, error) {
	const q = `SELECT ` + webhookEventColumns + ` FROM webhook_events WHERE gateway=$1 AND gateway_ref=$2 ORDER BY received_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, gateway, gatewayRef)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.WebhookEvent
	for rows.Next() {
		ev := &model.WebhookEvent{}
		if err := rows.Scan(&ev.ID, &ev.Gateway, &ev.EventType, &ev.GatewayRef, &ev.PaymentID, &ev.Result, &ev.RawBody, &ev.ReceivedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, ev)
	}
	return out, nil
}
