// File: internal/infra/db/postgres/postgres_subscription_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, package_id, package_type, start_date, end_date, status, grace_period_ends, payment_retry_count, cancelled_at, gateway_subscription_id, quota_used, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	var quotaUsed []byte
	if err := row.Scan(&s.ID, &s.UserID, &s.PackageID, &s.PackageType, &s.StartDate, &s.EndDate, &s.Status, &s.GracePeriodEnds, &s.PaymentRetryCount, &s.CancelledAt, &s.GatewaySubscriptionID, &quotaUsed, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.QuotaUsed = map[string]int{}
	if len(quotaUsed) > 0 {
		if err := json.Unmarshal(quotaUsed, &s.QuotaUsed); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return s, nil
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	quotaUsed, err := json.Marshal(s.QuotaUsed)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (id) DO UPDATE SET
  package_id=$3, start_date=$5, end_date=$6, status=$7, grace_period_ends=$8, payment_retry_count=$9, cancelled_at=$10, gateway_subscription_id=$11, quota_used=$12, updated_at=$14;`
	_, err = execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.PackageID, s.PackageType, s.StartDate, s.EndDate, s.Status, s.GracePeriodEnds, s.PaymentRetryCount, s.CancelledAt, s.GatewaySubscriptionID, quotaUsed, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindCurrentByUserAndType(ctx context.Context, tx repository.Tx, userID string, pkgType model.PackageType) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 AND package_type=$2 AND status IN ('active','past_due') ORDER BY created_at DESC LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, userID, pkgType)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindByGatewaySubID(ctx context.Context, tx repository.Tx, gatewaySubID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE gateway_subscription_id=$1 ORDER BY created_at DESC LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, gatewaySubID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

// ListDueForExpiry feeds the scheduler: past_due rows out of grace plus
// non-recurring active rows past their end date.
func (r *subscriptionRepo) ListDueForExpiry(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 500
	}
	const q = `
SELECT ` + subscriptionColumns + ` FROM subscriptions
 WHERE (status='past_due' AND grace_period_ends IS NOT NULL AND grace_period_ends < $1)
    OR (status='active' AND end_date < $1 AND (gateway_subscription_id IS NULL OR gateway_subscription_id=''))
 ORDER BY end_date ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *subscriptionRepo) CountActiveByPackageType(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	const q = `SELECT package_type, COUNT(*) FROM subscriptions WHERE status IN ('active','past_due') GROUP BY package_type;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var pkgType string
		var count int
		if err := rows.Scan(&pkgType, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[pkgType] = count
	}
	return out, nil
}
