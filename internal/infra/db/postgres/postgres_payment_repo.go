// File: internal/infra/db/postgres/postgres_payment_repo.go
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, package_id, order_ref, amount, currency, gateway, gateway_ref, status, fail_reason, raw_payload, created_at, updated_at, processed_at, subscription_id`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.UserID, &p.PackageID, &p.OrderRef, &p.Amount, &p.Currency, &p.Gateway, &p.GatewayRef, &p.Status, &p.FailReason, &p.RawPayload, &p.CreatedAt, &p.UpdatedAt, &p.ProcessedAt, &p.SubscriptionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// Insert creates the attempt row; a (gateway, gateway_ref) collision surfaces
// as domain.ErrAlreadyExists so callers can race on the constraint.
func (r *paymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
);`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.PackageID, p.OrderRef, p.Amount, p.Currency, p.Gateway, p.GatewayRef, p.Status, p.FailReason, p.RawPayload, p.CreatedAt, p.UpdatedAt, p.ProcessedAt, p.SubscriptionID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (id) DO UPDATE SET
  user_id=$2, package_id=$3, order_ref=$4, amount=$5, currency=$6, gateway=$7, gateway_ref=$8, status=$9, fail_reason=$10, raw_payload=$11, updated_at=$13, processed_at=$14, subscription_id=$15;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.PackageID, p.OrderRef, p.Amount, p.Currency, p.Gateway, p.GatewayRef, p.Status, p.FailReason, p.RawPayload, p.CreatedAt, p.UpdatedAt, p.ProcessedAt, p.SubscriptionID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByGatewayRef(ctx context.Context, tx repository.Tx, gateway, gatewayRef string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway=$1 AND gateway_ref=$2 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, gateway, gatewayRef)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByOrderRef(ctx context.Context, tx repository.Tx, orderRef string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE order_ref=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderRef)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// UpdateStatusIf atomically moves status only when the current value is one
// of from. The returned bool is the idempotency signal for re-delivered
// webhooks.
func (r *paymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from []model.PaymentStatus, to model.PaymentStatus, failReason string, rawPayload []byte, processedAt *time.Time) (bool, error) {
	fromStr := make([]string, len(from))
	for i, s := range from {
		fromStr[i] = string(s)
	}
	const q = `
    UPDATE payments
       SET status = $2,
           fail_reason = COALESCE(NULLIF($3,''), fail_reason),
           raw_payload = COALESCE($4, raw_payload),
           processed_at = COALESCE($5, processed_at),
           updated_at = NOW()
     WHERE id = $1
       AND status = ANY($6);`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(to), failReason, rawPayload, processedAt, fromStr)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) SetSubscriptionID(ctx context.Context, tx repository.Tx, paymentID, subscriptionID string) error {
	const q = `UPDATE payments SET subscription_id=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, paymentID, subscriptionID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) SumSucceededByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='succeeded' AND processed_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
