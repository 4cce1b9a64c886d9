// File: internal/infra/db/postgres/postgres_package_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/repository"
)

var _ repository.PackageRepository = (*packageRepo)(nil)

type packageRepo struct{ pool *pgxpool.Pool }

func NewPackageRepo(pool *pgxpool.Pool) *packageRepo {
	return &packageRepo{pool: pool}
}

const packageColumns = `id, code, name, package_type, price, currency, duration_days, quotas, active, version, created_at`

func scanPackage(row pgx.Row) (*model.PaymentPackage, error) {
	p := &model.PaymentPackage{}
	var quotas []byte
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.PackageType, &p.Price, &p.Currency, &p.DurationDays, &quotas, &p.Active, &p.Version, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Quotas = map[string]int{}
	if len(quotas) > 0 {
		if err := json.Unmarshal(quotas, &p.Quotas); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return p, nil
}

func (r *packageRepo) Save(ctx context.Context, tx repository.Tx, pkg *model.PaymentPackage) error {
	quotas, err := json.Marshal(pkg.Quotas)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO payment_packages (` + packageColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (id) DO UPDATE SET
  name=$3, active=$9;`
	_, err = execSQL(ctx, r.pool, tx, q, pkg.ID, pkg.Code, pkg.Name, pkg.PackageType, pkg.Price, pkg.Currency, pkg.DurationDays, quotas, pkg.Active, pkg.Version, pkg.CreatedAt)
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

func (r *packageRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE payment_packages SET active=FALSE WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *packageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentPackage, error) {
	const q = `SELECT ` + packageColumns + ` FROM payment_packages WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}

func (r *packageRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PaymentPackage, error) {
	const q = `SELECT ` + packageColumns + ` FROM payment_packages WHERE code=$1 AND active ORDER BY version DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}

func (r *packageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.PaymentPackage, error) {
	const q = `SELECT ` + packageColumns + ` FROM payment_packages WHERE active ORDER BY package_type, price ASC;`
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

	var out []*model.PaymentPackage
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *packageRepo) FindFreeTier(ctx context.Context, tx repository.Tx, pkgType model.PackageType) (*model.PaymentPackage, error) {
	const q = `SELECT ` + packageColumns + ` FROM payment_packages WHERE package_type=$1 AND active AND price=0 ORDER BY version DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, pkgType)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}
