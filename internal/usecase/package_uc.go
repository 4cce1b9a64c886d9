// File: internal/usecase/package_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"recruitment-billing/internal/domain"
	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/repository"
)

var _ PackageUseCase = (*packageUC)(nil)

// PackageUseCase manages the package catalog. Catalog rows are immutable:
// an administrative "update" inserts a new version under the same code and
// deactivates the previous one in the same transaction, so historical
// payments keep pointing at the exact terms they were sold under.
type PackageUseCase interface {
	Create(ctx context.Context, code, name string, pkgType model.PackageType, price int64, currency string, durationDays int, quotas map[string]int) (*model.PaymentPackage, error)
	// Publish replaces the active version of code with new terms.
	Publish(ctx context.Context, code string, price int64, durationDays int, quotas map[string]int) (*model.PaymentPackage, error)
	Deactivate(ctx context.Context, code string) error
	GetByCode(ctx context.Context, code string) (*model.PaymentPackage, error)
	ListActive(ctx context.Context) ([]*model.PaymentPackage, error)
}

type packageUC struct {
	pkgs repository.PackageRepository
	tm   repository.TransactionManager
	log  *zerolog.Logger
	now  func() time.Time
}

func NewPackageUseCase(pkgs repository.PackageRepository, tm repository.TransactionManager, logger *zerolog.Logger) *packageUC {
	l := logger.With().Str("component", "PackageUC").Logger()
	return &packageUC{pkgs: pkgs, tm: tm, log: &l, now: time.Now}
}

func (uc *packageUC) Create(ctx context.Context, code, name string, pkgType model.PackageType, price int64, currency string, durationDays int, quotas map[string]int) (*model.PaymentPackage, error) {
	pkg, err := model.NewPaymentPackage(uuid.NewString(), code, name, pkgType, price, currency, durationDays, quotas)
	if err != nil {
		return nil, err
	}
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		_, err := uc.pkgs.FindByCode(ctx, tx, code)
		if err == nil {
			return domain.NewValidation("code", "an active package already uses this code")
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return uc.pkgs.Save(ctx, tx, pkg)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("code", pkg.Code).Int("version", pkg.Version).Msg("package created")
	return pkg, nil
}

func (uc *packageUC) Publish(ctx context.Context, code string, price int64, durationDays int, quotas map[string]int) (*model.PaymentPackage, error) {
	var next *model.PaymentPackage
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := uc.pkgs.FindByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewInvalidPackage(code)
			}
			return err
		}
		next, err = cur.NextVersion(uuid.NewString(), price, durationDays, quotas)
		if err != nil {
			return err
		}
		if err := uc.pkgs.Deactivate(ctx, tx, cur.ID); err != nil {
			return err
		}
		return uc.pkgs.Save(ctx, tx, next)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("code", next.Code).Int("version", next.Version).Msg("package version published")
	return next, nil
}

func (uc *packageUC) Deactivate(ctx context.Context, code string) error {
	return uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := uc.pkgs.FindByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewInvalidPackage(code)
			}
			return err
		}
		return uc.pkgs.Deactivate(ctx, tx, cur.ID)
	})
}

func (uc *packageUC) GetByCode(ctx context.Context, code string) (*model.PaymentPackage, error) {
	pkg, err := uc.pkgs.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewInvalidPackage(code)
		}
		return nil, err
	}
	return pkg, nil
}

func (uc *packageUC) ListActive(ctx context.Context) ([]*model.PaymentPackage, error) {
	return uc.pkgs.ListActive(ctx, repository.NoTX)
}
