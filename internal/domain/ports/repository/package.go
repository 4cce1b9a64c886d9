// File: internal/domain/ports/repository/package.go
package repository

import (
	"context"

	"recruitment-billing/internal/domain/model"
)

// PackageRepository is the port for the package catalog. Rows are immutable;
// administrative changes insert a new version under the same code and
// deactivate the previous one.
type PackageRepository interface {
	Save(ctx context.Context, tx Tx, pkg *model.PaymentPackage) error
	Deactivate(ctx context.Context, tx Tx, id string) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentPackage, error)
	// FindByCode returns the active version for a code, or domain.ErrNotFound.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.PaymentPackage, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.PaymentPackage, error)
	// FindFreeTier returns the active zero-price package for a family, if
	// one is configured; quota checks fall back to it for inactive users.
	FindFreeTier(ctx context.Context, tx Tx, pkgType model.PackageType) (*model.PaymentPackage, error)
}
