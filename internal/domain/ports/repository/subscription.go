// File: internal/domain/ports/repository/subscription.go
package repository

import (
	"context"
	"time"

	"recruitment-billing/internal/domain/model"
)

// SubscriptionRepository is the port for subscription persistence.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindCurrentByUserAndType returns the newest non-terminal subscription
	// for the user within one package family, or domain.ErrNotFound.
	FindCurrentByUserAndType(ctx context.Context, tx Tx, userID string, pkgType model.PackageType) (*model.Subscription, error)
	FindByGatewaySubID(ctx context.Context, tx Tx, gatewaySubID string) (*model.Subscription, error)
	// ListDueForExpiry returns past_due rows whose grace elapsed plus
	// non-recurring active rows past their end date; served by the
	// (status, grace_period_ends) index.
	ListDueForExpiry(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)
	// CountActiveByPackageType feeds metrics/stats.
	CountActiveByPackageType(ctx context.Context, tx Tx) (map[string]int, error)
}
