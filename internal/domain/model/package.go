// File: internal/domain/model/package.go
package model

import (
	"time"

	"recruitment-billing/internal/domain"
)

type PackageType string

const (
	PackageTypeJobPosting     PackageType = "JOB_POSTING"
	PackageTypeFeaturedJob    PackageType = "FEATURED_JOB"
	PackageTypeUrgentJob      PackageType = "URGENT_JOB"
	PackageTypePremiumAccount PackageType = "PREMIUM_ACCOUNT"
	PackageTypeCVDatabase     PackageType = "CV_DATABASE"
)

// Quota types granted by packages and consumed by collaborating services.
const (
	QuotaJobPosts = "job_posts"
	QuotaFeatured = "featured"
	QuotaUrgent   = "urgent"
	QuotaCVViews  = "cv_views"
)

// QuotaUnlimited marks a quota type with no numeric cap.
const QuotaUnlimited = -1

// PaymentPackage is a purchasable plan. A package row is immutable once a
// live subscription references it; catalog changes create a new version row
// under the same code instead of mutating in place.
type PaymentPackage struct {
	ID           string // UUID
	Code         string // unique per active version
	Name         string
	PackageType  PackageType
	Price        int64 // minor units, to avoid float errors
	Currency     string
	DurationDays int
	Quotas       map[string]int // quota type -> limit; absent type = not granted
	Active       bool
	Version      int
	CreatedAt    time.Time
}

func (p *PaymentPackage) IsZero() bool { return p == nil || p.ID == "" }

// QuotaLimit returns the limit for a quota type, 0 when the package does not
// grant it.
func (p *PaymentPackage) QuotaLimit(quotaType string) int {
	if p == nil {
		return 0
	}
	return p.Quotas[quotaType]
}

// IsFree reports a zero-price package usable as a quota fallback tier.
func (p *PaymentPackage) IsFree() bool { return p != nil && p.Price == 0 }

// NewPaymentPackage validates and constructs a catalog entry.
func NewPaymentPackage(id, code, name string, pkgType PackageType, price int64, currency string, durationDays int, quotas map[string]int) (*PaymentPackage, error) {
	if id == "" || code == "" || name == "" || pkgType == "" || durationDays <= 0 || price < 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	if quotas == nil {
		quotas = map[string]int{}
	}
	return &PaymentPackage{
		ID:           id,
		Code:         code,
		Name:         name,
		PackageType:  pkgType,
		Price:        price,
		Currency:     currency,
		DurationDays: durationDays,
		Quotas:       quotas,
		Active:       true,
		Version:      1,
		CreatedAt:    time.Now(),
	}, nil
}

// NextVersion derives the replacement row for a catalog change: same code,
// bumped version, fresh ID supplied by the caller.
func (p *PaymentPackage) NextVersion(id string, price int64, durationDays int, quotas map[string]int) (*PaymentPackage, error) {
	if p.IsZero() || id == "" || durationDays <= 0 || price < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if quotas == nil {
		quotas = p.Quotas
	}
	return &PaymentPackage{
		ID:           id,
		Code:         p.Code,
		Name:         p.Name,
		PackageType:  p.PackageType,
		Price:        price,
		Currency:     p.Currency,
		DurationDays: durationDays,
		Quotas:       quotas,
		Active:       true,
		Version:      p.Version + 1,
		CreatedAt:    time.Now(),
	}, nil
}
