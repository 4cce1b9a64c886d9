// File: internal/domain/model/subscription.go
package model

import (
	"time"

	"recruitment-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// DunningPolicy parameterizes grace/retry handling. Both values come from
// configuration, never from constants inside the state machine.
type DunningPolicy struct {
	GracePeriod time.Duration // window granted on the first billing failure
	MaxRetries  int           // failures tolerated while PAST_DUE before cancelling
}

// Subscription is the durable entitlement a user holds against one package.
// Only the state machine below mutates it; transitions return an updated
// copy so callers persist exactly what they observed.
//
// Invariants held at every observed state:
//   - GracePeriodEnds is non-nil only while Status == past_due.
//   - PaymentRetryCount is 0 whenever Status == active.
//   - cancelled/expired are terminal; no transition leaves them.
type Subscription struct {
	ID                    string // UUID
	UserID                string
	PackageID             string
	PackageType           PackageType // family key: one live subscription per user per type
	StartDate             time.Time
	EndDate               time.Time
	Status                SubscriptionStatus
	GracePeriodEnds       *time.Time
	PaymentRetryCount     int
	CancelledAt           *time.Time
	GatewaySubscriptionID *string // set for recurring billing
	QuotaUsed             map[string]int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (s *Subscription) IsTerminal() bool {
	return s.Status == SubscriptionStatusCancelled || s.Status == SubscriptionStatusExpired
}

// IsActive is the derived activity flag: usable while active, or past_due
// within the grace window.
func (s *Subscription) IsActive(now time.Time) bool {
	if s.Status == SubscriptionStatusActive {
		return true
	}
	return s.InGracePeriod(now)
}

// InGracePeriod reports a past_due subscription whose grace window has not
// elapsed yet.
func (s *Subscription) InGracePeriod(now time.Time) bool {
	return s.Status == SubscriptionStatusPastDue && s.GracePeriodEnds != nil && now.Before(*s.GracePeriodEnds)
}

// Recurring reports whether the gateway bills this subscription on its own
// schedule.
func (s *Subscription) Recurring() bool {
	return s.GatewaySubscriptionID != nil && *s.GatewaySubscriptionID != ""
}

// NewSubscription creates the active subscription granted by a first
// successful payment.
func NewSubscription(id, userID string, pkg *PaymentPackage, gatewaySubID *string, now time.Time) (*Subscription, error) {
	if id == "" || userID == "" || pkg.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:                    id,
		UserID:                userID,
		PackageID:             pkg.ID,
		PackageType:           pkg.PackageType,
		StartDate:             now,
		EndDate:               now.Add(time.Duration(pkg.DurationDays) * 24 * time.Hour),
		Status:                SubscriptionStatusActive,
		PaymentRetryCount:     0,
		GatewaySubscriptionID: gatewaySubID,
		QuotaUsed:             map[string]int{},
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

func (s *Subscription) terminalError() error {
	return domain.NewSubscriptionExpired(s.ID, string(s.Status))
}

// ApplyPaymentSucceeded handles a renewal (active) or recovery (past_due)
// payment: end date extends by one package duration, retry bookkeeping
// clears, and quota counters refresh for the new period.
func (s *Subscription) ApplyPaymentSucceeded(pkg *PaymentPackage, now time.Time) (*Subscription, error) {
	if s.IsTerminal() {
		return nil, s.terminalError()
	}
	if pkg.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	next := s.clone()
	base := next.EndDate
	if now.After(base) {
		base = now
	}
	next.EndDate = base.Add(time.Duration(pkg.DurationDays) * 24 * time.Hour)
	next.Status = SubscriptionStatusActive
	next.PaymentRetryCount = 0
	next.GracePeriodEnds = nil
	next.QuotaUsed = map[string]int{}
	next.UpdatedAt = now
	return next, nil
}

// ApplyPaymentFailed advances dunning state. The first failure opens the
// grace window; further failures count retries until the policy maximum,
// after which the subscription cancels.
func (s *Subscription) ApplyPaymentFailed(policy DunningPolicy, now time.Time) (*Subscription, error) {
	if s.IsTerminal() {
		return nil, s.terminalError()
	}
	next := s.clone()
	switch s.Status {
	case SubscriptionStatusActive:
		ends := now.Add(policy.GracePeriod)
		next.Status = SubscriptionStatusPastDue
		next.PaymentRetryCount = 1
		next.GracePeriodEnds = &ends
	case SubscriptionStatusPastDue:
		next.PaymentRetryCount++
		if next.PaymentRetryCount > policy.MaxRetries {
			next.Status = SubscriptionStatusCancelled
			next.GracePeriodEnds = nil
			next.CancelledAt = &now
		}
	}
	next.UpdatedAt = now
	return next, nil
}

// Cancel applies an explicit user cancellation.
func (s *Subscription) Cancel(now time.Time) (*Subscription, error) {
	if s.IsTerminal() {
		return nil, s.terminalError()
	}
	next := s.clone()
	next.Status = SubscriptionStatusCancelled
	next.GracePeriodEnds = nil
	next.CancelledAt = &now
	next.UpdatedAt = now
	return next, nil
}

// Expire applies the scheduler transition. It only fires when due: a
// past_due subscription whose grace elapsed, or an active one past its end
// date with no recurring billing. Otherwise it returns the receiver
// unchanged so a re-run tick is a no-op.
func (s *Subscription) Expire(now time.Time) (*Subscription, error) {
	if s.IsTerminal() {
		return nil, s.terminalError()
	}
	due := false
	switch s.Status {
	case SubscriptionStatusPastDue:
		due = s.GracePeriodEnds != nil && now.After(*s.GracePeriodEnds)
	case SubscriptionStatusActive:
		due = now.After(s.EndDate) && !s.Recurring()
	}
	if !due {
		return s, nil
	}
	next := s.clone()
	next.Status = SubscriptionStatusExpired
	next.GracePeriodEnds = nil
	next.UpdatedAt = now
	return next, nil
}

// ConsumeQuota increments usage for one quota type after the caller has
// verified the limit.
func (s *Subscription) ConsumeQuota(quotaType string, amount int, now time.Time) *Subscription {
	next := s.clone()
	next.QuotaUsed[quotaType] += amount
	next.UpdatedAt = now
	return next
}

func (s *Subscription) clone() *Subscription {
	next := *s
	next.QuotaUsed = make(map[string]int, len(s.QuotaUsed))
	for k, v := range s.QuotaUsed {
		next.QuotaUsed[k] = v
	}
	return &next
}
