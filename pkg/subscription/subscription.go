package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is one attempt at billing a user for a plan. A user
// accumulates many subscription rows over time; superseded and canceled
// rows are kept as an audit trail.
type Subscription struct {
	ID     uuid.UUID
	UserID uuid.UUID

	// PlanID is nil for plan-less checkouts; the snapshot fields below are
	// then the only description of what was purchased.
	PlanID *uuid.UUID

	// Remote identifiers, empty until the provider confirms the checkout.
	RemotePlanID         string
	RemoteSubscriptionID string

	// Snapshot of the offer at checkout time, so display does not depend on
	// the plan record still existing or being unchanged.
	PlanName      string
	Amount        Money
	Frequency     int
	FrequencyUnit string // "days" or "months"

	StartsAt  *time.Time
	ExpiresAt *time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Linked reports whether the record is tied to a provider subscription.
// Unlinked records predate provider billing and need migration.
func (s *Subscription) Linked() bool {
	return s.RemoteSubscriptionID != ""
}

// RenewalCancelled reports whether the user cancelled automatic renewal.
func (s *Subscription) RenewalCancelled() bool {
	return s.Status == StatusActiveUntilEndOfCycle
}

// ExpiredAt reports whether the subscription's period has ended at the
// given instant. Records without a deadline never expire locally.
func (s *Subscription) ExpiredAt(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return !s.ExpiresAt.After(now)
}

// DaysLeftAt returns whole days remaining until expiry, rounded up and
// never negative. Returns 0 when no deadline is set.
func (s *Subscription) DaysLeftAt(now time.Time) int {
	if s.ExpiresAt == nil {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}
