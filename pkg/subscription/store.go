package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines subscription persistence. Implementations must make
// CreatePending atomic: the supersede-then-insert sequence runs inside one
// transaction so concurrent checkouts cannot produce two granting
// subscriptions for the same user.
type Store interface {
	// Latest returns the most recently created subscription for the user
	// whose status is in the given set. Returns ErrSubscriptionNotFound
	// when none matches.
	Latest(ctx context.Context, userID uuid.UUID, statuses ...Status) (*Subscription, error)

	// ByRemoteID looks a subscription up by its provider id.
	// Returns ErrSubscriptionNotFound when unknown.
	ByRemoteID(ctx context.Context, remoteID string) (*Subscription, error)

	// CreatePending transitions any granting subscription of the same user
	// to canceled (expiresAt = now) and inserts the new pending record, all
	// in one transaction.
	CreatePending(ctx context.Context, sub *Subscription) error

	// SetStatus updates the status (and, when non-nil, the expiry) of a
	// subscription.
	SetStatus(ctx context.Context, id uuid.UUID, status Status, expiresAt *time.Time) error

	// Update persists status and period fields after reconciliation.
	Update(ctx context.Context, sub *Subscription) error
}

// PlanStore defines plan persistence.
type PlanStore interface {
	// ByKey returns a plan by its stable key regardless of active flag.
	// Returns ErrPlanNotFound when unknown.
	ByKey(ctx context.Context, key string) (*Plan, error)

	// ByID returns a plan by primary key. Returns ErrPlanNotFound when unknown.
	ByID(ctx context.Context, id uuid.UUID) (*Plan, error)

	// Active lists active plans ordered by price, cheapest first.
	Active(ctx context.Context) ([]Plan, error)

	// Create inserts a new plan.
	Create(ctx context.Context, plan *Plan) error

	// Update persists plan mutations (provider link, price, frequency).
	Update(ctx context.Context, plan *Plan) error
}

// UsageCounterFunc counts consumption-eligible records owned by the user
// created within [from, to) — the half-open current billing window. The
// count is recomputed on every read because reconciliation can move the
// window; it must never be cached.
type UsageCounterFunc func(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error)
