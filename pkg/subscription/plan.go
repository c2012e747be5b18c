package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a billable offering. Key is the stable human identifier used by
// clients ("bronze", "premium"); it is unique and immutable once created.
type Plan struct {
	ID   uuid.UUID
	Key  string
	Name string

	// MonthlyLimit caps consumption per billing period; 0 means unlimited.
	MonthlyLimit int64

	Price         Money
	Frequency     int
	FrequencyUnit string // "days" or "months"

	// RemotePlanID, once set, is authoritative for creating provider
	// subscriptions against this plan.
	RemotePlanID string

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Linked reports whether the plan is registered with the provider.
func (p *Plan) Linked() bool {
	return p.RemotePlanID != ""
}

// Unlimited reports whether the plan has no consumption cap.
func (p *Plan) Unlimited() bool {
	return p.MonthlyLimit <= 0
}
