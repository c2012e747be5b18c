package subscription

// Status represents the local lifecycle state of a subscription.
type Status string

const (
	// StatusPending is a checkout awaiting first payment confirmation.
	StatusPending Status = "pending"
	// StatusActive is a confirmed, renewing subscription.
	StatusActive Status = "active"
	// StatusActiveUntilEndOfCycle is active with renewal cancelled; access
	// lasts until the current period ends.
	StatusActiveUntilEndOfCycle Status = "active_until_end_of_cycle"
	// StatusCanceled is terminal; no transition leaves it.
	StatusCanceled Status = "canceled"
)

// Terminal reports whether no further transitions may leave this status.
func (s Status) Terminal() bool {
	return s == StatusCanceled
}

// Granting reports whether the status grants access to paid features.
func (s Status) Granting() bool {
	return s == StatusActive || s == StatusActiveUntilEndOfCycle
}

// GrantingStatuses are the statuses covered by the single-active-subscription
// invariant: at most one subscription per user may hold one of these.
var GrantingStatuses = []Status{StatusActive, StatusActiveUntilEndOfCycle}

// OpenStatuses are the statuses a "my subscription" read considers.
var OpenStatuses = []Status{StatusPending, StatusActive, StatusActiveUntilEndOfCycle}

// Money represents a monetary amount in the smallest currency unit.
// R$49.90 is Amount: 4990, Currency: "BRL".
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Float returns the amount in major currency units, as the provider API
// expects transaction amounts.
func (m Money) Float() float64 {
	return float64(m.Amount) / 100
}
