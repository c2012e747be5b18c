package subscription

import "strings"

// MapRemoteStatus translates a provider-reported status string into the
// local status enumeration. Unknown values return false: provider
// vocabularies evolve, and an unrecognized status must never silently
// cancel or activate a subscription, so callers keep the existing local
// status when no mapping exists.
func MapRemoteStatus(remote string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case "authorized", "active":
		return StatusActive, true
	case "paused":
		return StatusActiveUntilEndOfCycle, true
	case "cancelled", "canceled", "expired":
		return StatusCanceled, true
	default:
		return "", false
	}
}
