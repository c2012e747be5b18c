package subscription

import "errors"

var (
	// Validation: user-correctable input problems.
	ErrPlanKeyRequired   = errors.New("plan key is required")
	ErrCardTokenRequired = errors.New("card token is required")
	ErrInvalidPlanInput  = errors.New("plan key, name and price are required")

	// Not found.
	ErrPlanNotFound         = errors.New("plan not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// Conflict: requires a different user action, not a retry.
	ErrPlanAlreadyLinked    = errors.New("plan already linked to the provider")
	ErrNotLinkedToProvider  = errors.New("subscription is not linked to the provider, a new checkout is required")

	// Access gating.
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrLimitExceeded        = errors.New("plan limit exceeded for the current billing period")

	// Configuration: fatal for the operation, retrying cannot fix it.
	ErrWebhookURLNotConfigured = errors.New("webhook callback URL is not configured")
	ErrNoCheckoutURL           = errors.New("provider returned no checkout URL")

	// Provider: non-2xx from the provider, safe to retry with backoff.
	ErrProviderUnavailable = errors.New("billing provider request failed")

	// Webhook payloads.
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")
)
