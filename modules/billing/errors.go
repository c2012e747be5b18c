package billing

import (
	"errors"

	"github.com/agendahub/billing/core"
	"github.com/agendahub/billing/pkg/subscription"
)

// mapServiceError translates domain errors into HTTP-status-carrying
// errors. Unmatched errors fall through unchanged and render as 500.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, subscription.ErrPlanKeyRequired),
		errors.Is(err, subscription.ErrCardTokenRequired),
		errors.Is(err, subscription.ErrInvalidPlanInput):
		return core.WrapError(core.ErrUnprocessableEntity, err)

	case errors.Is(err, subscription.ErrPlanNotFound),
		errors.Is(err, subscription.ErrSubscriptionNotFound):
		return core.WrapError(core.ErrNotFound, err)

	case errors.Is(err, subscription.ErrPlanAlreadyLinked),
		errors.Is(err, subscription.ErrNotLinkedToProvider):
		return core.WrapError(core.ErrConflict, err)

	case errors.Is(err, subscription.ErrNoActiveSubscription),
		errors.Is(err, subscription.ErrLimitExceeded):
		return core.WrapError(core.ErrForbidden, err)

	case errors.Is(err, subscription.ErrInvalidWebhookPayload):
		return core.WrapError(core.ErrBadRequest, err)

	case errors.Is(err, subscription.ErrProviderUnavailable):
		return core.WrapError(core.ErrBadGateway, err)

	case errors.Is(err, subscription.ErrWebhookURLNotConfigured),
		errors.Is(err, subscription.ErrNoCheckoutURL):
		return core.WrapError(core.ErrInternalServerError, err)

	default:
		return err
	}
}
