package billing

import (
	"net/http"

	"github.com/agendahub/billing/core"
	"github.com/agendahub/billing/pkg/subscription"
)

// RequireActiveSubscription guards routes that need a paying user. It
// lazily expires stale subscriptions as a side effect of the check.
func RequireActiveSubscription(subs subscription.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				core.JSONError(w, core.ErrUnauthorized)
				return
			}

			if _, err := subs.ActiveSubscription(r.Context(), userID); err != nil {
				core.JSONError(w, mapServiceError(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireQuota guards consumption endpoints: the request is rejected when
// the user's plan limit for the current billing window is exhausted.
func RequireQuota(subs subscription.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				core.JSONError(w, core.ErrUnauthorized)
				return
			}

			if err := subs.CanConsume(r.Context(), userID); err != nil {
				core.JSONError(w, mapServiceError(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
