// Package billing exposes the subscription engine over HTTP: a public plan
// listing, checkout and lifecycle endpoints for authenticated users, an
// administrative plan registration endpoint, and the Mercado Pago webhook.
package billing

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agendahub/billing/core"
	"github.com/agendahub/billing/pkg/subscription"
)

// Service is the HTTP surface of the billing module. Mount its Handle()
// under the API prefix of your choice.
type Service struct {
	subs subscription.Service
	log  *slog.Logger
}

// Option configures the billing module.
type Option func(*Service)

// WithLogger sets the module logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the billing HTTP module.
func NewService(subs subscription.Service, opts ...Option) *Service {
	if subs == nil {
		panic("billing: subscription.Service is required")
	}
	s := &Service{subs: subs, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the module router.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/plans", s.listPlans)
	r.Post("/plans", s.registerPlan)

	r.Post("/subscriptions", s.subscribe)
	r.Get("/subscriptions/me", s.currentSubscription)
	r.Put("/subscriptions/renewal-cancellation", s.cancelRenewal)
	r.Put("/subscriptions/payment-method", s.updatePaymentMethod)

	r.Post("/webhooks/mercadopago", s.webhook)

	return r
}

type planResponse struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	PriceCents    int64  `json:"price_cents"`
	Currency      string `json:"currency"`
	Frequency     int    `json:"frequency"`
	FrequencyUnit string `json:"frequency_unit"`
	MonthlyLimit  int64  `json:"monthly_limit"`
}

func toPlanResponse(p subscription.Plan) planResponse {
	return planResponse{
		Key:           p.Key,
		Name:          p.Name,
		PriceCents:    p.Price.Amount,
		Currency:      p.Price.Currency,
		Frequency:     p.Frequency,
		FrequencyUnit: p.FrequencyUnit,
		MonthlyLimit:  p.MonthlyLimit,
	}
}

func (s *Service) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.subs.Plans(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to list plans", "error", err)
		core.JSONError(w, mapServiceError(err))
		return
	}

	out := make([]planResponse, 0, len(plans))
	for _, plan := range plans {
		out = append(out, toPlanResponse(plan))
	}
	core.JSON(w, http.StatusOK, out)
}

type registerPlanRequest struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	PriceCents    int64  `json:"price_cents"`
	Currency      string `json:"currency"`
	Frequency     int    `json:"frequency"`
	FrequencyUnit string `json:"frequency_unit"`
	MonthlyLimit  int64  `json:"monthly_limit"`
}

func (s *Service) registerPlan(w http.ResponseWriter, r *http.Request) {
	if !IsAdmin(r.Context()) {
		core.JSONError(w, core.ErrForbidden)
		return
	}

	var req registerPlanRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	plan, err := s.subs.RegisterPlan(r.Context(), subscription.RegisterPlanInput{
		Key:           req.Key,
		Name:          req.Name,
		Price:         subscription.Money{Amount: req.PriceCents, Currency: req.Currency},
		Frequency:     req.Frequency,
		FrequencyUnit: req.FrequencyUnit,
		MonthlyLimit:  req.MonthlyLimit,
	})
	if err != nil {
		core.JSONError(w, mapServiceError(err))
		return
	}
	core.JSON(w, http.StatusCreated, toPlanResponse(*plan))
}

type subscribeRequest struct {
	PlanKey string `json:"plan_key"`
	Email   string `json:"email"`
	BackURL string `json:"back_url"`
}

type checkoutResponse struct {
	SubscriptionID string `json:"subscription_id"`
	CheckoutURL    string `json:"checkout_url"`
}

func (s *Service) subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		core.JSONError(w, core.ErrUnauthorized)
		return
	}

	var req subscribeRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	checkout, err := s.subs.Subscribe(r.Context(), subscription.SubscribeInput{
		UserID:  userID,
		Email:   req.Email,
		PlanKey: req.PlanKey,
		BackURL: req.BackURL,
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "checkout failed", "user_id", userID, "error", err)
		core.JSONError(w, mapServiceError(err))
		return
	}

	core.JSON(w, http.StatusCreated, checkoutResponse{
		SubscriptionID: checkout.SubscriptionID.String(),
		CheckoutURL:    checkout.URL,
	})
}

type subscriptionResponse struct {
	PlanName         string     `json:"plan_name,omitempty"`
	PriceCents       int64      `json:"price_cents,omitempty"`
	Currency         string     `json:"currency,omitempty"`
	Status           string     `json:"status"`
	StartsAt         *time.Time `json:"starts_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	DaysLeft         int        `json:"days_left"`
	RenewalCancelled bool       `json:"renewal_cancelled"`
}

type overviewResponse struct {
	Status              string                  `json:"status"`
	RequiresNewCheckout bool                    `json:"requires_new_checkout,omitempty"`
	Subscription        *subscriptionResponse   `json:"subscription,omitempty"`
	Plan                *planResponse           `json:"plan,omitempty"`
	Usage               *subscription.UsageInfo `json:"usage,omitempty"`
}

func (s *Service) currentSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		core.JSONError(w, core.ErrUnauthorized)
		return
	}

	overview, err := s.subs.Current(r.Context(), userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to read subscription", "user_id", userID, "error", err)
		core.JSONError(w, mapServiceError(err))
		return
	}

	resp := overviewResponse{Status: string(overview.State)}
	if sub := overview.Subscription; sub != nil {
		resp.Subscription = &subscriptionResponse{
			PlanName:         sub.PlanName,
			PriceCents:       sub.Amount.Amount,
			Currency:         sub.Amount.Currency,
			Status:           string(sub.Status),
			StartsAt:         sub.StartsAt,
			ExpiresAt:        sub.ExpiresAt,
			DaysLeft:         overview.DaysLeft,
			RenewalCancelled: overview.RenewalCancelled(),
		}
	}
	if overview.State == subscription.OverviewLegacy {
		resp.RequiresNewCheckout = true
	}
	if overview.Plan != nil {
		plan := toPlanResponse(*overview.Plan)
		plan.MonthlyLimit = overview.Limit
		resp.Plan = &plan
	}
	resp.Usage = overview.Usage

	core.JSON(w, http.StatusOK, resp)
}

func (s *Service) cancelRenewal(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		core.JSONError(w, core.ErrUnauthorized)
		return
	}

	sub, err := s.subs.CancelRenewal(r.Context(), userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "renewal cancellation failed", "user_id", userID, "error", err)
		core.JSONError(w, mapServiceError(err))
		return
	}

	core.JSONMessage(w, http.StatusOK, "automatic renewal cancelled", subscriptionResponse{
		PlanName:         sub.PlanName,
		PriceCents:       sub.Amount.Amount,
		Currency:         sub.Amount.Currency,
		Status:           string(sub.Status),
		StartsAt:         sub.StartsAt,
		ExpiresAt:        sub.ExpiresAt,
		RenewalCancelled: true,
	})
}

type updatePaymentMethodRequest struct {
	CardToken string `json:"card_token"`
}

func (s *Service) updatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		core.JSONError(w, core.ErrUnauthorized)
		return
	}

	var req updatePaymentMethodRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	if err := s.subs.UpdatePaymentMethod(r.Context(), userID, req.CardToken); err != nil {
		s.log.ErrorContext(r.Context(), "payment method update failed", "user_id", userID, "error", err)
		core.JSONError(w, mapServiceError(err))
		return
	}
	core.JSONMessage(w, http.StatusOK, "payment method updated", nil)
}

// webhook receives Mercado Pago notifications. Syntactically valid
// notifications are always acknowledged with 200, even when they reference
// unknown objects or uninteresting topics, so the provider stops retrying.
// Internal failures return 500 on purpose: the provider's retry is the
// delivery guarantee.
func (s *Service) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		core.JSONError(w, core.WrapError(core.ErrBadRequest, err))
		return
	}

	event, err := subscription.ParseEvent(body)
	if err != nil {
		s.log.WarnContext(r.Context(), "malformed webhook payload", "error", err)
		core.JSONError(w, mapServiceError(err))
		return
	}

	if err := s.subs.ProcessWebhook(r.Context(), event); err != nil {
		s.log.ErrorContext(r.Context(), "webhook processing failed",
			"topic", event.Topic, "resource_id", event.ResourceID, "error", err)
		core.JSONError(w, core.ErrInternalServerError)
		return
	}

	core.JSONMessage(w, http.StatusOK, "ok", nil)
}
