package subscription

import (
	"context"

	"github.com/agendahub/billing/pkg/mercadopago"
)

// Provider is the Mercado Pago surface the engine depends on. It is an
// interface so tests can exercise the state machine without HTTP;
// *mercadopago.Client is the production implementation.
type Provider interface {
	CreatePlan(ctx context.Context, req mercadopago.PlanRequest) (map[string]any, error)
	CreatePreapproval(ctx context.Context, req mercadopago.PreapprovalRequest) (map[string]any, error)
	GetSubscription(ctx context.Context, subscriptionID string) (map[string]any, error)
	GetPayment(ctx context.Context, paymentID string) (map[string]any, error)
	PauseSubscription(ctx context.Context, subscriptionID string) error
	UpdateCardToken(ctx context.Context, subscriptionID, cardToken string) error
}

var _ Provider = (*mercadopago.Client)(nil)

// CheckoutConfig carries the environment-level settings a new checkout
// needs. WebhookURL is mandatory: without it the provider cannot notify
// status changes, so its absence is a fatal configuration error for new
// subscriptions.
type CheckoutConfig struct {
	Sandbox    bool
	BackURL    string
	WebhookURL string
	Currency   string
}
