package mercadopago

import (
	"context"
	"fmt"
)

// AutoRecurring describes the recurring charge attached to a plan or
// preapproval.
type AutoRecurring struct {
	Frequency         int     `json:"frequency"`
	FrequencyType     string  `json:"frequency_type"` // "days" or "months"
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
}

// PlanRequest is the payload for creating a preapproval plan.
// BackURL is intentionally absent: Mercado Pago only accepts it on the
// per-subscription preapproval, not on the plan.
type PlanRequest struct {
	Reason        string        `json:"reason"`
	AutoRecurring AutoRecurring `json:"auto_recurring"`
}

// PreapprovalRequest is the payload for creating a subscription checkout
// against an existing preapproval plan.
type PreapprovalRequest struct {
	PreapprovalPlanID string `json:"preapproval_plan_id"`
	PayerEmail        string `json:"payer_email"`
	BackURL           string `json:"back_url,omitempty"`
	NotificationURL   string `json:"notification_url"`
}

// CreatePlan registers a recurring billing plan.
func (c *Client) CreatePlan(ctx context.Context, req PlanRequest) (map[string]any, error) {
	return c.Call(ctx, "POST", "/preapproval_plan", req)
}

// CreatePreapproval creates a subscription checkout. The response carries
// the remote subscription id and the checkout redirect URL.
func (c *Client) CreatePreapproval(ctx context.Context, req PreapprovalRequest) (map[string]any, error) {
	return c.Call(ctx, "POST", "/preapproval", req)
}

// GetPayment fetches a payment by id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (map[string]any, error) {
	return c.Call(ctx, "GET", "/v1/payments/"+paymentID, nil)
}

// subscriptionEndpoints lists the equivalent endpoint surfaces for a remote
// subscription, primary first.
func subscriptionEndpoints(subscriptionID string) []string {
	return []string{
		"/preapproval/" + subscriptionID,
		"/v1/subscriptions/" + subscriptionID,
	}
}

// callSubscription runs a request against the primary subscription endpoint
// and retries the secondary surface only when the primary answers 400/404.
// Any other failure is returned as is: a 5xx or auth error on the primary
// means the request itself is broken, not that the object lives elsewhere.
func (c *Client) callSubscription(ctx context.Context, method, subscriptionID string, body any) (map[string]any, error) {
	var lastErr error
	for _, endpoint := range subscriptionEndpoints(subscriptionID) {
		resp, err := c.Call(ctx, method, endpoint, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isEndpointFallback(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// GetSubscription fetches the canonical remote subscription state by id.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (map[string]any, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscription id is required")
	}
	return c.callSubscription(ctx, "GET", subscriptionID, nil)
}

// PauseSubscription pauses automatic renewal of a remote subscription.
// The subscription remains valid until the end of the paid cycle.
func (c *Client) PauseSubscription(ctx context.Context, subscriptionID string) error {
	_, err := c.callSubscription(ctx, "PUT", subscriptionID, map[string]any{"status": "paused"})
	return err
}

// UpdateCardToken replaces the payment method on a remote subscription with
// a card token produced by the Mercado Pago frontend SDK.
func (c *Client) UpdateCardToken(ctx context.Context, subscriptionID, cardToken string) error {
	_, err := c.callSubscription(ctx, "PUT", subscriptionID, map[string]any{"card_token_id": cardToken})
	return err
}
