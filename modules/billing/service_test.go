package billing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agendahub/billing/modules/billing"
	"github.com/agendahub/billing/pkg/subscription"
)

type mockSubscriptionService struct {
	mock.Mock
}

func (m *mockSubscriptionService) Plans(ctx context.Context) ([]subscription.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Plan), args.Error(1)
}

func (m *mockSubscriptionService) RegisterPlan(ctx context.Context, input subscription.RegisterPlanInput) (*subscription.Plan, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Plan), args.Error(1)
}

func (m *mockSubscriptionService) Subscribe(ctx context.Context, input subscription.SubscribeInput) (*subscription.Checkout, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Checkout), args.Error(1)
}

func (m *mockSubscriptionService) Current(ctx context.Context, userID uuid.UUID) (*subscription.Overview, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Overview), args.Error(1)
}

func (m *mockSubscriptionService) CancelRenewal(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockSubscriptionService) UpdatePaymentMethod(ctx context.Context, userID uuid.UUID, cardToken string) error {
	return m.Called(ctx, userID, cardToken).Error(0)
}

func (m *mockSubscriptionService) Reconcile(ctx context.Context, remoteID string) error {
	return m.Called(ctx, remoteID).Error(0)
}

func (m *mockSubscriptionService) ProcessWebhook(ctx context.Context, event *subscription.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockSubscriptionService) ActiveSubscription(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockSubscriptionService) CanConsume(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func newServer(t *testing.T, subs subscription.Service) http.Handler {
	t.Helper()
	return billing.NewService(subs).Handle()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, ctxFns ...func(context.Context) context.Context) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	for _, fn := range ctxFns {
		ctx = fn(ctx)
	}
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func asUser(userID uuid.UUID) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return billing.WithUserID(ctx, userID)
	}
}

func TestListPlans(t *testing.T) {
	t.Parallel()

	subs := new(mockSubscriptionService)
	subs.On("Plans", mock.Anything).Return([]subscription.Plan{
		{Key: "bronze", Name: "Bronze", Price: subscription.Money{Amount: 2990, Currency: "BRL"}, MonthlyLimit: 10},
	}, nil)

	rec := doJSON(t, newServer(t, subs), http.MethodGet, "/plans", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bronze"`)
	assert.Contains(t, rec.Body.String(), `"price_cents":2990`)
}

func TestRegisterPlan(t *testing.T) {
	t.Parallel()

	body := map[string]any{
		"key": "silver", "name": "Silver", "price_cents": 4990, "currency": "BRL", "monthly_limit": 50,
	}

	t.Run("forbidden without admin", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/plans", body, asUser(uuid.New()))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		subs.AssertNotCalled(t, "RegisterPlan", mock.Anything, mock.Anything)
	})

	t.Run("created for admin", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("RegisterPlan", mock.Anything, mock.MatchedBy(func(in subscription.RegisterPlanInput) bool {
			return in.Key == "silver" && in.Price.Amount == 4990 && in.MonthlyLimit == 50
		})).Return(&subscription.Plan{Key: "silver", Name: "Silver", RemotePlanID: "mp-plan-1"}, nil)

		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/plans", body,
			asUser(uuid.New()), func(ctx context.Context) context.Context { return billing.WithAdmin(ctx) })
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("conflict when already linked", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("RegisterPlan", mock.Anything, mock.Anything).Return(nil, subscription.ErrPlanAlreadyLinked)

		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/plans", body,
			asUser(uuid.New()), func(ctx context.Context) context.Context { return billing.WithAdmin(ctx) })
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	body := map[string]any{"plan_key": "bronze", "email": "user@example.com"}

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		rec := doJSON(t, newServer(t, new(mockSubscriptionService)), http.MethodPost, "/subscriptions", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("creates checkout", func(t *testing.T) {
		t.Parallel()

		subID := uuid.New()
		subs := new(mockSubscriptionService)
		subs.On("Subscribe", mock.Anything, mock.MatchedBy(func(in subscription.SubscribeInput) bool {
			return in.UserID == userID && in.PlanKey == "bronze"
		})).Return(&subscription.Checkout{
			SubscriptionID: subID, RemoteSubscriptionID: "mp-1", URL: "https://mp.example.com/checkout",
		}, nil)

		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/subscriptions", body, asUser(userID))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), "https://mp.example.com/checkout")
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("Subscribe", mock.Anything, mock.Anything).Return(nil, subscription.ErrPlanNotFound)

		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/subscriptions", body, asUser(userID))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing plan key", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("Subscribe", mock.Anything, mock.Anything).Return(nil, subscription.ErrPlanKeyRequired)

		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/subscriptions", map[string]any{}, asUser(userID))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("provider outage", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("Subscribe", mock.Anything, mock.Anything).
			Return(nil, errors.Join(subscription.ErrProviderUnavailable, errors.New("boom")))

		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/subscriptions", body, asUser(userID))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestCurrentSubscription(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("none", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("Current", mock.Anything, userID).Return(&subscription.Overview{State: subscription.OverviewNone}, nil)

		rec := doJSON(t, newServer(t, subs), http.MethodGet, "/subscriptions/me", nil, asUser(userID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"none"`)
	})

	t.Run("legacy flags a new checkout", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("Current", mock.Anything, userID).Return(&subscription.Overview{
			State:        subscription.OverviewLegacy,
			Subscription: &subscription.Subscription{PlanName: "Old Plan", Status: subscription.StatusActive},
		}, nil)

		rec := doJSON(t, newServer(t, subs), http.MethodGet, "/subscriptions/me", nil, asUser(userID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"requires_new_checkout":true`)
	})

	t.Run("active with usage", func(t *testing.T) {
		t.Parallel()

		starts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		expires := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
		remaining := int64(5)
		subs := new(mockSubscriptionService)
		subs.On("Current", mock.Anything, userID).Return(&subscription.Overview{
			State: subscription.OverviewActive,
			Subscription: &subscription.Subscription{
				PlanName:  "Bronze",
				Amount:    subscription.Money{Amount: 2990, Currency: "BRL"},
				Status:    subscription.StatusActive,
				StartsAt:  &starts,
				ExpiresAt: &expires,
			},
			Plan:     &subscription.Plan{Key: "bronze", Name: "Bronze", MonthlyLimit: 10},
			Limit:    20,
			DaysLeft: 16,
			Usage:    &subscription.UsageInfo{Used: 15, Remaining: &remaining, Limit: 20},
		}, nil)

		rec := doJSON(t, newServer(t, subs), http.MethodGet, "/subscriptions/me", nil, asUser(userID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"active"`)
		assert.Contains(t, rec.Body.String(), `"monthly_limit":20`)
		assert.Contains(t, rec.Body.String(), `"remaining":5`)
		assert.Contains(t, rec.Body.String(), `"days_left":16`)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		rec := doJSON(t, newServer(t, new(mockSubscriptionService)), http.MethodGet, "/subscriptions/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCancelRenewal(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("cancels renewal", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("CancelRenewal", mock.Anything, userID).Return(&subscription.Subscription{
			PlanName: "Bronze", Status: subscription.StatusActiveUntilEndOfCycle,
		}, nil)

		rec := doJSON(t, newServer(t, subs), http.MethodPut, "/subscriptions/renewal-cancellation", nil, asUser(userID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"renewal_cancelled":true`)
	})

	t.Run("legacy subscription conflicts", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("CancelRenewal", mock.Anything, userID).Return(nil, subscription.ErrNotLinkedToProvider)

		rec := doJSON(t, newServer(t, subs), http.MethodPut, "/subscriptions/renewal-cancellation", nil, asUser(userID))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("no subscription", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("CancelRenewal", mock.Anything, userID).Return(nil, subscription.ErrSubscriptionNotFound)

		rec := doJSON(t, newServer(t, subs), http.MethodPut, "/subscriptions/renewal-cancellation", nil, asUser(userID))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdatePaymentMethod(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("updates card token", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("UpdatePaymentMethod", mock.Anything, userID, "tok_123").Return(nil)

		rec := doJSON(t, newServer(t, subs), http.MethodPut, "/subscriptions/payment-method",
			map[string]any{"card_token": "tok_123"}, asUser(userID))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("UpdatePaymentMethod", mock.Anything, userID, "").Return(subscription.ErrCardTokenRequired)

		rec := doJSON(t, newServer(t, subs), http.MethodPut, "/subscriptions/payment-method",
			map[string]any{}, asUser(userID))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	t.Run("acknowledges valid notification", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("ProcessWebhook", mock.Anything, mock.MatchedBy(func(e *subscription.Event) bool {
			return e.Topic == subscription.TopicPreapproval && e.ResourceID == "mp-1"
		})).Return(nil)

		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/webhooks/mercadopago",
			map[string]any{"topic": "preapproval", "id": "mp-1"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("acknowledges unknown topic", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("ProcessWebhook", mock.Anything, mock.Anything).Return(nil)

		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/webhooks/mercadopago",
			map[string]any{"topic": "merchant_order", "id": "mo-1"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		newServer(t, new(mockSubscriptionService)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("internal failure returns 500 for provider retry", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("ProcessWebhook", mock.Anything, mock.Anything).
			Return(errors.Join(subscription.ErrProviderUnavailable, errors.New("timeout")))

		rec := doJSON(t, newServer(t, subs), http.MethodPost, "/webhooks/mercadopago",
			map[string]any{"topic": "preapproval", "id": "mp-1"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRequireActiveSubscription(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("passes with active subscription", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("ActiveSubscription", mock.Anything, userID).
			Return(&subscription.Subscription{Status: subscription.StatusActive}, nil)

		handler := billing.RequireActiveSubscription(subs)(next)
		rec := doJSON(t, handler, http.MethodGet, "/protected", nil, asUser(userID))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("forbidden without subscription", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("ActiveSubscription", mock.Anything, userID).Return(nil, subscription.ErrNoActiveSubscription)

		handler := billing.RequireActiveSubscription(subs)(next)
		rec := doJSON(t, handler, http.MethodGet, "/protected", nil, asUser(userID))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthorized without user", func(t *testing.T) {
		t.Parallel()

		handler := billing.RequireActiveSubscription(new(mockSubscriptionService))(next)
		rec := doJSON(t, handler, http.MethodGet, "/protected", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireQuota(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("passes under limit", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("CanConsume", mock.Anything, userID).Return(nil)

		handler := billing.RequireQuota(subs)(next)
		rec := doJSON(t, handler, http.MethodPost, "/bookings", nil, asUser(userID))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("forbidden at limit", func(t *testing.T) {
		t.Parallel()

		subs := new(mockSubscriptionService)
		subs.On("CanConsume", mock.Anything, userID).Return(subscription.ErrLimitExceeded)

		handler := billing.RequireQuota(subs)(next)
		rec := doJSON(t, handler, http.MethodPost, "/bookings", nil, asUser(userID))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
