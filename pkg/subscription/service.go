package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agendahub/billing/pkg/mercadopago"
)

// Service defines the public interface for subscription management.
type Service interface {
	// Plan catalog
	Plans(ctx context.Context) ([]Plan, error)
	RegisterPlan(ctx context.Context, input RegisterPlanInput) (*Plan, error)

	// Lifecycle
	Subscribe(ctx context.Context, input SubscribeInput) (*Checkout, error)
	Current(ctx context.Context, userID uuid.UUID) (*Overview, error)
	CancelRenewal(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	UpdatePaymentMethod(ctx context.Context, userID uuid.UUID, cardToken string) error

	// Reconciliation
	Reconcile(ctx context.Context, remoteID string) error
	ProcessWebhook(ctx context.Context, event *Event) error

	// Access gating
	ActiveSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	CanConsume(ctx context.Context, userID uuid.UUID) error
}

// PlanCache caches the public plan listing. Losing the cache only affects
// listing latency, never billing correctness.
type PlanCache interface {
	Get(ctx context.Context) ([]Plan, bool)
	Set(ctx context.Context, plans []Plan)
	Invalidate(ctx context.Context)
}

// SubscribeInput describes a checkout request.
type SubscribeInput struct {
	UserID  uuid.UUID
	Email   string
	PlanKey string
	BackURL string // optional override of the configured post-checkout redirect
}

// Checkout is the result of a successful checkout creation: the user must
// be redirected to URL to authorize payment.
type Checkout struct {
	SubscriptionID       uuid.UUID
	RemoteSubscriptionID string
	URL                  string
}

// RegisterPlanInput describes an administrative plan registration.
type RegisterPlanInput struct {
	Key           string
	Name          string
	Price         Money
	Frequency     int
	FrequencyUnit string
	MonthlyLimit  int64
}

// OverviewState classifies the "my subscription" read result.
type OverviewState string

const (
	// OverviewNone: no open subscription, or the last one expired.
	OverviewNone OverviewState = "none"
	// OverviewLegacy: a subscription exists but was never linked to the
	// provider; the user must re-subscribe to migrate.
	OverviewLegacy OverviewState = "legacy"
	// OverviewPending: checkout created, awaiting payment confirmation.
	OverviewPending OverviewState = "pending"
	// OverviewActive: a granting subscription with period and usage data.
	OverviewActive OverviewState = "active"
)

// Overview is the client-facing subscription read.
type Overview struct {
	State        OverviewState
	Subscription *Subscription
	Plan         *Plan // nil for plan-less subscriptions
	Limit        int64 // effective limit after catalog overrides; 0 = unlimited
	DaysLeft     int
	Usage        *UsageInfo
}

// RenewalCancelled reports whether automatic renewal was cancelled.
func (o *Overview) RenewalCancelled() bool {
	return o.Subscription != nil && o.Subscription.RenewalCancelled()
}

// Option configures optional service settings.
type Option func(*service)

// WithCatalog installs operator limit overrides.
func WithCatalog(c *Catalog) Option {
	return func(s *service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithPlanCache installs a plan listing cache.
func WithPlanCache(c PlanCache) Option {
	return func(s *service) { s.planCache = c }
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, for tests with fixed time values.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

type service struct {
	store    Store
	plans    PlanStore
	provider Provider
	counter  UsageCounterFunc
	checkout CheckoutConfig

	catalog   *Catalog
	planCache PlanCache
	log       *slog.Logger
	now       func() time.Time
}

// NewService creates a subscription Service. Panics if required
// dependencies are nil to fail fast during initialization.
func NewService(store Store, plans PlanStore, provider Provider, counter UsageCounterFunc, checkout CheckoutConfig, opts ...Option) Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if plans == nil {
		panic("subscription: PlanStore is required")
	}
	if provider == nil {
		panic("subscription: Provider is required")
	}
	if counter == nil {
		panic("subscription: UsageCounterFunc is required")
	}

	s := &service{
		store:    store,
		plans:    plans,
		provider: provider,
		counter:  counter,
		checkout: checkout,
		catalog:  NewCatalog(nil),
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plans lists active plans, serving from cache when available.
func (s *service) Plans(ctx context.Context) ([]Plan, error) {
	if s.planCache != nil {
		if plans, ok := s.planCache.Get(ctx); ok {
			return plans, nil
		}
	}

	plans, err := s.plans.Active(ctx)
	if err != nil {
		return nil, err
	}

	if s.planCache != nil {
		s.planCache.Set(ctx, plans)
	}
	return plans, nil
}

// RegisterPlan registers a plan with the provider and persists the link.
// Idempotency rule: a plan already holding a remote plan id is never
// re-registered; the caller gets a conflict instead of a silent overwrite.
func (s *service) RegisterPlan(ctx context.Context, input RegisterPlanInput) (*Plan, error) {
	if input.Key == "" || input.Name == "" || input.Price.Amount <= 0 {
		return nil, ErrInvalidPlanInput
	}

	key := strings.ToLower(input.Key)
	frequency := input.Frequency
	if frequency <= 0 {
		frequency = 1
	}
	frequencyUnit := input.FrequencyUnit
	if frequencyUnit == "" {
		frequencyUnit = "months"
	}
	currency := input.Price.Currency
	if currency == "" {
		currency = s.currency()
	}

	existing, err := s.plans.ByKey(ctx, key)
	if err != nil && !errors.Is(err, ErrPlanNotFound) {
		return nil, err
	}
	if existing != nil && existing.Linked() {
		return nil, ErrPlanAlreadyLinked
	}

	resp, err := s.provider.CreatePlan(ctx, mercadopago.PlanRequest{
		Reason: input.Name,
		AutoRecurring: mercadopago.AutoRecurring{
			Frequency:         frequency,
			FrequencyType:     frequencyUnit,
			TransactionAmount: input.Price.Float(),
			CurrencyID:        currency,
		},
	})
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	remotePlanID := mercadopago.SubscriptionID(resp)
	if remotePlanID == "" {
		return nil, fmt.Errorf("%w: provider returned no plan id", ErrProviderUnavailable)
	}

	now := s.now()
	var plan *Plan
	if existing != nil {
		existing.RemotePlanID = remotePlanID
		existing.Price = Money{Amount: input.Price.Amount, Currency: currency}
		existing.Frequency = frequency
		existing.FrequencyUnit = frequencyUnit
		existing.UpdatedAt = now
		if err := s.plans.Update(ctx, existing); err != nil {
			return nil, err
		}
		plan = existing
	} else {
		plan = &Plan{
			ID:            uuid.New(),
			Key:           key,
			Name:          input.Name,
			MonthlyLimit:  input.MonthlyLimit,
			Price:         Money{Amount: input.Price.Amount, Currency: currency},
			Frequency:     frequency,
			FrequencyUnit: frequencyUnit,
			RemotePlanID:  remotePlanID,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.plans.Create(ctx, plan); err != nil {
			return nil, err
		}
	}

	if s.planCache != nil {
		s.planCache.Invalidate(ctx)
	}
	return plan, nil
}

// Subscribe creates a provider checkout for the given plan and persists a
// pending subscription. Any granting subscription the user already has is
// superseded in the same transaction that inserts the new record, so the
// single-active invariant holds even under retried or concurrent requests.
func (s *service) Subscribe(ctx context.Context, input SubscribeInput) (*Checkout, error) {
	if input.PlanKey == "" {
		return nil, ErrPlanKeyRequired
	}
	if s.checkout.WebhookURL == "" {
		return nil, ErrWebhookURLNotConfigured
	}

	plan, err := s.plans.ByKey(ctx, strings.ToLower(input.PlanKey))
	if err != nil {
		return nil, err
	}
	if !plan.IsActive || !plan.Linked() {
		return nil, fmt.Errorf("%w: plan %q is not available for checkout", ErrPlanNotFound, plan.Key)
	}

	backURL := input.BackURL
	if backURL == "" {
		backURL = s.checkout.BackURL
	}

	resp, err := s.provider.CreatePreapproval(ctx, mercadopago.PreapprovalRequest{
		PreapprovalPlanID: plan.RemotePlanID,
		PayerEmail:        input.Email,
		BackURL:           backURL,
		NotificationURL:   s.checkout.WebhookURL,
	})
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	remoteID := mercadopago.SubscriptionID(resp)
	checkoutURL := mercadopago.SelectCheckoutURL(resp, s.checkout.Sandbox)
	if remoteID == "" || checkoutURL == "" {
		return nil, fmt.Errorf("%w: response carried no subscription id or redirect target", ErrNoCheckoutURL)
	}

	now := s.now()
	planID := plan.ID
	sub := &Subscription{
		ID:                   uuid.New(),
		UserID:               input.UserID,
		PlanID:               &planID,
		RemotePlanID:         plan.RemotePlanID,
		RemoteSubscriptionID: remoteID,
		PlanName:             plan.Name,
		Amount:               plan.Price,
		Frequency:            plan.Frequency,
		FrequencyUnit:        plan.FrequencyUnit,
		Status:               StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.CreatePending(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription checkout created",
		"subscription_id", sub.ID,
		"remote_subscription_id", remoteID,
		"plan", plan.Key,
	)

	return &Checkout{
		SubscriptionID:       sub.ID,
		RemoteSubscriptionID: remoteID,
		URL:                  checkoutURL,
	}, nil
}

// Current implements the "my subscription" read: it reconciles remote state
// first, lazily expires stale records, and derives usage for the current
// billing window.
func (s *service) Current(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	sub, err := s.store.Latest(ctx, userID, OpenStatuses...)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return &Overview{State: OverviewNone}, nil
		}
		return nil, err
	}

	if sub.Linked() {
		// A provider outage degrades the read to local state instead of
		// failing it; the next read self-heals any divergence.
		if synced, err := s.reconcileRecord(ctx, sub); err != nil {
			s.log.WarnContext(ctx, "failed to sync subscription with provider",
				"subscription_id", sub.ID, "error", err)
		} else {
			sub = synced
		}
	} else {
		return &Overview{State: OverviewLegacy, Subscription: sub}, nil
	}

	switch {
	case sub.Status == StatusPending:
		return &Overview{State: OverviewPending, Subscription: sub}, nil
	case sub.Status == StatusCanceled:
		return &Overview{State: OverviewNone}, nil
	}

	now := s.now()
	if sub.ExpiredAt(now) {
		if err := s.store.SetStatus(ctx, sub.ID, StatusCanceled, nil); err != nil {
			return nil, err
		}
		return &Overview{State: OverviewNone}, nil
	}

	overview := &Overview{
		State:        OverviewActive,
		Subscription: sub,
		DaysLeft:     sub.DaysLeftAt(now),
	}

	if sub.PlanID != nil {
		plan, err := s.plans.ByID(ctx, *sub.PlanID)
		if err != nil && !errors.Is(err, ErrPlanNotFound) {
			return nil, err
		}
		if plan != nil {
			overview.Plan = plan
			overview.Limit = s.catalog.LimitFor(plan.Key, plan.MonthlyLimit)
		}
	}

	used := int64(0)
	if sub.StartsAt != nil && sub.ExpiresAt != nil {
		used, err = s.counter(ctx, userID, *sub.StartsAt, *sub.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to count usage: %w", err)
		}
	}
	usage := newUsageInfo(used, overview.Limit)
	overview.Usage = &usage

	return overview, nil
}

// CancelRenewal pauses the remote subscription and marks the local record
// active until the end of the current cycle. Legacy records without a
// remote id are force-canceled locally, and the caller is told to
// re-subscribe since there is nothing to pause remotely.
func (s *service) CancelRenewal(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.Latest(ctx, userID, GrantingStatuses...)
	if err != nil {
		return nil, err
	}

	if !sub.Linked() {
		if err := s.store.SetStatus(ctx, sub.ID, StatusCanceled, nil); err != nil {
			return nil, err
		}
		return nil, ErrNotLinkedToProvider
	}

	if err := s.provider.PauseSubscription(ctx, sub.RemoteSubscriptionID); err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	// If this update fails we are left with remote=paused, local=active;
	// the next reconciliation read maps paused back onto
	// active_until_end_of_cycle, so the divergence self-heals.
	if err := s.store.SetStatus(ctx, sub.ID, StatusActiveUntilEndOfCycle, nil); err != nil {
		return nil, err
	}
	sub.Status = StatusActiveUntilEndOfCycle

	s.log.InfoContext(ctx, "subscription renewal cancelled",
		"subscription_id", sub.ID, "remote_subscription_id", sub.RemoteSubscriptionID)
	return sub, nil
}

// UpdatePaymentMethod forwards a tokenized card to the provider for the
// user's current subscription. Local status is never altered.
func (s *service) UpdatePaymentMethod(ctx context.Context, userID uuid.UUID, cardToken string) error {
	if cardToken == "" {
		return ErrCardTokenRequired
	}

	sub, err := s.store.Latest(ctx, userID, GrantingStatuses...)
	if err != nil {
		return err
	}
	if !sub.Linked() {
		return ErrNotLinkedToProvider
	}

	if err := s.provider.UpdateCardToken(ctx, sub.RemoteSubscriptionID, cardToken); err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	return nil
}

// Reconcile fetches canonical remote state for the given remote id and
// applies it to the local record. Unknown local ids return
// ErrSubscriptionNotFound; reprocessing identical remote state is a no-op,
// which makes duplicated or out-of-order webhook deliveries harmless.
func (s *service) Reconcile(ctx context.Context, remoteID string) error {
	sub, err := s.store.ByRemoteID(ctx, remoteID)
	if err != nil {
		return err
	}

	_, err = s.reconcileRecord(ctx, sub)
	return err
}

// reconcileRecord pulls remote state and persists any divergence. Returns
// the updated record. canceled is terminal: once local state is canceled,
// nothing the provider reports can revive it.
func (s *service) reconcileRecord(ctx context.Context, sub *Subscription) (*Subscription, error) {
	remote, err := s.provider.GetSubscription(ctx, sub.RemoteSubscriptionID)
	if err != nil {
		if mercadopago.IsNotFound(err) {
			// A missing remote subscription is intentional termination,
			// never transient. No-op when already canceled.
			if sub.Status == StatusCanceled {
				return sub, nil
			}
			if err := s.store.SetStatus(ctx, sub.ID, StatusCanceled, nil); err != nil {
				return nil, err
			}
			sub.Status = StatusCanceled
			s.log.InfoContext(ctx, "subscription canceled: remote record gone",
				"subscription_id", sub.ID)
			return sub, nil
		}
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	if sub.Status.Terminal() {
		return sub, nil
	}

	changed := false

	if mapped, ok := MapRemoteStatus(mercadopago.SubscriptionStatus(remote)); ok && mapped != sub.Status {
		sub.Status = mapped
		changed = true
	}

	if start := mercadopago.PeriodStart(remote); start != nil {
		if sub.StartsAt == nil || !sub.StartsAt.Equal(*start) {
			sub.StartsAt = start
			changed = true
		}
	}
	if end := mercadopago.PeriodEnd(remote); end != nil {
		if sub.ExpiresAt == nil || !sub.ExpiresAt.Equal(*end) {
			sub.ExpiresAt = end
			changed = true
		}
	}

	if !changed {
		return sub, nil
	}

	sub.UpdatedAt = s.now()
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription reconciled",
		"subscription_id", sub.ID, "status", sub.Status)
	return sub, nil
}

// ProcessWebhook dispatches a parsed provider notification. The payload is
// only a trigger: every path re-fetches canonical remote state. Unknown
// topics, unknown ids, and payments unrelated to subscriptions are all
// acknowledged silently so the provider does not retry forever.
func (s *service) ProcessWebhook(ctx context.Context, event *Event) error {
	if event == nil || event.ResourceID == "" {
		return nil
	}

	remoteID := ""
	switch event.Topic {
	case TopicPayment:
		payment, err := s.provider.GetPayment(ctx, event.ResourceID)
		if err != nil {
			if mercadopago.IsNotFound(err) {
				s.log.WarnContext(ctx, "webhook for unknown payment", "payment_id", event.ResourceID)
				return nil
			}
			return errors.Join(ErrProviderUnavailable, err)
		}
		remoteID = mercadopago.PaymentPreapprovalID(payment)
		if remoteID == "" {
			// One-off payment, not subscription related.
			return nil
		}
	case TopicPreapproval, "subscription_preapproval":
		remoteID = event.ResourceID
	default:
		return nil
	}

	if err := s.Reconcile(ctx, remoteID); err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			s.log.WarnContext(ctx, "webhook for unknown subscription", "remote_subscription_id", remoteID)
			return nil
		}
		return err
	}
	return nil
}

// ActiveSubscription returns the user's granting subscription, lazily
// expiring stale records first. Returns ErrNoActiveSubscription when the
// user has no access.
func (s *service) ActiveSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.Latest(ctx, userID, GrantingStatuses...)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}

	if sub.ExpiredAt(s.now()) {
		if err := s.store.SetStatus(ctx, sub.ID, StatusCanceled, nil); err != nil {
			return nil, err
		}
		return nil, ErrNoActiveSubscription
	}

	return sub, nil
}

// CanConsume checks whether the user may consume one more unit within the
// current billing window. Plan-less and unlimited plans always pass.
func (s *service) CanConsume(ctx context.Context, userID uuid.UUID) error {
	sub, err := s.ActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}

	if sub.PlanID == nil || sub.StartsAt == nil || sub.ExpiresAt == nil {
		return nil
	}

	plan, err := s.plans.ByID(ctx, *sub.PlanID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return nil
		}
		return err
	}

	limit := s.catalog.LimitFor(plan.Key, plan.MonthlyLimit)
	if limit <= 0 {
		return nil
	}

	used, err := s.counter(ctx, userID, *sub.StartsAt, *sub.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to count usage: %w", err)
	}
	if used >= limit {
		return ErrLimitExceeded
	}
	return nil
}

func (s *service) currency() string {
	if s.checkout.Currency != "" {
		return s.checkout.Currency
	}
	return "BRL"
}
