package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `id, user_id, plan_id, remote_plan_id, remote_subscription_id,
	plan_name, amount_cents, currency, frequency, frequency_unit,
	starts_at, expires_at, status, created_at, updated_at`

// PGStore implements Store backed by PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed subscription store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("subscription: pgxpool is required")
	}
	return &PGStore{pool: pool}
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) Latest(ctx context.Context, userID uuid.UUID, statuses ...Status) (*Subscription, error) {
	if len(statuses) == 0 {
		statuses = OpenStatuses
	}
	return s.scanOne(ctx, fmt.Sprintf(`
		SELECT %s FROM subscriptions
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1`, subscriptionColumns),
		userID, statusStrings(statuses))
}

func (s *PGStore) ByRemoteID(ctx context.Context, remoteID string) (*Subscription, error) {
	return s.scanOne(ctx, fmt.Sprintf(`
		SELECT %s FROM subscriptions
		WHERE remote_subscription_id = $1`, subscriptionColumns),
		remoteID)
}

// CreatePending supersedes any granting subscription the user holds and
// inserts the new pending record in one transaction, keeping the
// single-active invariant under concurrent checkouts.
func (s *PGStore) CreatePending(ctx context.Context, sub *Subscription) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		UPDATE subscriptions
		SET status = $3, expires_at = $4, updated_at = $4
		WHERE user_id = $1 AND status = ANY($2)`,
		sub.UserID, statusStrings(GrantingStatuses), string(StatusCanceled), sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("supersede granting subscriptions: %w", err)
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO subscriptions (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`, subscriptionColumns),
		sub.ID, sub.UserID, sub.PlanID, sub.RemotePlanID, sub.RemoteSubscriptionID,
		sub.PlanName, sub.Amount.Amount, sub.Amount.Currency, sub.Frequency, sub.FrequencyUnit,
		sub.StartsAt, sub.ExpiresAt, string(sub.Status), sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}
	return nil
}

func (s *PGStore) SetStatus(ctx context.Context, id uuid.UUID, status Status, expiresAt *time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = $2, expires_at = COALESCE($3, expires_at), updated_at = NOW()
		WHERE id = $1`, id, string(status), expiresAt)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, sub *Subscription) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = $2, starts_at = $3, expires_at = $4, updated_at = $5
		WHERE id = $1`,
		sub.ID, string(sub.Status), sub.StartsAt, sub.ExpiresAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *PGStore) scanOne(ctx context.Context, query string, args ...any) (*Subscription, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query subscription: %w", err)
		}
		return nil, ErrSubscriptionNotFound
	}
	return scanSubscription(rows)
}

func scanSubscription(rows pgx.Rows) (*Subscription, error) {
	var (
		sub    Subscription
		status string
	)
	err := rows.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.RemotePlanID, &sub.RemoteSubscriptionID,
		&sub.PlanName, &sub.Amount.Amount, &sub.Amount.Currency, &sub.Frequency, &sub.FrequencyUnit,
		&sub.StartsAt, &sub.ExpiresAt, &status, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.Status = Status(status)
	return &sub, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

const planColumns = `id, key, name, monthly_limit, price_cents, currency,
	frequency, frequency_unit, remote_plan_id, is_active, created_at, updated_at`

// PGPlanStore implements PlanStore backed by PostgreSQL.
type PGPlanStore struct {
	pool *pgxpool.Pool
}

// NewPGPlanStore creates a Postgres-backed plan store.
func NewPGPlanStore(pool *pgxpool.Pool) *PGPlanStore {
	if pool == nil {
		panic("subscription: pgxpool is required")
	}
	return &PGPlanStore{pool: pool}
}

var _ PlanStore = (*PGPlanStore)(nil)

func (s *PGPlanStore) ByKey(ctx context.Context, key string) (*Plan, error) {
	return s.scanOne(ctx, fmt.Sprintf(`SELECT %s FROM plans WHERE key = $1`, planColumns), key)
}

func (s *PGPlanStore) ByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return s.scanOne(ctx, fmt.Sprintf(`SELECT %s FROM plans WHERE id = $1`, planColumns), id)
}

func (s *PGPlanStore) Active(ctx context.Context) ([]Plan, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM plans
		WHERE is_active = true
		ORDER BY price_cents ASC`, planColumns))
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func (s *PGPlanStore) Create(ctx context.Context, plan *Plan) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO plans (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`, planColumns),
		plan.ID, plan.Key, plan.Name, plan.MonthlyLimit, plan.Price.Amount, plan.Price.Currency,
		plan.Frequency, plan.FrequencyUnit, plan.RemotePlanID, plan.IsActive,
		plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *PGPlanStore) Update(ctx context.Context, plan *Plan) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE plans
		SET name = $2, monthly_limit = $3, price_cents = $4, currency = $5,
			frequency = $6, frequency_unit = $7, remote_plan_id = $8,
			is_active = $9, updated_at = $10
		WHERE id = $1`,
		plan.ID, plan.Name, plan.MonthlyLimit, plan.Price.Amount, plan.Price.Currency,
		plan.Frequency, plan.FrequencyUnit, plan.RemotePlanID, plan.IsActive, plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (s *PGPlanStore) scanOne(ctx context.Context, query string, args ...any) (*Plan, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query plan: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query plan: %w", err)
		}
		return nil, ErrPlanNotFound
	}
	return scanPlan(rows)
}

func scanPlan(rows pgx.Rows) (*Plan, error) {
	var plan Plan
	err := rows.Scan(&plan.ID, &plan.Key, &plan.Name, &plan.MonthlyLimit,
		&plan.Price.Amount, &plan.Price.Currency, &plan.Frequency, &plan.FrequencyUnit,
		&plan.RemotePlanID, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return &plan, nil
}

// NewPGUsageCounter counts appointments booked within a billing window.
// Pending, confirmed, and rescheduled appointments consume quota;
// cancellations release it. The window is half-open: [from, to).
func NewPGUsageCounter(pool *pgxpool.Pool) UsageCounterFunc {
	return func(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error) {
		var count int64
		err := pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM appointments
			WHERE user_id = $1
			  AND status IN ('pending', 'confirmed', 'rescheduled')
			  AND created_at >= $2 AND created_at < $3`,
			userID, from, to).Scan(&count)
		if err != nil {
			return 0, fmt.Errorf("count appointments: %w", err)
		}
		return count, nil
	}
}
