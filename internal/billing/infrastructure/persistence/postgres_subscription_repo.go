package persistence

import (
	"context"
	"time"

	"github.com/felixgeelhaar/vigil/internal/billing/domain"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSubscriptionRepository implements SubscriptionRepository with PostgreSQL.
type PostgresSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSubscriptionRepository creates a new repository.
func NewPostgresSubscriptionRepository(pool *pgxpool.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Upsert inserts or updates the subscription of a company.
func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, company_id, plan, status, current_period_end,
			stripe_customer_id, stripe_subscription_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), NOW())
		ON CONFLICT (company_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			current_period_end = EXCLUDED.current_period_end,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			updated_at = NOW()
	`
	var createdAt *time.Time
	if !subscription.CreatedAt.IsZero() {
		createdAt = &subscription.CreatedAt
	}
	_, err := r.pool.Exec(ctx, query,
		subscription.ID,
		subscription.CompanyID,
		string(subscription.Plan),
		string(subscription.Status),
		subscription.CurrentPeriodEnd,
		subscription.StripeCustomerID,
		subscription.StripeSubscriptionID,
		createdAt,
	)
	return err
}

// FindByCompanyID returns the subscription for a company.
func (r *PostgresSubscriptionRepository) FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*domain.Subscription, error) {
	query := `
		SELECT id, company_id, plan, status, current_period_end,
		       stripe_customer_id, stripe_subscription_id, created_at, updated_at
		FROM subscriptions
		WHERE company_id = $1
	`
	var row struct {
		id                   uuid.UUID
		companyID            uuid.UUID
		plan                 string
		status               string
		currentPeriodEnd     *time.Time
		stripeCustomerID     string
		stripeSubscriptionID string
		createdAt            time.Time
		updatedAt            time.Time
	}

	err := r.pool.QueryRow(ctx, query, companyID).Scan(
		&row.id,
		&row.companyID,
		&row.plan,
		&row.status,
		&row.currentPeriodEnd,
		&row.stripeCustomerID,
		&row.stripeSubscriptionID,
		&row.createdAt,
		&row.updatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}

	return &domain.Subscription{
		ID:                   row.id,
		CompanyID:            row.companyID,
		Plan:                 domain.Plan(row.plan),
		Status:               domain.SubscriptionStatus(row.status),
		CurrentPeriodEnd:     row.currentPeriodEnd,
		StripeCustomerID:     row.stripeCustomerID,
		StripeSubscriptionID: row.stripeSubscriptionID,
		CreatedAt:            row.createdAt,
		UpdatedAt:            row.updatedAt,
	}, nil
}

var _ domain.SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
