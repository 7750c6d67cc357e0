package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/felixgeelhaar/vigil/internal/billing/domain"
	"github.com/google/uuid"
)

// SQLiteSubscriptionRepository implements SubscriptionRepository with SQLite.
type SQLiteSubscriptionRepository struct {
	db *sql.DB
}

// NewSQLiteSubscriptionRepository creates a new repository.
func NewSQLiteSubscriptionRepository(db *sql.DB) *SQLiteSubscriptionRepository {
	return &SQLiteSubscriptionRepository{db: db}
}

// Upsert inserts or updates the subscription of a company.
func (r *SQLiteSubscriptionRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var currentPeriodEnd sql.NullString
	if subscription.CurrentPeriodEnd != nil {
		currentPeriodEnd = sql.NullString{
			String: subscription.CurrentPeriodEnd.UTC().Format(time.RFC3339),
			Valid:  true,
		}
	}

	query := `
		INSERT INTO subscriptions (
			id, company_id, plan, status, current_period_end,
			stripe_customer_id, stripe_subscription_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id) DO UPDATE SET
			plan = excluded.plan,
			status = excluded.status,
			current_period_end = excluded.current_period_end,
			stripe_customer_id = excluded.stripe_customer_id,
			stripe_subscription_id = excluded.stripe_subscription_id,
			updated_at = excluded.updated_at
	`

	createdAt := subscription.CreatedAt.UTC().Format(time.RFC3339)
	if subscription.CreatedAt.IsZero() {
		createdAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		subscription.ID.String(),
		subscription.CompanyID.String(),
		string(subscription.Plan),
		string(subscription.Status),
		currentPeriodEnd,
		subscription.StripeCustomerID,
		subscription.StripeSubscriptionID,
		createdAt,
		now,
	)
	return err
}

// FindByCompanyID returns the subscription for a company.
func (r *SQLiteSubscriptionRepository) FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*domain.Subscription, error) {
	query := `
		SELECT id, company_id, plan, status, current_period_end,
		       stripe_customer_id, stripe_subscription_id, created_at, updated_at
		FROM subscriptions
		WHERE company_id = ?
	`

	var (
		idStr                string
		companyIDStr         string
		plan                 string
		status               string
		currentPeriodEndStr  sql.NullString
		stripeCustomerID     string
		stripeSubscriptionID string
		createdAtStr         string
		updatedAtStr         string
	)

	err := r.db.QueryRowContext(ctx, query, companyID.String()).Scan(
		&idStr,
		&companyIDStr,
		&plan,
		&status,
		&currentPeriodEndStr,
		&stripeCustomerID,
		&stripeSubscriptionID,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	id, _ := uuid.Parse(idStr)
	parsedCompanyID, _ := uuid.Parse(companyIDStr)
	createdAt, _ := time.Parse(time.RFC3339, createdAtStr)
	updatedAt, _ := time.Parse(time.RFC3339, updatedAtStr)

	var currentPeriodEnd *time.Time
	if currentPeriodEndStr.Valid {
		t, _ := time.Parse(time.RFC3339, currentPeriodEndStr.String)
		currentPeriodEnd = &t
	}

	return &domain.Subscription{
		ID:                   id,
		CompanyID:            parsedCompanyID,
		Plan:                 domain.Plan(plan),
		Status:               domain.SubscriptionStatus(status),
		CurrentPeriodEnd:     currentPeriodEnd,
		StripeCustomerID:     stripeCustomerID,
		StripeSubscriptionID: stripeSubscriptionID,
		CreatedAt:            createdAt,
		UpdatedAt:            updatedAt,
	}, nil
}

var _ domain.SubscriptionRepository = (*SQLiteSubscriptionRepository)(nil)
