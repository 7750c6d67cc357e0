package domain

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionRepository defines access for subscription persistence.
// FindByCompanyID returns nil, nil when the company has no subscription.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, subscription *Subscription) error
	FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*Subscription, error)
}
