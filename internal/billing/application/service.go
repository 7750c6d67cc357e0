package application

import (
	"context"

	"github.com/felixgeelhaar/vigil/internal/billing/domain"
	"github.com/google/uuid"
)

// Service provides subscription access.
type Service struct {
	subscriptions domain.SubscriptionRepository
}

// NewService creates a new billing service.
func NewService(subscriptions domain.SubscriptionRepository) *Service {
	return &Service{subscriptions: subscriptions}
}

// GetSubscription returns the company's subscription, if any.
func (s *Service) GetSubscription(ctx context.Context, companyID uuid.UUID) (*domain.Subscription, error) {
	if s == nil || s.subscriptions == nil {
		return nil, nil
	}
	return s.subscriptions.FindByCompanyID(ctx, companyID)
}

// PlanForCompany returns the plan in force for the company, or "" when the
// company has never subscribed.
func (s *Service) PlanForCompany(ctx context.Context, companyID uuid.UUID) (domain.Plan, error) {
	sub, err := s.GetSubscription(ctx, companyID)
	if err != nil {
		return "", err
	}
	if sub == nil {
		return "", nil
	}
	return sub.EffectivePlan(), nil
}
