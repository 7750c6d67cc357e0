package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the current billing state.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree         Plan = "free"
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanBusiness     Plan = "business"
)

var (
	ErrUnknownPlan   = errors.New("unknown plan")
	ErrUnknownStatus = errors.New("unknown subscription status")
)

// ParsePlan parses a plan name case-insensitively.
func ParsePlan(value string) (Plan, error) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(value))); p {
	case PlanFree, PlanStarter, PlanProfessional, PlanBusiness:
		return p, nil
	default:
		return "", ErrUnknownPlan
	}
}

// ParseSubscriptionStatus parses a subscription status name.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	switch s := SubscriptionStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue, SubscriptionCanceled:
		return s, nil
	default:
		return "", ErrUnknownStatus
	}
}

// AllowsScreenRecording reports whether the plan includes screen recording.
func (p Plan) AllowsScreenRecording() bool {
	return p == PlanBusiness
}

// Subscription represents a company's subscription.
type Subscription struct {
	ID                   uuid.UUID
	CompanyID            uuid.UUID
	Plan                 Plan
	Status               SubscriptionStatus
	CurrentPeriodEnd     *time.Time
	StripeCustomerID     string
	StripeSubscriptionID string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewSubscription creates an active subscription for a company.
func NewSubscription(companyID uuid.UUID, plan Plan) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		ID:        uuid.New(),
		CompanyID: companyID,
		Plan:      plan,
		Status:    SubscriptionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EffectivePlan is the plan in force. A canceled subscription falls back to free.
func (s *Subscription) EffectivePlan() Plan {
	if s.Status == SubscriptionCanceled {
		return PlanFree
	}
	return s.Plan
}
