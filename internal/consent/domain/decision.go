package domain

import (
	billing "github.com/felixgeelhaar/vigil/internal/billing/domain"
	workforce "github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/google/uuid"
)

// Reasons attached to consent decisions.
const (
	ReasonManualTrackingOnly  = "manual tracking only"
	ReasonVoluntary           = "voluntary"
	ReasonNoActiveAgreement   = "no active work agreement found"
	ReasonGrantedByAgreement  = "consent granted in work agreement"
	ReasonNotGrantedAgreement = "consent not granted in work agreement"
	ReasonPlanNotEligible     = "screen recording requires the business plan"
	ReasonFullTimeOnly        = "screen recording is reserved for full-time employees"
	ReasonUserNotFound        = "user not found"
	ReasonLookupFailed        = "consent lookup failed"
)

// Decision is the outcome of one consent check. It is computed on every
// query and never cached.
type Decision struct {
	HasConsent     bool                     `json:"has_consent"`
	EmploymentType workforce.EmploymentType `json:"employment_type,omitempty"`
	Plan           billing.Plan             `json:"plan,omitempty"`
	AgreementID    *uuid.UUID               `json:"agreement_id,omitempty"`
	Reason         string                   `json:"reason"`
}

// Granted builds an allowing decision.
func Granted(employmentType workforce.EmploymentType, reason string) Decision {
	return Decision{HasConsent: true, EmploymentType: employmentType, Reason: reason}
}

// Denied builds a refusing decision.
func Denied(employmentType workforce.EmploymentType, reason string) Decision {
	return Decision{HasConsent: false, EmploymentType: employmentType, Reason: reason}
}

// WithAgreement records the agreement the decision was based on.
func (d Decision) WithAgreement(id uuid.UUID) Decision {
	d.AgreementID = &id
	return d
}

// WithPlan records the company plan the decision was based on.
func (d Decision) WithPlan(plan billing.Plan) Decision {
	d.Plan = plan
	return d
}
