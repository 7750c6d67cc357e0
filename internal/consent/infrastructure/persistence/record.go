package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	billing "github.com/felixgeelhaar/vigil/internal/billing/domain"
	"github.com/felixgeelhaar/vigil/internal/consent/domain"
	workforce "github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/google/uuid"
)

func companyIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func agreementIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// buildRecord reassembles a record from its flat column values.
func buildRecord(
	idStr, userIDStr, companyIDStr, capability string,
	hasConsent bool,
	reason, employmentType, plan, agreementIDStr string,
	contextJSON []byte,
	createdAt time.Time,
) (*domain.AuditRecord, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid audit record id %q: %w", idStr, err)
	}
	userID, _ := uuid.Parse(userIDStr)
	var companyID uuid.UUID
	if companyIDStr != "" {
		companyID, _ = uuid.Parse(companyIDStr)
	}

	decision := domain.Decision{
		HasConsent:     hasConsent,
		EmploymentType: workforce.EmploymentType(employmentType),
		Plan:           billing.Plan(plan),
		Reason:         reason,
	}
	if agreementIDStr != "" {
		if agreementID, err := uuid.Parse(agreementIDStr); err == nil {
			decision = decision.WithAgreement(agreementID)
		}
	}

	ctx := map[string]string{}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &ctx); err != nil {
			return nil, fmt.Errorf("invalid audit context for %s: %w", idStr, err)
		}
	}

	return &domain.AuditRecord{
		ID:         id,
		UserID:     userID,
		CompanyID:  companyID,
		Capability: domain.Capability(capability),
		Decision:   decision,
		Context:    ctx,
		CreatedAt:  createdAt,
	}, nil
}
