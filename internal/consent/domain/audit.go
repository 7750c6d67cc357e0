package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is an immutable trace of one consent check.
type AuditRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	CompanyID  uuid.UUID
	Capability Capability
	Decision   Decision
	Context    map[string]string
	CreatedAt  time.Time
}

// NewAuditRecord stamps a new record. The context map is copied.
func NewAuditRecord(userID, companyID uuid.UUID, capability Capability, decision Decision, context map[string]string) *AuditRecord {
	copied := make(map[string]string, len(context))
	for k, v := range context {
		copied[k] = v
	}
	return &AuditRecord{
		ID:         uuid.New(),
		UserID:     userID,
		CompanyID:  companyID,
		Capability: capability,
		Decision:   decision,
		Context:    copied,
		CreatedAt:  time.Now().UTC(),
	}
}

// AuditLog appends consent audit records. Records are never updated.
type AuditLog interface {
	Append(ctx context.Context, record *AuditRecord) error
}

// AuditPruner removes records older than a cutoff. Only table backed logs implement it.
type AuditPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
