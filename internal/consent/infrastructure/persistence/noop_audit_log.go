package persistence

import (
	"context"

	"github.com/felixgeelhaar/vigil/internal/consent/domain"
)

// NoopAuditLog discards records.
type NoopAuditLog struct{}

func (NoopAuditLog) Append(context.Context, *domain.AuditRecord) error { return nil }

var _ domain.AuditLog = NoopAuditLog{}
