package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/vigil/internal/consent/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAuditRepository stores consent audit records in PostgreSQL.
type PostgresAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditRepository creates a new repository.
func NewPostgresAuditRepository(pool *pgxpool.Pool) *PostgresAuditRepository {
	return &PostgresAuditRepository{pool: pool}
}

// Append inserts a record.
func (r *PostgresAuditRepository) Append(ctx context.Context, record *domain.AuditRecord) error {
	contextJSON, err := json.Marshal(record.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal audit context: %w", err)
	}

	query := `
		INSERT INTO consent_audit_log (
			id, user_id, company_id, capability, has_consent, reason,
			employment_type, plan, agreement_id, context, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		companyIDString(record.CompanyID),
		string(record.Capability),
		record.Decision.HasConsent,
		record.Decision.Reason,
		string(record.Decision.EmploymentType),
		string(record.Decision.Plan),
		agreementIDString(record.Decision.AgreementID),
		contextJSON,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append consent audit record: %w", err)
	}
	return nil
}

// ListByUser returns the newest records for a user first.
func (r *PostgresAuditRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.AuditRecord, error) {
	query := `
		SELECT id, user_id, company_id, capability, has_consent, reason,
		       employment_type, plan, agreement_id, context, created_at
		FROM consent_audit_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AuditRecord
	for rows.Next() {
		var (
			id, uid                           uuid.UUID
			companyID, capability, reason     string
			hasConsent                        bool
			employmentType, plan, agreementID string
			contextJSON                       []byte
			createdAt                         time.Time
		)
		if err := rows.Scan(
			&id, &uid, &companyID, &capability, &hasConsent, &reason,
			&employmentType, &plan, &agreementID, &contextJSON, &createdAt,
		); err != nil {
			return nil, err
		}
		rec, err := buildRecord(id.String(), uid.String(), companyID, capability, hasConsent, reason,
			employmentType, plan, agreementID, contextJSON, createdAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteOlderThan removes records created before cutoff.
func (r *PostgresAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM consent_audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune consent audit log: %w", err)
	}
	return tag.RowsAffected(), nil
}

var (
	_ domain.AuditLog    = (*PostgresAuditRepository)(nil)
	_ domain.AuditPruner = (*PostgresAuditRepository)(nil)
)
