package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/vigil/internal/consent/domain"
	"github.com/google/uuid"
)

// SQLiteAuditRepository stores consent audit records in SQLite.
type SQLiteAuditRepository struct {
	db *sql.DB
}

// NewSQLiteAuditRepository creates a new repository.
func NewSQLiteAuditRepository(db *sql.DB) *SQLiteAuditRepository {
	return &SQLiteAuditRepository{db: db}
}

// Append inserts a record.
func (r *SQLiteAuditRepository) Append(ctx context.Context, record *domain.AuditRecord) error {
	contextJSON, err := json.Marshal(record.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal audit context: %w", err)
	}

	query := `
		INSERT INTO consent_audit_log (
			id, user_id, company_id, capability, has_consent, reason,
			employment_type, plan, agreement_id, context, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		record.ID.String(),
		record.UserID.String(),
		companyIDString(record.CompanyID),
		string(record.Capability),
		record.Decision.HasConsent,
		record.Decision.Reason,
		string(record.Decision.EmploymentType),
		string(record.Decision.Plan),
		agreementIDString(record.Decision.AgreementID),
		string(contextJSON),
		record.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append consent audit record: %w", err)
	}
	return nil
}

// ListByUser returns the newest records for a user first.
func (r *SQLiteAuditRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.AuditRecord, error) {
	query := `
		SELECT id, user_id, company_id, capability, has_consent, reason,
		       employment_type, plan, agreement_id, context, created_at
		FROM consent_audit_log
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AuditRecord
	for rows.Next() {
		var (
			idStr, userIDStr, companyIDStr, capability string
			hasConsent                                 bool
			reason, employmentType, plan, agreementID  string
			contextJSON, createdAtStr                  string
		)
		if err := rows.Scan(
			&idStr, &userIDStr, &companyIDStr, &capability, &hasConsent, &reason,
			&employmentType, &plan, &agreementID, &contextJSON, &createdAtStr,
		); err != nil {
			return nil, err
		}
		createdAt, _ := time.Parse(time.RFC3339, createdAtStr)
		rec, err := buildRecord(idStr, userIDStr, companyIDStr, capability, hasConsent, reason,
			employmentType, plan, agreementID, []byte(contextJSON), createdAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteOlderThan removes records created before cutoff.
func (r *SQLiteAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM consent_audit_log WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune consent audit log: %w", err)
	}
	return res.RowsAffected()
}

var (
	_ domain.AuditLog    = (*SQLiteAuditRepository)(nil)
	_ domain.AuditPruner = (*SQLiteAuditRepository)(nil)
)
