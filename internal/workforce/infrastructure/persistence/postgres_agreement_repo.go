package persistence

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAgreementRepository implements AgreementRepository with PostgreSQL.
type PostgresAgreementRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAgreementRepository creates a new repository.
func NewPostgresAgreementRepository(pool *pgxpool.Pool) *PostgresAgreementRepository {
	return &PostgresAgreementRepository{pool: pool}
}

// Save inserts or updates a work agreement.
func (r *PostgresAgreementRepository) Save(ctx context.Context, a *domain.WorkAgreement) error {
	query := `
		INSERT INTO work_agreements (
			id, employee_id, company_id, status, admin_signed, employee_signed,
			auto_timer_consent, screenshot_consent, activity_tracking_consent,
			screen_recording_consent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			admin_signed = EXCLUDED.admin_signed,
			employee_signed = EXCLUDED.employee_signed,
			auto_timer_consent = EXCLUDED.auto_timer_consent,
			screenshot_consent = EXCLUDED.screenshot_consent,
			activity_tracking_consent = EXCLUDED.activity_tracking_consent,
			screen_recording_consent = EXCLUDED.screen_recording_consent,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID, a.EmployeeID, a.CompanyID, string(a.Status),
		a.AdminSigned, a.EmployeeSigned,
		a.AutoTimerConsent, a.ScreenshotConsent, a.ActivityTrackingConsent, a.ScreenRecordingConsent,
	)
	if err != nil {
		return fmt.Errorf("failed to save work agreement: %w", err)
	}
	return nil
}

// FindActiveSigned returns the employee's single active, fully signed agreement.
func (r *PostgresAgreementRepository) FindActiveSigned(ctx context.Context, employeeID uuid.UUID) (*domain.WorkAgreement, error) {
	query := `
		SELECT id, employee_id, company_id, status, admin_signed, employee_signed,
		       auto_timer_consent, screenshot_consent, activity_tracking_consent,
		       screen_recording_consent, created_at, updated_at
		FROM work_agreements
		WHERE employee_id = $1 AND status = $2 AND admin_signed AND employee_signed
		LIMIT 2
	`
	rows, err := r.pool.Query(ctx, query, employeeID, string(domain.AgreementActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*domain.WorkAgreement
	for rows.Next() {
		var (
			a      domain.WorkAgreement
			status string
		)
		if err := rows.Scan(
			&a.ID, &a.EmployeeID, &a.CompanyID, &status,
			&a.AdminSigned, &a.EmployeeSigned,
			&a.AutoTimerConsent, &a.ScreenshotConsent, &a.ActivityTrackingConsent, &a.ScreenRecordingConsent,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		a.Status = domain.AgreementStatus(status)
		found = append(found, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pickSingle(found)
}

var _ domain.AgreementRepository = (*PostgresAgreementRepository)(nil)
