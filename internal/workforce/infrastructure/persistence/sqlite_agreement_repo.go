package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/google/uuid"
)

// SQLiteAgreementRepository implements AgreementRepository with SQLite.
type SQLiteAgreementRepository struct {
	db *sql.DB
}

// NewSQLiteAgreementRepository creates a new repository.
func NewSQLiteAgreementRepository(db *sql.DB) *SQLiteAgreementRepository {
	return &SQLiteAgreementRepository{db: db}
}

// Save inserts or updates a work agreement.
func (r *SQLiteAgreementRepository) Save(ctx context.Context, a *domain.WorkAgreement) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT INTO work_agreements (
			id, employee_id, company_id, status, admin_signed, employee_signed,
			auto_timer_consent, screenshot_consent, activity_tracking_consent,
			screen_recording_consent, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			admin_signed = excluded.admin_signed,
			employee_signed = excluded.employee_signed,
			auto_timer_consent = excluded.auto_timer_consent,
			screenshot_consent = excluded.screenshot_consent,
			activity_tracking_consent = excluded.activity_tracking_consent,
			screen_recording_consent = excluded.screen_recording_consent,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(),
		a.EmployeeID.String(),
		a.CompanyID.String(),
		string(a.Status),
		boolToInt(a.AdminSigned),
		boolToInt(a.EmployeeSigned),
		boolToInt(a.AutoTimerConsent),
		boolToInt(a.ScreenshotConsent),
		boolToInt(a.ActivityTrackingConsent),
		boolToInt(a.ScreenRecordingConsent),
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save work agreement: %w", err)
	}
	return nil
}

// FindActiveSigned returns the employee's single active, fully signed agreement.
func (r *SQLiteAgreementRepository) FindActiveSigned(ctx context.Context, employeeID uuid.UUID) (*domain.WorkAgreement, error) {
	// Two rows are enough to detect ambiguity.
	query := `
		SELECT id, employee_id, company_id, status, admin_signed, employee_signed,
		       auto_timer_consent, screenshot_consent, activity_tracking_consent,
		       screen_recording_consent, created_at, updated_at
		FROM work_agreements
		WHERE employee_id = ? AND status = ? AND admin_signed = 1 AND employee_signed = 1
		LIMIT 2
	`
	rows, err := r.db.QueryContext(ctx, query, employeeID.String(), string(domain.AgreementActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*domain.WorkAgreement
	for rows.Next() {
		a, err := scanSQLiteAgreement(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pickSingle(found)
}

func scanSQLiteAgreement(rows *sql.Rows) (*domain.WorkAgreement, error) {
	var (
		idStr, employeeIDStr, companyIDStr, status string
		adminSigned, employeeSigned             int
		autoTimer, screenshot, activity, screen int
		createdAtStr, updatedAtStr              string
	)
	if err := rows.Scan(
		&idStr, &employeeIDStr, &companyIDStr, &status,
		&adminSigned, &employeeSigned,
		&autoTimer, &screenshot, &activity, &screen,
		&createdAtStr, &updatedAtStr,
	); err != nil {
		return nil, err
	}

	id, _ := uuid.Parse(idStr)
	employeeID, _ := uuid.Parse(employeeIDStr)
	companyID, _ := uuid.Parse(companyIDStr)
	createdAt, _ := time.Parse(time.RFC3339, createdAtStr)
	updatedAt, _ := time.Parse(time.RFC3339, updatedAtStr)

	return &domain.WorkAgreement{
		ID:                      id,
		EmployeeID:              employeeID,
		CompanyID:               companyID,
		Status:                  domain.AgreementStatus(status),
		AdminSigned:             adminSigned == 1,
		EmployeeSigned:          employeeSigned == 1,
		AutoTimerConsent:        autoTimer == 1,
		ScreenshotConsent:       screenshot == 1,
		ActivityTrackingConsent: activity == 1,
		ScreenRecordingConsent:  screen == 1,
		CreatedAt:               createdAt,
		UpdatedAt:               updatedAt,
	}, nil
}

// pickSingle enforces agreement uniqueness for both drivers.
func pickSingle(found []*domain.WorkAgreement) (*domain.WorkAgreement, error) {
	switch len(found) {
	case 0:
		return nil, domain.ErrAgreementNotFound
	case 1:
		return found[0], nil
	default:
		return nil, domain.ErrAgreementAmbiguous
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ domain.AgreementRepository = (*SQLiteAgreementRepository)(nil)
