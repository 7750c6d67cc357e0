package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/google/uuid"
)

// SQLiteEmployeeRepository implements EmployeeRepository with SQLite.
type SQLiteEmployeeRepository struct {
	db *sql.DB
}

// NewSQLiteEmployeeRepository creates a new repository.
func NewSQLiteEmployeeRepository(db *sql.DB) *SQLiteEmployeeRepository {
	return &SQLiteEmployeeRepository{db: db}
}

// Save inserts or updates an employee.
func (r *SQLiteEmployeeRepository) Save(ctx context.Context, employee *domain.Employee) error {
	now := time.Now().UTC()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	employee.UpdatedAt = now

	query := `
		INSERT INTO employees (id, company_id, email, name, employment_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			company_id = excluded.company_id,
			email = excluded.email,
			name = excluded.name,
			employment_type = excluded.employment_type,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		employee.ID.String(),
		employee.CompanyID.String(),
		employee.Email,
		employee.Name,
		string(employee.EmploymentType),
		employee.CreatedAt.Format(time.RFC3339),
		employee.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// FindByID returns the employee or ErrEmployeeNotFound.
func (r *SQLiteEmployeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	query := `
		SELECT id, company_id, email, name, employment_type, created_at, updated_at
		FROM employees
		WHERE id = ?
	`
	var (
		idStr, companyIDStr, email, name, employmentType string
		createdAtStr, updatedAtStr                       string
	)
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr, &companyIDStr, &email, &name, &employmentType, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, err
	}

	et, err := domain.ParseEmploymentType(employmentType)
	if err != nil {
		return nil, fmt.Errorf("employee %s: %w", idStr, err)
	}
	parsedID, _ := uuid.Parse(idStr)
	companyID, _ := uuid.Parse(companyIDStr)
	createdAt, _ := time.Parse(time.RFC3339, createdAtStr)
	updatedAt, _ := time.Parse(time.RFC3339, updatedAtStr)

	return &domain.Employee{
		ID:             parsedID,
		CompanyID:      companyID,
		Email:          email,
		Name:           name,
		EmploymentType: et,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

var _ domain.EmployeeRepository = (*SQLiteEmployeeRepository)(nil)
