package persistence

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEmployeeRepository implements EmployeeRepository with PostgreSQL.
type PostgresEmployeeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEmployeeRepository creates a new repository.
func NewPostgresEmployeeRepository(pool *pgxpool.Pool) *PostgresEmployeeRepository {
	return &PostgresEmployeeRepository{pool: pool}
}

// Save inserts or updates an employee.
func (r *PostgresEmployeeRepository) Save(ctx context.Context, employee *domain.Employee) error {
	query := `
		INSERT INTO employees (id, company_id, email, name, employment_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			company_id = EXCLUDED.company_id,
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			employment_type = EXCLUDED.employment_type,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		employee.ID,
		employee.CompanyID,
		employee.Email,
		employee.Name,
		string(employee.EmploymentType),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// FindByID returns the employee or ErrEmployeeNotFound.
func (r *PostgresEmployeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	query := `
		SELECT id, company_id, email, name, employment_type, created_at, updated_at
		FROM employees
		WHERE id = $1
	`
	var (
		e              domain.Employee
		employmentType string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.CompanyID, &e.Email, &e.Name, &employmentType, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, err
	}

	e.EmploymentType, err = domain.ParseEmploymentType(employmentType)
	if err != nil {
		return nil, fmt.Errorf("employee %s: %w", e.ID, err)
	}
	return &e, nil
}

var _ domain.EmployeeRepository = (*PostgresEmployeeRepository)(nil)
