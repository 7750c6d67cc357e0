package persistence

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/vigil/internal/tracking/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// PostgresTimeEntryRepository implements TimeEntryRepository with PostgreSQL.
type PostgresTimeEntryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTimeEntryRepository creates a new repository.
func NewPostgresTimeEntryRepository(pool *pgxpool.Pool) *PostgresTimeEntryRepository {
	return &PostgresTimeEntryRepository{pool: pool}
}

// Save inserts or updates a time entry.
func (r *PostgresTimeEntryRepository) Save(ctx context.Context, entry *domain.TimeEntry) error {
	query := `
		INSERT INTO time_entries (id, user_id, company_id, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET ended_at = EXCLUDED.ended_at
	`
	_, err := r.pool.Exec(ctx, query, entry.ID, entry.UserID, entry.CompanyID, entry.StartedAt, entry.EndedAt)
	if err != nil {
		return fmt.Errorf("failed to save time entry: %w", err)
	}
	return nil
}

// FindByID returns the entry or ErrTimeEntryNotFound.
func (r *PostgresTimeEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TimeEntry, error) {
	query := `SELECT id, user_id, company_id, started_at, ended_at FROM time_entries WHERE id = $1`
	var e domain.TimeEntry
	err := r.pool.QueryRow(ctx, query, id).Scan(&e.ID, &e.UserID, &e.CompanyID, &e.StartedAt, &e.EndedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrTimeEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListRunning returns running entries, oldest first.
func (r *PostgresTimeEntryRepository) ListRunning(ctx context.Context, companyIDs []uuid.UUID) ([]*domain.TimeEntry, error) {
	ids := make([]string, len(companyIDs))
	for i, id := range companyIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT id, user_id, company_id, started_at, ended_at
		FROM time_entries
		WHERE ended_at IS NULL
		  AND (cardinality($1::uuid[]) = 0 OR company_id = ANY($1::uuid[]))
		ORDER BY started_at
	`
	rows, err := r.pool.Query(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.TimeEntry
	for rows.Next() {
		var e domain.TimeEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.CompanyID, &e.StartedAt, &e.EndedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

var _ domain.TimeEntryRepository = (*PostgresTimeEntryRepository)(nil)
