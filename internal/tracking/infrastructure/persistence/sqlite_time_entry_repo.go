package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/vigil/internal/tracking/domain"
	"github.com/google/uuid"
)

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteTimeEntryRepository implements TimeEntryRepository with SQLite.
type SQLiteTimeEntryRepository struct {
	db *sql.DB
}

// NewSQLiteTimeEntryRepository creates a new repository.
func NewSQLiteTimeEntryRepository(db *sql.DB) *SQLiteTimeEntryRepository {
	return &SQLiteTimeEntryRepository{db: db}
}

// Save inserts or updates a time entry.
func (r *SQLiteTimeEntryRepository) Save(ctx context.Context, entry *domain.TimeEntry) error {
	var endedAt sql.NullString
	if entry.EndedAt != nil {
		endedAt = sql.NullString{String: entry.EndedAt.UTC().Format(timeLayout), Valid: true}
	}

	query := `
		INSERT INTO time_entries (id, user_id, company_id, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET ended_at = excluded.ended_at
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID.String(),
		entry.UserID.String(),
		entry.CompanyID.String(),
		entry.StartedAt.UTC().Format(timeLayout),
		endedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save time entry: %w", err)
	}
	return nil
}

// FindByID returns the entry or ErrTimeEntryNotFound.
func (r *SQLiteTimeEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TimeEntry, error) {
	query := `SELECT id, user_id, company_id, started_at, ended_at FROM time_entries WHERE id = ?`
	entry, err := scanSQLiteEntry(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTimeEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// ListRunning returns running entries, oldest first.
func (r *SQLiteTimeEntryRepository) ListRunning(ctx context.Context, companyIDs []uuid.UUID) ([]*domain.TimeEntry, error) {
	query := `SELECT id, user_id, company_id, started_at, ended_at FROM time_entries WHERE ended_at IS NULL`
	args := make([]any, 0, len(companyIDs))
	if len(companyIDs) > 0 {
		placeholders := make([]string, len(companyIDs))
		for i, id := range companyIDs {
			placeholders[i] = "?"
			args = append(args, id.String())
		}
		query += ` AND company_id IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY started_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.TimeEntry
	for rows.Next() {
		entry, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row rowScanner) (*domain.TimeEntry, error) {
	var (
		idStr, userIDStr, companyIDStr, startedAtStr string
		endedAtStr                                   sql.NullString
	)
	if err := row.Scan(&idStr, &userIDStr, &companyIDStr, &startedAtStr, &endedAtStr); err != nil {
		return nil, err
	}

	id, _ := uuid.Parse(idStr)
	userID, _ := uuid.Parse(userIDStr)
	companyID, _ := uuid.Parse(companyIDStr)
	startedAt, _ := time.Parse(timeLayout, startedAtStr)

	entry := &domain.TimeEntry{ID: id, UserID: userID, CompanyID: companyID, StartedAt: startedAt}
	if endedAtStr.Valid {
		t, _ := time.Parse(timeLayout, endedAtStr.String)
		entry.EndedAt = &t
	}
	return entry, nil
}

var _ domain.TimeEntryRepository = (*SQLiteTimeEntryRepository)(nil)
