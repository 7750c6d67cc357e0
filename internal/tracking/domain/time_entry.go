package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTimeEntryNotFound = errors.New("time entry not found")
	ErrAlreadyStopped    = errors.New("time entry already stopped")
)

// TimeEntry is a tracked work session. A running entry has no end time.
type TimeEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CompanyID uuid.UUID
	StartedAt time.Time
	EndedAt   *time.Time
}

// NewTimeEntry starts a new running entry.
func NewTimeEntry(userID, companyID uuid.UUID) *TimeEntry {
	return &TimeEntry{
		ID:        uuid.New(),
		UserID:    userID,
		CompanyID: companyID,
		StartedAt: time.Now().UTC(),
	}
}

// IsRunning reports whether the entry is still being tracked.
func (e *TimeEntry) IsRunning() bool {
	return e.EndedAt == nil
}

// Stop ends the entry at the given time.
func (e *TimeEntry) Stop(at time.Time) error {
	if !e.IsRunning() {
		return ErrAlreadyStopped
	}
	at = at.UTC()
	e.EndedAt = &at
	return nil
}

// Duration is the tracked time so far, or in total once stopped.
func (e *TimeEntry) Duration() time.Duration {
	if e.EndedAt == nil {
		return time.Since(e.StartedAt)
	}
	return e.EndedAt.Sub(e.StartedAt)
}

// TimeEntryRepository defines persistence for time entries.
type TimeEntryRepository interface {
	Save(ctx context.Context, entry *TimeEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*TimeEntry, error)

	// ListRunning returns running entries, restricted to companyIDs when non-empty.
	ListRunning(ctx context.Context, companyIDs []uuid.UUID) ([]*TimeEntry, error)
}
