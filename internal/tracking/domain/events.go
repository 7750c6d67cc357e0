package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys of time entry lifecycle events.
const (
	RoutingKeyTimeEntryStarted = "tracking.time_entry.started"
	RoutingKeyTimeEntryStopped = "tracking.time_entry.stopped"
)

// TimeEntryEvent is the payload of both lifecycle events.
type TimeEntryEvent struct {
	TimeEntryID uuid.UUID `json:"time_entry_id"`
	UserID      uuid.UUID `json:"user_id"`
	CompanyID   uuid.UUID `json:"company_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewTimeEntryEvent builds the event payload for an entry.
func NewTimeEntryEvent(entry *TimeEntry, at time.Time) TimeEntryEvent {
	return TimeEntryEvent{
		TimeEntryID: entry.ID,
		UserID:      entry.UserID,
		CompanyID:   entry.CompanyID,
		OccurredAt:  at.UTC(),
	}
}
