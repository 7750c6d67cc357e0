package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys of capture requests published to capture agents.
const (
	RoutingKeyScreenshotRequested = "capture.screenshot.requested"
	RoutingKeyRecordingRequested  = "capture.recording.requested"
)

// RoutingKey returns the request routing key for a kind.
func (k Kind) RoutingKey() string {
	if k == KindRecording {
		return RoutingKeyRecordingRequested
	}
	return RoutingKeyScreenshotRequested
}

// Request asks the agent running a session to take one capture.
type Request struct {
	RequestID       uuid.UUID `json:"request_id"`
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	CompanyID       string    `json:"company_id"`
	Kind            Kind      `json:"kind"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	RequestedAt     time.Time `json:"requested_at"`
}

// NewRequest builds a request. duration is only meaningful for recordings.
func NewRequest(kind Kind, sessionID, userID, companyID string, duration time.Duration, at time.Time) Request {
	return Request{
		RequestID:       uuid.New(),
		SessionID:       sessionID,
		UserID:          userID,
		CompanyID:       companyID,
		Kind:            kind,
		DurationSeconds: int(duration / time.Second),
		RequestedAt:     at.UTC(),
	}
}
