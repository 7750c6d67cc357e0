package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidBounds is returned for interval ranges that are empty or non-positive.
var ErrInvalidBounds = errors.New("capture: invalid interval bounds")

// Kind is a capture track. Each kind runs its own scheduler.
type Kind string

const (
	KindScreenshot Kind = "screenshot"
	KindRecording  Kind = "recording"
)

// Default interval ranges and recording length.
var (
	ScreenshotBounds = IntervalBounds{Min: 30 * time.Second, Max: 600 * time.Second}
	RecordingBounds  = IntervalBounds{Min: 60 * time.Second, Max: 900 * time.Second}
)

// DefaultRecordingDuration is the length of each screen recording.
const DefaultRecordingDuration = 30 * time.Second

// IntervalBounds is the inclusive range a capture interval is drawn from.
type IntervalBounds struct {
	Min time.Duration
	Max time.Duration
}

// IsZero reports whether no bounds were given.
func (b IntervalBounds) IsZero() bool {
	return b.Min == 0 && b.Max == 0
}

// Validate rejects non-positive or inverted ranges.
func (b IntervalBounds) Validate() error {
	if b.Min <= 0 || b.Max < b.Min {
		return fmt.Errorf("%w: [%s, %s]", ErrInvalidBounds, b.Min, b.Max)
	}
	return nil
}

func (b IntervalBounds) String() string {
	return fmt.Sprintf("[%s, %s]", b.Min, b.Max)
}

// Task is the registry entry of one running capture loop.
type Task struct {
	SessionID string
	UserID    string
	CompanyID string
	Kind      Kind
	Bounds    IntervalBounds
	StartedAt time.Time
}
