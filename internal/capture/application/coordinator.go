package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/vigil/internal/capture/domain"
	consent "github.com/felixgeelhaar/vigil/internal/consent/domain"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/eventbus"
	tracking "github.com/felixgeelhaar/vigil/internal/tracking/domain"
	"github.com/google/uuid"
)

// ConsentChecker is the part of the consent gate the coordinator needs.
type ConsentChecker interface {
	CheckScreenshotConsent(ctx context.Context, userID uuid.UUID) consent.Decision
	CheckScreenRecordingConsent(ctx context.Context, userID, companyID uuid.UUID) consent.Decision
	LogConsentCheck(ctx context.Context, userID, companyID uuid.UUID, capability consent.Capability, decision consent.Decision, details map[string]string)
}

// SessionSource lists sessions that are currently tracked.
type SessionSource interface {
	ListRunning(ctx context.Context, companyIDs []uuid.UUID) ([]*tracking.TimeEntry, error)
}

// Coordinator starts and stops capture loops as time entries start and
// stop. Every start is gated by consent.
type Coordinator struct {
	screenshots *Scheduler
	recordings  *Scheduler
	consent     ConsentChecker
	sessions    SessionSource
	companyIDs  []uuid.UUID
	logger      *slog.Logger

	mu sync.Mutex
	// tracked maps every session evaluated by StartSession to its company.
	tracked map[uuid.UUID]uuid.UUID
}

// NewCoordinator creates a coordinator. companyIDs optionally restricts
// Restore to those tenants.
func NewCoordinator(
	screenshots, recordings *Scheduler,
	checker ConsentChecker,
	sessions SessionSource,
	companyIDs []uuid.UUID,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		screenshots: screenshots,
		recordings:  recordings,
		consent:     checker,
		sessions:    sessions,
		companyIDs:  companyIDs,
		logger:      logger,
		tracked:     make(map[uuid.UUID]uuid.UUID),
	}
}

// EventTypes returns the time entry lifecycle routing keys.
func (c *Coordinator) EventTypes() []string {
	return []string{tracking.RoutingKeyTimeEntryStarted, tracking.RoutingKeyTimeEntryStopped}
}

// Handle reacts to a time entry event. Malformed payloads are logged and
// acknowledged; redelivery would not fix them.
func (c *Coordinator) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload tracking.TimeEntryEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.TimeEntryID == uuid.Nil {
		c.logger.Error("dropping malformed time entry event",
			"event_id", event.EventID,
			"routing_key", event.RoutingKey,
			"error", err,
		)
		return nil
	}

	switch event.RoutingKey {
	case tracking.RoutingKeyTimeEntryStarted:
		c.StartSession(ctx, payload.TimeEntryID, payload.UserID, payload.CompanyID, "session_started")
		return nil
	case tracking.RoutingKeyTimeEntryStopped:
		return c.StopSession(ctx, payload.TimeEntryID)
	default:
		c.logger.Warn("unexpected routing key", "routing_key", event.RoutingKey)
		return nil
	}
}

// StartSession registers capture loops for every capability the user has
// consented to. trigger is recorded in the consent audit trail.
func (c *Coordinator) StartSession(ctx context.Context, sessionID, userID, companyID uuid.UUID, trigger string) {
	c.mu.Lock()
	c.tracked[sessionID] = companyID
	c.mu.Unlock()

	details := map[string]string{"session_id": sessionID.String(), "trigger": trigger}

	screenshot := c.consent.CheckScreenshotConsent(ctx, userID)
	c.consent.LogConsentCheck(ctx, userID, companyID, consent.CapabilityScreenshot, screenshot, details)
	if screenshot.HasConsent {
		c.screenshots.StartTask(sessionID.String(), userID.String(), companyID.String(), domain.IntervalBounds{})
	} else {
		c.logger.Info("screenshots not permitted",
			"session_id", sessionID,
			"user_id", userID,
			"reason", screenshot.Reason,
		)
	}

	recording := c.consent.CheckScreenRecordingConsent(ctx, userID, companyID)
	c.consent.LogConsentCheck(ctx, userID, companyID, consent.CapabilityScreenRecording, recording, details)
	if recording.HasConsent {
		c.recordings.StartTask(sessionID.String(), userID.String(), companyID.String(), domain.IntervalBounds{})
	} else {
		c.logger.Info("screen recording not permitted",
			"session_id", sessionID,
			"user_id", userID,
			"reason", recording.Reason,
		)
	}
}

// StopSession stops both capture loops of a session.
func (c *Coordinator) StopSession(ctx context.Context, sessionID uuid.UUID) error {
	c.mu.Lock()
	delete(c.tracked, sessionID)
	c.mu.Unlock()

	id := sessionID.String()
	return errors.Join(
		c.screenshots.StopTask(ctx, id),
		c.recordings.StopTask(ctx, id),
	)
}

// SessionActive reports which capture loops run for a session.
func (c *Coordinator) SessionActive(sessionID uuid.UUID) (screenshots, recordings bool) {
	id := sessionID.String()
	return c.screenshots.IsTaskActive(id), c.recordings.IsTaskActive(id)
}

// Restore re-registers capture loops for sessions that were running before
// the process started. It returns the number of sessions considered.
func (c *Coordinator) Restore(ctx context.Context) (int, error) {
	if c.sessions == nil {
		return 0, nil
	}
	entries, err := c.sessions.ListRunning(ctx, c.companyIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to list running sessions: %w", err)
	}
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		c.StartSession(ctx, e.ID, e.UserID, e.CompanyID, "restore")
	}
	c.logger.Info("capture sessions restored", "sessions", len(entries))
	return len(entries), nil
}

// Reconcile aligns capture loops with the running time entries. Sessions
// whose entry has ended are stopped, and running entries no earlier pass has
// seen are started. It catches lifecycle changes made by processes whose
// events never reach this one.
func (c *Coordinator) Reconcile(ctx context.Context) (started, stopped int, err error) {
	if c.sessions == nil {
		return 0, 0, nil
	}

	// Snapshot before listing so a session started meanwhile is not stopped.
	tracked := c.trackedSessions()
	entries, err := c.sessions.ListRunning(ctx, c.companyIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list running sessions: %w", err)
	}
	running := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		running[e.ID] = struct{}{}
	}

	var errs []error
	for sessionID, companyID := range tracked {
		if _, ok := running[sessionID]; ok || !c.inScope(companyID) {
			continue
		}
		if err := c.StopSession(ctx, sessionID); err != nil {
			errs = append(errs, err)
		}
		stopped++
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if c.isTracked(e.ID) {
			continue
		}
		c.StartSession(ctx, e.ID, e.UserID, e.CompanyID, "reconcile")
		started++
	}

	if started > 0 || stopped > 0 {
		c.logger.Info("capture sessions reconciled", "started", started, "stopped", stopped)
	}
	return started, stopped, errors.Join(errs...)
}

func (c *Coordinator) trackedSessions() map[uuid.UUID]uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uuid.UUID]uuid.UUID, len(c.tracked))
	for id, company := range c.tracked {
		out[id] = company
	}
	return out
}

func (c *Coordinator) isTracked(sessionID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tracked[sessionID]
	return ok
}

// inScope reports whether ListRunning covers the company.
func (c *Coordinator) inScope(companyID uuid.UUID) bool {
	if len(c.companyIDs) == 0 {
		return true
	}
	for _, id := range c.companyIDs {
		if id == companyID {
			return true
		}
	}
	return false
}

// Shutdown stops every loop of both schedulers.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	clear(c.tracked)
	c.mu.Unlock()

	return errors.Join(
		c.screenshots.StopAll(ctx),
		c.recordings.StopAll(ctx),
	)
}

var _ eventbus.EventConsumer = (*Coordinator)(nil)
