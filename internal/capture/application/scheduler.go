// Package application runs randomized capture loops for tracked sessions and
// routes session lifecycle events to them.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/vigil/internal/capture/domain"
	"github.com/felixgeelhaar/vigil/pkg/observability"
)

// ErrStopTimeout is returned when a loop does not acknowledge a stop in time.
var ErrStopTimeout = errors.New("capture: task did not stop in time")

// CaptureFunc performs one capture for a session. duration is zero for
// screenshots.
type CaptureFunc func(ctx context.Context, sessionID, userID, companyID string, duration time.Duration) error

// Config parameterizes a scheduler for one capture kind.
type Config struct {
	Kind   domain.Kind
	Bounds domain.IntervalBounds
	// Duration is passed to every callback invocation.
	Duration time.Duration
	// Granularity is the unit intervals are drawn in.
	Granularity time.Duration
	// StopTimeout bounds how long StopTask waits for a loop to exit.
	StopTimeout time.Duration
	// CallbackTimeout bounds a single callback. Zero means unbounded.
	CallbackTimeout time.Duration
}

// ScreenshotConfig is the screenshot scheduler: every 30s to 10m.
func ScreenshotConfig() Config {
	return Config{
		Kind:        domain.KindScreenshot,
		Bounds:      domain.ScreenshotBounds,
		Granularity: time.Second,
		StopTimeout: 30 * time.Second,
	}
}

// RecordingConfig is the screen recording scheduler: a 30s recording every 1m to 15m.
func RecordingConfig() Config {
	return Config{
		Kind:        domain.KindRecording,
		Bounds:      domain.RecordingBounds,
		Duration:    domain.DefaultRecordingDuration,
		Granularity: time.Second,
		StopTimeout: 30 * time.Second,
	}
}

// Stats is a point-in-time view of a scheduler.
type Stats struct {
	Kind    domain.Kind `json:"kind"`
	Active  int         `json:"active"`
	Fired   int64       `json:"fired"`
	Failed  int64       `json:"failed"`
	Skipped int64       `json:"skipped"`
}

type taskHandle struct {
	task   domain.Task
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler owns a registry of capture loops keyed by session id. Each loop
// sleeps a random interval, then invokes the capture callback, until the
// session is stopped.
type Scheduler struct {
	cfg     Config
	metrics observability.Metrics
	logger  *slog.Logger

	// lifecycle serializes StartTask, StopTask and StopAll. It is held while
	// a stop waits for its loop, so a following start never overlaps the old loop.
	lifecycle sync.Mutex

	mu    sync.RWMutex
	tasks map[string]*taskHandle
	// stopping holds loops whose stop timed out. They are no longer active,
	// but a new loop for the session must not start until they exit.
	stopping map[string]*taskHandle
	callback CaptureFunc

	randN func(n int64) int64
	now   func() time.Time

	fired   atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
}

// NewScheduler creates a scheduler. Missing config values fall back to the
// screenshot defaults.
func NewScheduler(cfg Config, metrics observability.Metrics, logger *slog.Logger) *Scheduler {
	if cfg.Kind == "" {
		cfg.Kind = domain.KindScreenshot
	}
	if cfg.Bounds.Validate() != nil {
		if cfg.Kind == domain.KindRecording {
			cfg.Bounds = domain.RecordingBounds
		} else {
			cfg.Bounds = domain.ScreenshotBounds
		}
	}
	if cfg.Granularity <= 0 {
		cfg.Granularity = time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 30 * time.Second
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With("capture_kind", string(cfg.Kind)),
		tasks:    make(map[string]*taskHandle),
		stopping: make(map[string]*taskHandle),
		randN:    rand.Int64N,
		now:      time.Now,
	}
}

// Kind returns the capture kind this scheduler drives.
func (s *Scheduler) Kind() domain.Kind {
	return s.cfg.Kind
}

// SetCallback installs the capture function. Loops that fire without one
// log an error and wait for the next interval.
func (s *Scheduler) SetCallback(fn CaptureFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = fn
}

// StartTask registers a capture loop for the session. It returns false when
// a loop for the session is already running, or when a loop whose stop timed
// out is still inside its callback after another StopTimeout. Zero bounds select the
// scheduler defaults; invalid bounds are logged and replaced by them.
func (s *Scheduler) StartTask(sessionID, userID, companyID string, bounds domain.IntervalBounds) bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.IsTaskActive(sessionID) {
		s.logger.Info("capture task already running", "session_id", sessionID)
		return false
	}
	if !s.awaitStopping(sessionID) {
		s.logger.Error("previous capture task still running, not starting",
			"session_id", sessionID,
			"stop_timeout", s.cfg.StopTimeout,
		)
		return false
	}

	if bounds.IsZero() {
		bounds = s.cfg.Bounds
	} else if err := bounds.Validate(); err != nil {
		s.logger.Warn("ignoring registration bounds",
			"session_id", sessionID,
			"bounds", bounds.String(),
			"error", err,
		)
		bounds = s.cfg.Bounds
	}

	ctx := observability.WithSessionID(context.Background(), sessionID)
	ctx, cancel := context.WithCancel(ctx)
	h := &taskHandle{
		task: domain.Task{
			SessionID: sessionID,
			UserID:    userID,
			CompanyID: companyID,
			Kind:      s.cfg.Kind,
			Bounds:    bounds,
			StartedAt: s.now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.tasks[sessionID] = h
	active := len(s.tasks)
	s.mu.Unlock()

	s.reportActive(active)
	s.logger.Info("capture task started",
		"session_id", sessionID,
		"user_id", userID,
		"company_id", companyID,
		"bounds", bounds.String(),
	)

	go s.run(ctx, h)
	return true
}

// StopTask cancels the session's loop, waits for it to exit and removes the
// registry entry. A missing entry is logged and is not an error. The entry
// is removed even when the wait times out; the error then reports it and a
// later StartTask for the session waits for the old loop to exit.
func (s *Scheduler) StopTask(ctx context.Context, sessionID string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	h, ok := s.tasks[sessionID]
	s.mu.RUnlock()
	if !ok {
		s.logger.Warn("no capture task to stop", "session_id", sessionID)
		return nil
	}

	h.cancel()
	err := s.await(ctx, h)

	s.mu.Lock()
	s.release(h, err != nil)
	active := len(s.tasks)
	s.mu.Unlock()

	s.reportActive(active)
	if err != nil {
		s.logger.Error("capture task did not stop cleanly", "session_id", sessionID, "error", err)
		return err
	}
	s.logger.Info("capture task stopped", "session_id", sessionID)
	return nil
}

// StopAll stops every registered loop. It is safe with no active tasks.
func (s *Scheduler) StopAll(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	handles := make([]*taskHandle, 0, len(s.tasks))
	for _, h := range s.tasks {
		handles = append(handles, h)
	}
	s.mu.RUnlock()

	if len(handles) == 0 {
		return nil
	}
	for _, h := range handles {
		h.cancel()
	}

	var errs []error
	stuck := make(map[*taskHandle]bool, len(handles))
	for _, h := range handles {
		if err := s.await(ctx, h); err != nil {
			errs = append(errs, err)
			stuck[h] = true
		}
	}

	s.mu.Lock()
	for _, h := range handles {
		s.release(h, stuck[h])
	}
	active := len(s.tasks)
	s.mu.Unlock()

	s.reportActive(active)
	s.logger.Info("all capture tasks stopped", "count", len(handles))
	return errors.Join(errs...)
}

// IsTaskActive reports whether a loop is registered for the session.
func (s *Scheduler) IsTaskActive(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tasks[sessionID]
	return ok
}

// ListActiveTasks returns a copy of the registry.
func (s *Scheduler) ListActiveTasks() map[string]domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Task, len(s.tasks))
	for id, h := range s.tasks {
		out[id] = h.task
	}
	return out
}

// Stats returns counters since the scheduler was created.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	active := len(s.tasks)
	s.mu.RUnlock()
	return Stats{
		Kind:    s.cfg.Kind,
		Active:  active,
		Fired:   s.fired.Load(),
		Failed:  s.failed.Load(),
		Skipped: s.skipped.Load(),
	}
}

// DrawInterval picks a uniformly random interval from bounds, inclusive,
// in whole units of the configured granularity.
func (s *Scheduler) DrawInterval(bounds domain.IntervalBounds) time.Duration {
	g := s.cfg.Granularity
	lo := (bounds.Min + g - 1) / g
	hi := bounds.Max / g
	if hi < lo {
		return bounds.Min
	}
	k := lo + time.Duration(s.randN(int64(hi-lo)+1))
	return k * g
}

func (s *Scheduler) run(ctx context.Context, h *taskHandle) {
	defer close(h.done)

	for {
		if ctx.Err() != nil {
			return
		}

		interval := s.DrawInterval(h.task.Bounds)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		// The session may have been stopped while the timer fired.
		if ctx.Err() != nil || !s.isCurrent(h) {
			return
		}
		s.fire(ctx, h.task)
	}
}

// isCurrent reports whether h is still the registered handle for its session.
func (s *Scheduler) isCurrent(h *taskHandle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks[h.task.SessionID] == h
}

// fire invokes the callback once. Errors and panics are logged; they never
// end the loop. A stop does not interrupt an in-flight callback.
func (s *Scheduler) fire(ctx context.Context, task domain.Task) {
	s.mu.RLock()
	callback := s.callback
	s.mu.RUnlock()

	kindTag := observability.T("kind", string(s.cfg.Kind))
	if callback == nil {
		s.skipped.Add(1)
		s.metrics.Counter(observability.MetricCaptureSkipped, 1, kindTag)
		s.logger.ErrorContext(ctx, "capture callback not set, skipping")
		return
	}

	callCtx := context.WithoutCancel(ctx)
	if s.cfg.CallbackTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, s.cfg.CallbackTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.invoke(callCtx, callback, task)
	s.metrics.Timing(observability.MetricCaptureDuration, time.Since(start), kindTag)

	if err != nil {
		s.failed.Add(1)
		s.metrics.Counter(observability.MetricCaptureFailed, 1, kindTag)
		s.logger.ErrorContext(ctx, "capture failed", "user_id", task.UserID, "error", err)
		return
	}
	s.fired.Add(1)
	s.metrics.Counter(observability.MetricCaptureFired, 1, kindTag)
	s.logger.DebugContext(ctx, "capture fired")
}

func (s *Scheduler) invoke(ctx context.Context, callback CaptureFunc, task domain.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture callback panicked: %v", r)
		}
	}()
	return callback(ctx, task.SessionID, task.UserID, task.CompanyID, s.cfg.Duration)
}

// await waits for the loop to exit, bounded by ctx and StopTimeout.
func (s *Scheduler) await(ctx context.Context, h *taskHandle) error {
	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stopping capture task %s: %w", h.task.SessionID, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: session %s after %s", ErrStopTimeout, h.task.SessionID, s.cfg.StopTimeout)
	}
}

// release removes h from the registry. A loop that has not exited yet is
// parked in stopping until it does. Callers hold s.mu.
func (s *Scheduler) release(h *taskHandle, stuck bool) {
	id := h.task.SessionID
	if s.tasks[id] == h {
		delete(s.tasks, id)
	}
	if !stuck {
		return
	}
	s.stopping[id] = h
	go func() {
		<-h.done
		s.mu.Lock()
		if s.stopping[id] == h {
			delete(s.stopping, id)
		}
		s.mu.Unlock()
	}()
}

// awaitStopping waits up to StopTimeout for a timed out loop of the session
// to exit. It reports whether a new loop may start.
func (s *Scheduler) awaitStopping(sessionID string) bool {
	s.mu.RLock()
	h, ok := s.stopping[sessionID]
	s.mu.RUnlock()
	if !ok {
		return true
	}

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-h.done:
	case <-timer.C:
		return false
	}

	s.mu.Lock()
	if s.stopping[sessionID] == h {
		delete(s.stopping, sessionID)
	}
	s.mu.Unlock()
	return true
}

func (s *Scheduler) reportActive(n int) {
	s.metrics.Gauge(observability.MetricCaptureActiveTasks, float64(n), observability.T("kind", string(s.cfg.Kind)))
}
