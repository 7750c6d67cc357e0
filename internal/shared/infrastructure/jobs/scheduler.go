// Package jobs runs periodic maintenance work on cron expressions.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a unit of periodic work.
type Job interface {
	Name() string
	// Schedule is a standard five-field cron expression or a descriptor
	// such as "@daily" or "@every 30s".
	Schedule() string
	Run(ctx context.Context) error
}

// Scheduler executes registered jobs on their schedules. A job whose previous
// run is still in progress skips the tick instead of running in parallel.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger}
}

// Register adds a job. Duplicate names are rejected.
func (s *Scheduler) Register(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.jobs {
		if existing.Name() == j.Name() {
			return fmt.Errorf("jobs: duplicate job name %q", j.Name())
		}
	}
	s.jobs = append(s.jobs, j)
	return nil
}

// Start parses every schedule and begins executing jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	for _, j := range s.jobs {
		job := j
		var running sync.Mutex
		_, err := c.AddFunc(job.Schedule(), func() {
			if !running.TryLock() {
				s.logger.Warn("jobs: previous run still active, skipping", "job", job.Name())
				return
			}
			defer running.Unlock()

			if err := job.Run(ctx); err != nil {
				s.logger.Error("jobs: run failed", "job", job.Name(), "error", err)
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("jobs: invalid schedule for %q: %w", job.Name(), err)
		}
	}

	s.cron = c
	s.cancel = cancel
	c.Start()
	s.logger.Info("jobs: scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels the job context and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
		s.logger.Info("jobs: scheduler stopped")
	}
}
