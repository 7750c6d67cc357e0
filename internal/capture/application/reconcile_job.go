package application

import (
	"context"
	"time"
)

// ReconcileJob runs Coordinator.Reconcile on a fixed interval.
type ReconcileJob struct {
	coordinator *Coordinator
	interval    time.Duration
}

// NewReconcileJob creates the job. Intervals below one second are raised to one second.
func NewReconcileJob(coordinator *Coordinator, interval time.Duration) *ReconcileJob {
	if interval < time.Second {
		interval = time.Second
	}
	return &ReconcileJob{coordinator: coordinator, interval: interval}
}

func (j *ReconcileJob) Name() string     { return "capture-reconcile" }
func (j *ReconcileJob) Schedule() string { return "@every " + j.interval.String() }

func (j *ReconcileJob) Run(ctx context.Context) error {
	_, _, err := j.coordinator.Reconcile(ctx)
	return err
}
