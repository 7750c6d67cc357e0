package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/vigil/internal/consent/domain"
)

// AuditRetentionJob prunes consent audit records past the retention period.
type AuditRetentionJob struct {
	pruner    domain.AuditPruner
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuditRetentionJob creates the job. retentionDays below one is treated as one.
func NewAuditRetentionJob(pruner domain.AuditPruner, retentionDays int, schedule string, logger *slog.Logger) *AuditRetentionJob {
	if retentionDays < 1 {
		retentionDays = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditRetentionJob{
		pruner:    pruner,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  schedule,
		logger:    logger,
		now:       time.Now,
	}
}

func (j *AuditRetentionJob) Name() string     { return "consent-audit-retention" }
func (j *AuditRetentionJob) Schedule() string { return j.schedule }

// Run deletes every record older than the retention period.
func (j *AuditRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)
	deleted, err := j.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	j.logger.Info("pruned consent audit log", "deleted", deleted, "cutoff", cutoff.UTC())
	return nil
}
