package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper is the part of the confirmation gate the sweep job drives.
type Sweeper interface {
	Sweep(ctx context.Context) (expired, reclaimed int)
	PendingCount() int
}

// PendingGauge receives the number of open confirmations after each sweep.
type PendingGauge interface {
	SetPending(n int)
}

// ConfirmationSweepJob expires overdue confirmations and reclaims resolved
// ones past retention, so the table does not grow without bound.
type ConfirmationSweepJob struct {
	Gate         Sweeper
	Gauge        PendingGauge // optional
	Logger       *slog.Logger
	ScheduleExpr string // empty = every minute
}

var _ Job = (*ConfirmationSweepJob)(nil)

// Name implements Job.
func (j *ConfirmationSweepJob) Name() string { return "confirmation_sweep" }

// Schedule implements Job.
func (j *ConfirmationSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "* * * * *"
}

// Run implements Job.
func (j *ConfirmationSweepJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: confirmation sweep cancelled: %w", ctx.Err())
	}
	expired, reclaimed := j.Gate.Sweep(ctx)
	pending := j.Gate.PendingCount()
	if j.Gauge != nil {
		j.Gauge.SetPending(pending)
	}
	if expired > 0 || reclaimed > 0 {
		j.Logger.Info("cron: swept confirmations", "expired", expired, "reclaimed", reclaimed, "pending", pending)
	}
	return nil
}

// Pruner deletes audit records resolved before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditPruneJob removes persisted confirmations older than Retention.
type AuditPruneJob struct {
	Store        Pruner
	Retention    time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = hourly
	Now          func() time.Time
}

var _ Job = (*AuditPruneJob)(nil)

// Name implements Job.
func (j *AuditPruneJob) Name() string { return "audit_prune" }

// Schedule implements Job.
func (j *AuditPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run implements Job.
func (j *AuditPruneJob) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	n, err := j.Store.Prune(ctx, now().Add(-j.Retention))
	if err != nil {
		return fmt.Errorf("cron: audit prune: %w", err)
	}
	if n > 0 {
		j.Logger.Info("cron: pruned audit records", "count", n, "retention", j.Retention)
	}
	return nil
}
