// Package cron runs periodic maintenance: expiring stale confirmations and
// pruning the audit store.
package cron

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job.
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/5 * * * *").
	Schedule() string

	// Run executes the job. Implementations should honour ctx cancellation.
	Run(ctx context.Context) error
}
