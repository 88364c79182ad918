// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/scalegate/internal/cron"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu       sync.Mutex
	calls    int
	lastCall time.Time
}

var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and increments the call counter.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.lastCall = time.Now()
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSweeper is a test double for cron.Sweeper.
type MockSweeper struct {
	Expired, Reclaimed, Pending int

	mu    sync.Mutex
	calls int
}

var _ cron.Sweeper = (*MockSweeper)(nil)

// Sweep implements cron.Sweeper.
func (m *MockSweeper) Sweep(context.Context) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.Expired, m.Reclaimed
}

// PendingCount implements cron.Sweeper.
func (m *MockSweeper) PendingCount() int { return m.Pending }

// SweepCalls returns the number of Sweep calls.
func (m *MockSweeper) SweepCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockPruner is a test double for cron.Pruner.
type MockPruner struct {
	Err error

	mu      sync.Mutex
	cutoffs []time.Time
}

var _ cron.Pruner = (*MockPruner)(nil)

// Prune implements cron.Pruner.
func (m *MockPruner) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, cutoff)
	return int64(len(m.cutoffs)), m.Err
}

// Cutoffs returns the cutoffs passed to Prune.
func (m *MockPruner) Cutoffs() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.cutoffs...)
}
