package cron

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// simpleJob is a minimal Job for scheduler tests.
type simpleJob struct {
	name     string
	schedule string
	runFunc  func(ctx context.Context) error
	calls    atomic.Int32
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(ctx context.Context) error {
	j.calls.Add(1)
	if j.runFunc != nil {
		return j.runFunc(ctx)
	}
	return nil
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"* * * * *", "*/5 * * * *", "0 0 1 1 *"} {
		if err := ValidateSchedule(expr); err != nil {
			t.Errorf("ValidateSchedule(%q) = %v", expr, err)
		}
	}
	for _, expr := range []string{"", "invalid", "60 * * * *", "* * * * * *"} {
		if err := ValidateSchedule(expr); err == nil {
			t.Errorf("ValidateSchedule(%q) should fail", expr)
		}
	}
}

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if got := s.Jobs(); !slices.Equal(got, []string{"test"}) {
		t.Errorf("Jobs() = %v", got)
	}
}

func TestScheduler_Start_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "bad", schedule: "invalid"})
	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "noop", schedule: "* * * * *"})
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	if err := NewScheduler(nil).Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_TickSkipsWhileRunning(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	job := &simpleJob{
		name:     "slow",
		schedule: "* * * * *",
		runFunc: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}
	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(job)
	lock := s.locks["slow"]

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tick(context.Background(), job, lock)
	}()
	<-started

	// The first tick holds the lock; these must skip.
	for range 5 {
		s.tick(context.Background(), job, lock)
	}
	close(release)
	wg.Wait()

	if n := job.calls.Load(); n != 1 {
		t.Errorf("runs = %d, want 1", n)
	}
}

func TestScheduler_TickSurvivesJobError(t *testing.T) {
	t.Parallel()

	job := &simpleJob{name: "failing", schedule: "* * * * *", runFunc: func(context.Context) error {
		return errors.New("job failed")
	}}
	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(job)

	s.tick(context.Background(), job, s.locks["failing"])
	s.tick(context.Background(), job, s.locks["failing"])
	if n := job.calls.Load(); n != 2 {
		t.Errorf("runs = %d, want 2", n)
	}
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()

	job := &simpleJob{name: "sweep", schedule: "* * * * *"}
	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(job)

	ran, err := s.RunNow(context.Background(), "sweep")
	if err != nil || !ran {
		t.Fatalf("RunNow = %v, %v", ran, err)
	}
	if _, err := s.RunNow(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown job")
	}

	s.locks["sweep"].Lock()
	ran, err = s.RunNow(context.Background(), "sweep")
	s.locks["sweep"].Unlock()
	if err != nil || ran {
		t.Errorf("RunNow while running = %v, %v; want skipped", ran, err)
	}
	if n := job.calls.Load(); n != 1 {
		t.Errorf("runs = %d, want 1", n)
	}
}

func TestScheduler_StopCancelsContext(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "noop", schedule: "* * * * *"})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	ctx := s.ctx
	if err := s.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("job context not cancelled on Stop")
	}
}
