package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule reports whether expr is a valid 5-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("cron: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Scheduler runs registered jobs on their schedules. A job whose previous
// run is still in progress skips the tick.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}
}

// RegisterJob adds a job. Job names must be unique.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.locks[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name()
	}
	return names
}

// Start begins executing registered jobs. It fails if any job has an
// invalid schedule.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithParser(parser))

	for _, job := range s.jobs {
		lock := s.locks[job.Name()]
		if _, err := c.AddFunc(job.Schedule(), func() { s.tick(ctx, job, lock) }); err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	s.ctx, s.cancel, s.cron = ctx, cancel, c
	c.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

// RunNow runs the named job once outside its schedule, honouring the
// same no-overlap rule. It reports whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	lock := s.locks[name]
	var job Job
	for _, j := range s.jobs {
		if j.Name() == name {
			job = j
		}
	}
	s.mu.Unlock()

	if job == nil {
		return false, fmt.Errorf("cron: unknown job %q", name)
	}
	if !lock.TryLock() {
		return false, nil
	}
	defer lock.Unlock()
	return true, job.Run(ctx)
}

// tick runs job unless its previous run is still in progress.
func (s *Scheduler) tick(ctx context.Context, job Job, lock *sync.Mutex) {
	if !lock.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", job.Name())
		return
	}
	defer lock.Unlock()

	s.logger.Debug("cron: job started", "job", job.Name())
	if err := job.Run(ctx); err != nil {
		s.logger.Error("cron: job failed", "job", job.Name(), "error", err)
		return
	}
	s.logger.Debug("cron: job completed", "job", job.Name())
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}
