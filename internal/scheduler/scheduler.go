// Package scheduler repeats scans on a cron schedule. Each job owns an
// immutable scan configuration and is handed to a RunFunc when it fires; a
// job that is still running when its next tick arrives is skipped.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/scanning"
)

// RunFunc executes one scheduled scan. ctx is cancelled when the scheduler
// stops.
type RunFunc func(ctx context.Context, job Job) error

// Job is a scheduled scan.
type Job struct {
	ID       uuid.UUID
	Name     string
	CronExpr string
	Config   scanning.ScanConfig
	Enabled  bool
	LastRun  time.Time
	NextRun  time.Time
	Runs     int
	// LastError is the failure of the most recent run, if any.
	LastError string
}

type scheduledJob struct {
	Job
	cronID  cron.EntryID
	running bool
}

// Scheduler manages scheduled scan jobs.
type Scheduler struct {
	cron    *cron.Cron
	run     RunFunc
	logger  *logging.Logger
	jobs    map[uuid.UUID]*scheduledJob
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithLocation evaluates schedules in loc instead of the local time zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.cron = cron.New(cron.WithLocation(loc)) }
}

// New creates a scheduler that hands each firing job to run.
func New(run RunFunc, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:   cron.New(),
		run:    run,
		logger: logging.Default(),
		jobs:   make(map[uuid.UUID]*scheduledJob),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("scheduler")
	return s
}

// ParseSchedule validates a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 30m".
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(strings.TrimSpace(expr))
	if err != nil {
		return nil, errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("invalid cron expression: %v", err), "schedule", expr)
	}
	return sched, nil
}

// Start begins firing jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.NewScanError(errors.CodeConflict, "scheduler is already running")
	}
	if s.ctx.Err() != nil {
		return errors.NewScanError(errors.CodeServiceUnavailable, "scheduler has been stopped")
	}

	s.cron.Start()
	s.running = true
	s.refreshNextRunsLocked()

	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels running scans and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.cancel()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()

	s.logger.Info("Scheduler stopped")
}

// AddJob schedules a scan of cfg on cronExpr and returns the job ID.
func (s *Scheduler) AddJob(name, cronExpr string, cfg scanning.ScanConfig) (uuid.UUID, error) {
	sched, err := ParseSchedule(cronExpr)
	if err != nil {
		return uuid.Nil, err
	}
	if err := cfg.Validate(); err != nil {
		return uuid.Nil, err
	}

	job := &scheduledJob{
		Job: Job{
			ID:       uuid.New(),
			Name:     name,
			CronExpr: cronExpr,
			Config:   cfg,
			Enabled:  true,
			NextRun:  sched.Next(time.Now()),
		},
	}
	if job.Name == "" {
		job.Name = cfg.Targets
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := job.ID
	job.cronID = s.cron.Schedule(sched, cron.FuncJob(func() {
		_ = s.execute(id)
	}))
	s.jobs[id] = job

	s.logger.Info("Added scheduled scan",
		"job", job.Name,
		"schedule", cronExpr,
		"targets", cfg.Targets,
		"next_run", job.NextRun.Format(time.RFC3339))
	return id, nil
}

// RemoveJob unschedules a job. A run in progress is not interrupted.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return errJobNotFound(id)
	}
	s.cron.Remove(job.cronID)
	delete(s.jobs, id)

	s.logger.Info("Removed scheduled scan", "job", job.Name)
	return nil
}

// EnableJob enables a scheduled job.
func (s *Scheduler) EnableJob(id uuid.UUID) error {
	return s.setJobEnabled(id, true)
}

// DisableJob disables a scheduled job. Its ticks are skipped until it is
// enabled again.
func (s *Scheduler) DisableJob(id uuid.UUID) error {
	return s.setJobEnabled(id, false)
}

func (s *Scheduler) setJobEnabled(id uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return errJobNotFound(id)
	}
	job.Enabled = enabled

	action := "disabled"
	if enabled {
		action = "enabled"
	}
	s.logger.Info("Scheduled scan "+action, "job", job.Name)
	return nil
}

// Jobs returns a copy of every job ordered by next run.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshNextRunsLocked()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Job)
	}
	slices.SortFunc(out, func(a, b Job) int { return a.NextRun.Compare(b.NextRun) })
	return out
}

// Job returns a copy of the job with id.
func (s *Scheduler) Job(id uuid.UUID) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.Job, true
}

// RunNow runs a job immediately, outside its schedule.
func (s *Scheduler) RunNow(id uuid.UUID) error {
	return s.execute(id)
}

func (s *Scheduler) refreshNextRunsLocked() {
	if !s.running {
		return
	}
	for _, j := range s.jobs {
		if e := s.cron.Entry(j.cronID); e.Valid() && !e.Next.IsZero() {
			j.NextRun = e.Next
		}
	}
}

// execute runs one firing of a job. Panics in the run function are recovered
// and recorded as the job's last error.
func (s *Scheduler) execute(id uuid.UUID) (err error) {
	job, err := s.prepareJobExecution(id)
	if err != nil {
		s.logger.Debug("Skipping scheduled scan", "job_id", id.String(), "reason", err)
		return err
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled scan panicked", "job", job.Name, "panic", r)
			err = errors.NewScanError(errors.CodeScanFailed, fmt.Sprintf("scheduled scan panicked: %v", r))
		}
		s.cleanupJobExecution(id, err)
	}()

	s.logger.Info("Running scheduled scan", "job", job.Name, "targets", job.Config.Targets)
	err = s.run(s.ctx, job)
	if err != nil {
		s.logger.Error("Scheduled scan failed", "job", job.Name, "error", err)
		return err
	}
	s.logger.Info("Scheduled scan completed", "job", job.Name, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// prepareJobExecution marks a job running and returns a snapshot of it.
func (s *Scheduler) prepareJobExecution(id uuid.UUID) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	switch {
	case !exists:
		return Job{}, errJobNotFound(id)
	case !job.Enabled:
		return Job{}, errors.NewScanError(errors.CodeConflict, "job is disabled").WithContext("job", job.Name)
	case job.running:
		return Job{}, errors.NewScanError(errors.CodeConflict, "job is already running").WithContext("job", job.Name)
	case s.ctx.Err() != nil:
		return Job{}, errors.NewScanError(errors.CodeCanceled, "scheduler has been stopped")
	}

	job.running = true
	job.LastRun = time.Now()
	job.Runs++
	return job.Job, nil
}

// cleanupJobExecution marks the job as no longer running.
func (s *Scheduler) cleanupJobExecution(id uuid.UUID, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return
	}
	job.running = false
	job.LastError = ""
	if runErr != nil {
		job.LastError = runErr.Error()
	}
}

// Running reports whether the job with id is executing.
func (s *Scheduler) Running(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return ok && j.running
}

func errJobNotFound(id uuid.UUID) *errors.ScanError {
	return errors.NewScanError(errors.CodeNotFound, "job not found").WithContext("job_id", id.String())
}
