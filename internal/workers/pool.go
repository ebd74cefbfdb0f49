// Package workers provides the bounded worker pool that runs host tasks.
// It wraps an ants pool so that at most Size jobs execute at once, blocks
// submitters while the pool is saturated, and integrates with the structured
// logging and metrics systems.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/metrics"
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job and returns an error if it fails.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for metrics and logging.
	Type() string
}

// Result represents the result of executing a job.
type Result struct {
	JobID    string
	JobType  string
	Error    error
	Duration time.Duration
}

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the maximum number of jobs running concurrently.
	Size int
	// ExpiryDuration is how long an idle worker goroutine is kept.
	ExpiryDuration time.Duration
	// ShutdownTimeout is the maximum time to wait for running jobs on Shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a default worker pool configuration.
func DefaultConfig() Config {
	return Config{
		Size:            1000,
		ExpiryDuration:  10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Running   int
	Peak      int64
}

type task struct {
	ctx context.Context
	job Job
}

// Pool runs jobs on a fixed number of ants workers.
type Pool struct {
	config   Config
	pool     *ants.PoolWithFunc
	wg       sync.WaitGroup
	logger   *logging.Logger
	recorder metrics.Recorder
	onResult func(Result)

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	inFlight  atomic.Int64
	peak      atomic.Int64
	closed    atomic.Bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithRecorder sets the metrics recorder used for the running-jobs gauge.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pool) { p.recorder = r }
}

// WithResultHandler registers fn to receive every job result. It runs on the
// worker goroutine.
func WithResultHandler(fn func(Result)) Option {
	return func(p *Pool) { p.onResult = fn }
}

// New creates a worker pool with the given configuration.
func New(config Config, opts ...Option) (*Pool, error) {
	if config.Size <= 0 {
		config.Size = 1
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	p := &Pool{
		config:   config,
		logger:   logging.Default(),
		recorder: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("workers")

	antsOpts := []ants.Option{
		ants.WithPanicHandler(func(v interface{}) {
			p.logger.Error("Worker panic recovered", "panic", v)
		}),
	}
	if config.ExpiryDuration > 0 {
		antsOpts = append(antsOpts, ants.WithExpiryDuration(config.ExpiryDuration))
	}

	pool, err := ants.NewPoolWithFunc(config.Size, p.run, antsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	p.pool = pool

	p.logger.Debug("Worker pool created", "worker_count", config.Size)
	return p, nil
}

// Submit hands job to the pool, blocking while every worker is busy. It
// refuses new work once ctx is done or the pool is shut down.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	if p.closed.Load() {
		return fmt.Errorf("worker pool is shut down")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.wg.Add(1)
	if err := p.pool.Invoke(task{ctx: ctx, job: job}); err != nil {
		p.wg.Done()
		return fmt.Errorf("failed to submit job %s: %w", job.ID(), err)
	}
	p.submitted.Add(1)
	return nil
}

func (p *Pool) run(arg interface{}) {
	t := arg.(task)
	defer p.wg.Done()

	running := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if running <= peak || p.peak.CompareAndSwap(peak, running) {
			break
		}
	}
	p.recorder.SetActiveHosts(int(running))
	defer func() {
		p.recorder.SetActiveHosts(int(p.inFlight.Add(-1)))
	}()

	start := time.Now()
	err := t.job.Execute(t.ctx)
	res := Result{
		JobID:    t.job.ID(),
		JobType:  t.job.Type(),
		Error:    err,
		Duration: time.Since(start),
	}

	if err != nil {
		p.failed.Add(1)
		p.logger.Debug("Job failed",
			"job_id", res.JobID,
			"job_type", res.JobType,
			"duration", res.Duration,
			"error", err)
	} else {
		p.completed.Add(1)
	}

	if p.onResult != nil {
		p.onResult(res)
	}
}

// Wait blocks until every submitted job has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Running returns the number of jobs executing right now.
func (p *Pool) Running() int {
	return int(p.inFlight.Load())
}

// Cap returns the pool size.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Running:   p.Running(),
		Peak:      p.peak.Load(),
	}
}

// Shutdown waits for running jobs up to ShutdownTimeout, then releases the
// worker goroutines.
func (p *Pool) Shutdown() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(p.config.ShutdownTimeout):
		err = fmt.Errorf("worker pool shutdown timed out after %s", p.config.ShutdownTimeout)
		p.logger.Warn("Worker pool shutdown timeout, releasing anyway")
	}

	p.pool.Release()
	return err
}
