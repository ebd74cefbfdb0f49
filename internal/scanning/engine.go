package scanning

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/metrics"
	"github.com/artofscripting/networkvector/internal/ports"
	"github.com/artofscripting/networkvector/internal/targets"
	"github.com/artofscripting/networkvector/internal/workers"
)

// Engine runs scan sessions. Build one with NewEngine and call Run.
type Engine struct {
	cfg       ScanConfig
	prober    Prober
	resolver  HostnameResolver
	shares    ShareEnumerator
	random    *Randomizer
	listeners []Listener
	observers []ProgressObserver
	recorder  metrics.Recorder
	logger    *logging.Logger

	mu         sync.RWMutex
	current    *Session
	aggregator *Aggregator
	progress   *Progress
}

// Option configures an Engine.
type Option func(*Engine)

// WithProber replaces the TCP prober.
func WithProber(p Prober) Option {
	return func(e *Engine) { e.prober = p }
}

// WithHostnameResolver sets the reverse lookup collaborator.
func WithHostnameResolver(r HostnameResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithShareEnumerator sets the share listing collaborator.
func WithShareEnumerator(s ShareEnumerator) Option {
	return func(e *Engine) { e.shares = s }
}

// WithRandomizer overrides the randomizer built from the config.
func WithRandomizer(r *Randomizer) Option {
	return func(e *Engine) { e.random = r }
}

// WithListener registers a host completion listener. Listeners only fire in
// live mode.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// WithProgressObserver registers a progress observer.
func WithProgressObserver(o ProgressObserver) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine for cfg.
func NewEngine(cfg ScanConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		recorder: metrics.Noop{},
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.prober == nil {
		e.prober = NewTCPProber(cfg.Timeout, e.logger)
	}
	if e.random == nil {
		e.random = NewRandomizer(cfg.Randomize, cfg.MaxDelay, cfg.Seed)
	}
	return e
}

// Mode returns "dig" or "plain" for metrics and logs.
func (c ScanConfig) Mode() string {
	if c.Dig {
		return "dig"
	}
	return "plain"
}

// Run resolves targets, builds the port set and probes every host. Invalid
// targets, exemptions, ports or settings fail before any network activity.
// A cancelled ctx stops the session cooperatively: the returned session
// holds whatever completed and has Stopped set.
func (e *Engine) Run(ctx context.Context) (*Session, error) {
	cfg := e.cfg
	mode := cfg.Mode()

	if err := cfg.Validate(); err != nil {
		e.recorder.IncrementScanErrors(mode, string(errors.GetCode(err)))
		return nil, err
	}

	hosts, parsed, err := targets.Resolver{MaxHosts: cfg.MaxHosts}.Resolve(cfg.Targets, strings.Join(cfg.Exempt, ","))
	if err != nil {
		e.recorder.IncrementScanErrors(mode, string(errors.GetCode(err)))
		return nil, err
	}

	portSet, err := ports.Build(cfg.PortMode, cfg.Ports)
	if err != nil {
		e.recorder.IncrementScanErrors(mode, string(errors.GetCode(err)))
		return nil, err
	}

	pool, err := workers.New(workers.Config{Size: cfg.Threads},
		workers.WithLogger(e.logger),
		workers.WithRecorder(e.recorder))
	if err != nil {
		return nil, errors.WrapScanError(errors.CodeScanFailed, "cannot start worker pool", err)
	}
	defer func() { _ = pool.Shutdown() }()

	phases := 1
	if cfg.Dig {
		phases = 2
	}
	agg := NewAggregator(cfg.Live)
	for _, l := range e.listeners {
		agg.AddListener(l)
	}
	progress := NewProgress(phases)
	for _, o := range e.observers {
		progress.AddObserver(o)
	}

	session := &Session{
		ID:        uuid.New(),
		Config:    cfg,
		Targets:   parsed,
		StartTime: time.Now(),
		Phase:     PhaseDiscover,
	}
	e.mu.Lock()
	e.current, e.aggregator, e.progress = session, agg, progress
	e.mu.Unlock()

	logger := e.logger.WithScanID(session.ID.String())
	logger.Info("Scan started",
		"targets", cfg.Targets,
		"hosts", len(hosts),
		"ports_per_host", len(portSet),
		"threads", cfg.Threads,
		"mode", mode,
		"randomize", cfg.Randomize)

	s := &scheduler{
		cfg:        cfg,
		pool:       pool,
		prober:     e.prober,
		resolver:   e.resolver,
		shares:     e.shares,
		random:     e.random,
		aggregator: agg,
		progress:   progress,
		recorder:   e.recorder,
		logger:     logger,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	var phase Phase
	if cfg.Dig {
		phase = newDigOrchestrator(s).run(ctx, hosts, portSet)
	} else {
		s.runPhase(ctx, PhaseDiscover, hosts, portSet)
		phase = PhaseDiscover
	}
	progress.Finish()

	e.mu.Lock()
	session.Phase = phase
	session.Hosts = agg.Hosts()
	session.EndTime = time.Now()
	session.Progress = progress.Snapshot()
	session.Stopped = ctx.Err() != nil
	session.Stats = computeStats(session.Hosts, len(portSet), session.EndTime.Sub(session.StartTime))
	e.mu.Unlock()

	status := "completed"
	if session.Stopped {
		status = "stopped"
	}
	e.recorder.IncrementScansTotal(mode, status)
	e.recorder.RecordScanDuration(mode, session.Stats.Duration)
	logger.Info("Scan finished",
		"status", status,
		"phase", string(phase),
		"hosts_scanned", session.Stats.HostsScanned,
		"hosts_alive", session.Stats.HostsAlive,
		"open_ports", session.Stats.OpenPorts,
		"duration", session.Stats.Duration)

	return session, nil
}

// Snapshot returns a copy of the session in progress (or the last finished
// one) with the hosts recorded so far.
func (e *Engine) Snapshot() (Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.current == nil {
		return Session{}, false
	}
	snap := *e.current
	if snap.EndTime.IsZero() {
		snap.Hosts = e.aggregator.Hosts()
		snap.Progress = e.progress.Snapshot()
	} else {
		snap.Hosts = make([]Host, len(e.current.Hosts))
		for i := range e.current.Hosts {
			snap.Hosts[i] = e.current.Hosts[i].Clone()
		}
	}
	return snap, true
}

// Config returns the engine configuration.
func (e *Engine) Config() ScanConfig {
	return e.cfg
}
