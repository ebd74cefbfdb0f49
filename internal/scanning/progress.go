package scanning

import (
	"sync"
	"time"
)

const (
	defaultProgressInterval = 200 * time.Millisecond
	// belowComplete is the ceiling before Finish; 100 is reserved for the
	// end of the session.
	belowComplete = 99.99
)

// ProgressSnapshot is a point-in-time view of a session's progress.
type ProgressSnapshot struct {
	Phase     Phase   `json:"phase"`
	Completed int64   `json:"completed"`
	Total     int64   `json:"total"`
	Percent   float64 `json:"percent"`
	Finished  bool    `json:"finished"`
}

// ProgressObserver receives throttled progress snapshots.
type ProgressObserver interface {
	OnProgress(s ProgressSnapshot)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(s ProgressSnapshot)

// OnProgress calls f(s).
func (f ProgressFunc) OnProgress(s ProgressSnapshot) { f(s) }

// Progress tracks completed probe units against the total for the current
// phase. With more than one phase each phase owns an equal share of the
// percentage range, so a dig session spends phase one below 50%.
type Progress struct {
	interval time.Duration

	emitMu sync.Mutex

	mu        sync.Mutex
	phases    int
	phaseIdx  int
	started   bool
	phase     Phase
	total     int64
	done      int64
	last      float64
	finished  bool
	lastEmit  time.Time
	observers []ProgressObserver
}

// NewProgress creates a tracker for a session with the given number of
// phases (1 for a plain scan, 2 for dig).
func NewProgress(phases int) *Progress {
	return &Progress{
		phases:   max(phases, 1),
		interval: defaultProgressInterval,
	}
}

// AddObserver registers o.
func (p *Progress) AddObserver(o ProgressObserver) {
	p.mu.Lock()
	p.observers = append(p.observers, o)
	p.mu.Unlock()
}

// Reset starts a new phase with total probe units.
func (p *Progress) Reset(phase Phase, total int64) {
	p.mu.Lock()
	if p.started && p.phaseIdx < p.phases-1 {
		p.phaseIdx++
	}
	p.started = true
	p.phase = phase
	p.total = max(total, 0)
	p.done = 0
	p.mu.Unlock()
	p.emit(true)
}

// Add records n completed probe units.
func (p *Progress) Add(n int64) {
	p.mu.Lock()
	p.done += n
	if p.done > p.total {
		p.done = p.total
	}
	p.mu.Unlock()
	p.emit(false)
}

// Percent returns the session percentage. It never decreases and only
// reaches 100 after Finish.
func (p *Progress) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percentLocked()
}

func (p *Progress) percentLocked() float64 {
	if p.finished {
		return 100
	}
	span := 100 / float64(p.phases)
	frac := 0.0
	if p.total > 0 {
		frac = float64(p.done) / float64(p.total)
	} else if p.started {
		frac = 1
	}
	raw := span*float64(p.phaseIdx) + span*frac
	if raw > belowComplete {
		raw = belowComplete
	}
	if raw < p.last {
		raw = p.last
	}
	p.last = raw
	return raw
}

// Finish marks the session complete; Percent returns exactly 100 afterwards.
func (p *Progress) Finish() {
	p.mu.Lock()
	p.finished = true
	p.last = 100
	p.mu.Unlock()
	p.emit(true)
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Progress) snapshotLocked() ProgressSnapshot {
	return ProgressSnapshot{
		Phase:     p.phase,
		Completed: p.done,
		Total:     p.total,
		Percent:   p.percentLocked(),
		Finished:  p.finished,
	}
}

func (p *Progress) emit(force bool) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if len(p.observers) == 0 || (!force && time.Since(p.lastEmit) < p.interval) {
		p.mu.Unlock()
		return
	}
	p.lastEmit = time.Now()
	snap := p.snapshotLocked()
	observers := p.observers
	p.mu.Unlock()

	for _, o := range observers {
		o.OnProgress(snap)
	}
}
