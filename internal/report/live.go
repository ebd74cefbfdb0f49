package report

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/scanning"
)

// SnapshotFunc returns the session in progress.
type SnapshotFunc func() (scanning.Session, bool)

// LiveHTML rewrites the HTML report while a live scan runs. It is a
// scanning.Listener: each completed host marks the report stale and the
// next tick rewrites it.
type LiveHTML struct {
	writer   Writer
	snapshot SnapshotFunc
	interval time.Duration
	logger   *logging.Logger

	dirty  atomic.Bool
	writes atomic.Int64
	stop   context.CancelFunc
	wg     sync.WaitGroup
}

// NewLiveHTML creates a refresher that writes through w every interval.
func NewLiveHTML(w Writer, snapshot SnapshotFunc, interval time.Duration, logger *logging.Logger) *LiveHTML {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	w.Format = FormatHTML
	w.HTML.RefreshSeconds = max(int(interval/time.Second), 1)
	if logger == nil {
		logger = logging.Default()
	}
	return &LiveHTML{
		writer:   w,
		snapshot: snapshot,
		interval: interval,
		logger:   logger.WithComponent("live-html"),
	}
}

// OnHostComplete marks the report stale.
func (l *LiveHTML) OnHostComplete(scanning.Host) {
	l.dirty.Store(true)
}

// Start begins the refresh loop.
func (l *LiveHTML) Start(ctx context.Context) {
	ctx, l.stop = context.WithCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Flush()
			}
		}
	}()
}

// Flush writes the report now if any host completed since the last write.
func (l *LiveHTML) Flush() {
	if !l.dirty.Swap(false) {
		return
	}
	snap, ok := l.snapshot()
	if !ok {
		return
	}
	path, err := l.writer.Write(&snap)
	if err != nil {
		l.logger.Warn("Live report refresh failed", "error", err)
		return
	}
	l.writes.Add(1)
	l.logger.Debug("Live report refreshed", "path", path, "hosts", len(snap.Hosts))
}

// Stop ends the refresh loop.
func (l *LiveHTML) Stop() {
	if l.stop != nil {
		l.stop()
	}
	l.wg.Wait()
}

// Writes returns the number of refreshes written.
func (l *LiveHTML) Writes() int64 {
	return l.writes.Load()
}
