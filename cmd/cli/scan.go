package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artofscripting/networkvector/internal/config"
	"github.com/artofscripting/networkvector/internal/live"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/metrics"
	"github.com/artofscripting/networkvector/internal/report"
	"github.com/artofscripting/networkvector/internal/resolver"
	"github.com/artofscripting/networkvector/internal/scanning"
	"github.com/artofscripting/networkvector/internal/shares"
)

const systemMetricsInterval = 15 * time.Second

// scanner runs scans with the collaborators built from configuration. One
// scanner serves a single scan or every run of a schedule.
type scanner struct {
	cfg      *config.Config
	logger   *logging.Logger
	out      io.Writer
	verbose  bool
	recorder metrics.Recorder
	prom     *metrics.PrometheusMetrics
	resolver *resolver.Resolver
	shares   *shares.Enumerator
	server   *live.Server
	current  atomic.Pointer[scanning.Engine]
}

func newScanner(cfg *config.Config, logger *logging.Logger, out io.Writer, verbose bool) *scanner {
	s := &scanner{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		verbose:  verbose,
		recorder: metrics.Noop{},
	}
	if cfg.Live.Enabled {
		s.prom = metrics.NewPrometheusMetrics()
		s.recorder = s.prom
	}

	s.resolver = resolver.New(
		resolver.Config{Servers: cfg.Resolver.Servers, Timeout: cfg.Resolver.Timeout},
		resolver.WithLogger(logger),
		resolver.WithRecorder(s.recorder),
	)
	s.shares = shares.New(cfg.Shares.Timeout,
		shares.WithLogger(logger),
		shares.WithRecorder(s.recorder),
	)
	return s
}

// startLive serves the live feed when it is enabled.
func (s *scanner) startLive(ctx context.Context) error {
	if !s.cfg.Live.Enabled {
		return nil
	}

	liveCfg := live.DefaultConfig()
	liveCfg.ListenAddr = s.cfg.Live.ListenAddr
	liveCfg.AllowedOrigins = s.cfg.Live.AllowedOrigins

	s.server = live.New(liveCfg, s.snapshot,
		live.WithLogger(s.logger),
		live.WithRecorder(s.recorder),
		live.WithGatherer(s.prom.GetRegistry()),
	)
	if err := s.server.Start(); err != nil {
		s.server = nil
		return err
	}
	go s.prom.StartPeriodicUpdates(ctx, systemMetricsInterval)

	addr := s.server.Addr()
	fmt.Fprintf(s.out, "Live feed: ws://%s/ws (session: http://%s/api/session, metrics: http://%s/metrics)\n",
		addr, addr, addr)
	return nil
}

func (s *scanner) stopLive() {
	if s.server == nil {
		return
	}
	if err := s.server.Stop(); err != nil {
		s.logger.Warn("Live feed did not shut down cleanly", "error", err)
	}
}

func (s *scanner) snapshot() (scanning.Session, bool) {
	e := s.current.Load()
	if e == nil {
		return scanning.Session{}, false
	}
	return e.Snapshot()
}

func (s *scanner) reportWriter() report.Writer {
	w := report.Writer{Dir: s.cfg.Output.Directory, Format: report.FormatCSV}
	if s.cfg.Output.Graph {
		w.Format = report.FormatHTML
		w.HTML = report.HTMLOptions{
			ThreeD:      s.cfg.Output.ThreeD,
			ForceThreeD: s.cfg.Output.ForceThreeD,
		}
	}
	return w
}

// scan runs one session and writes its report. The returned path is empty
// only when err is non-nil.
func (s *scanner) scan(ctx context.Context, scanCfg scanning.ScanConfig) (*scanning.Session, string, error) {
	writer := s.reportWriter()

	opts := []scanning.Option{
		scanning.WithLogger(s.logger),
		scanning.WithRecorder(s.recorder),
		scanning.WithHostnameResolver(s.resolver),
		scanning.WithShareEnumerator(s.shares),
	}
	if s.server != nil {
		hub := s.server.Hub()
		opts = append(opts, scanning.WithListener(hub), scanning.WithProgressObserver(hub))
	}
	if scanCfg.Live {
		opts = append(opts, scanning.WithListener(scanning.ListenerFunc(s.printHost)))
	}

	var liveHTML *report.LiveHTML
	if scanCfg.Live && writer.Format == report.FormatHTML {
		liveHTML = report.NewLiveHTML(writer, s.snapshot, s.cfg.Output.RefreshInterval, s.logger)
		opts = append(opts, scanning.WithListener(liveHTML))
	}

	engine := scanning.NewEngine(scanCfg, opts...)
	s.current.Store(engine)

	if liveHTML != nil {
		liveHTML.Start(ctx)
	}
	session, err := engine.Run(ctx)
	if liveHTML != nil {
		// The final report must not be overwritten by a late refresh.
		liveHTML.Stop()
	}
	if err != nil {
		return nil, "", err
	}
	// Listeners only fire in live mode; verbose batch scans list hosts at the end.
	if s.verbose && !scanCfg.Live {
		for _, h := range session.Hosts {
			s.printHost(h)
		}
	}

	path, err := writer.Write(session)
	if err != nil {
		return session, "", err
	}
	s.logger.Info("Report written", "path", path, "scan_id", session.ID.String())

	if s.server != nil {
		s.server.Hub().SessionComplete(session, path)
	}
	return session, path, nil
}

// printHost writes one line per host with open ports as it completes.
func (s *scanner) printHost(h scanning.Host) {
	open := h.OpenPorts()
	if len(open) == 0 {
		return
	}
	parts := make([]string, len(open))
	for i, p := range open {
		parts[i] = fmt.Sprint(p)
	}
	fmt.Fprintf(s.out, "[+] %s: %s (%s)\n", h.DisplayName(), strings.Join(parts, ", "), h.OS)
	if len(h.Shares) > 0 {
		fmt.Fprintf(s.out, "    shares: %s\n", strings.Join(h.Shares, ", "))
	}
}

func (a *app) runScan(cmd *cobra.Command, targets string) error {
	scanCfg, err := a.cfg.ScanConfig(targets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	report.PrintBanner(out, scanCfg)

	s := newScanner(a.cfg, a.logger, out, a.verbose)
	if err := s.startLive(ctx); err != nil {
		return err
	}
	defer s.stopLive()

	session, path, err := s.scan(ctx, scanCfg)
	if err != nil {
		return err
	}

	if session.Stopped {
		fmt.Fprintln(out, "\nScan stopped, reporting partial results.")
	}
	if a.cfg.Output.Console {
		if err := report.PrintSummary(out, session); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "\nReport saved to %s\n", path)
	return nil
}
