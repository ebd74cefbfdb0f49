package scanning

import (
	"context"
	"net/netip"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/fingerprint"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/metrics"
	"github.com/artofscripting/networkvector/internal/ports"
	"github.com/artofscripting/networkvector/internal/workers"
)

const hostJobType = "host"

// HostnameResolver looks up a name for an address. A failed lookup leaves
// the hostname blank.
type HostnameResolver interface {
	LookupHostname(ctx context.Context, addr netip.Addr) (string, error)
}

// ShareEnumerator lists the file shares a host exposes.
type ShareEnumerator interface {
	Enumerate(ctx context.Context, addr netip.Addr) ([]string, error)
}

// scheduler runs one phase at a time over a shared worker pool. Everything
// it holds is either immutable for the session or internally synchronized.
type scheduler struct {
	cfg        ScanConfig
	pool       *workers.Pool
	prober     Prober
	resolver   HostnameResolver
	shares     ShareEnumerator
	random     *Randomizer
	limiter    *rate.Limiter
	aggregator *Aggregator
	progress   *Progress
	recorder   metrics.Recorder
	logger     *logging.Logger
}

// runPhase probes every host in hosts against portSet and returns true if a
// stop was observed. Host order and each host's port order come from the
// randomizer; each host is a single pool job.
func (s *scheduler) runPhase(ctx context.Context, phase Phase, hosts []netip.Addr, portSet []uint16) bool {
	s.progress.Reset(phase, int64(len(hosts))*int64(len(portSet)))
	s.logger.InfoPhase("Phase started", string(phase),
		"hosts", len(hosts), "ports_per_host", len(portSet))

	for _, i := range s.random.HostOrder(len(hosts)) {
		if ctx.Err() != nil {
			break
		}
		task := &hostTask{
			s:     s,
			phase: phase,
			addr:  hosts[i],
			ports: s.random.PortOrder(portSet),
			delay: s.random.Delay(),
		}
		if err := s.pool.Submit(ctx, task); err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.ErrorScan("Failed to schedule host", hosts[i].String(), err)
		}
	}
	s.pool.Wait()

	stopped := ctx.Err() != nil
	s.logger.InfoPhase("Phase finished", string(phase), "stopped", stopped)
	return stopped
}

// hostTask probes one host's ports sequentially in its randomized order.
type hostTask struct {
	s     *scheduler
	phase Phase
	addr  netip.Addr
	ports []uint16
	delay time.Duration
}

func (t *hostTask) ID() string { return t.addr.String() }
func (t *hostTask) Type() string { return hostJobType }

// Execute runs the host task. A stop before the first probe drops the task;
// a stop mid-way records the host with the ports already probed.
func (t *hostTask) Execute(ctx context.Context) error {
	s := t.s
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	host := Host{Address: t.addr, Ports: make([]PortResult, 0, len(t.ports))}
	// In-flight attempts run to completion or timeout even after a stop.
	probeCtx := context.WithoutCancel(ctx)
	for _, port := range t.ports {
		if ctx.Err() != nil {
			host.Partial = true
			break
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				host.Partial = true
				break
			}
		}
		res := s.prober.Probe(probeCtx, t.addr, port)
		host.Ports = append(host.Ports, res)
		s.progress.Add(1)
		s.recorder.IncrementPortsScanned(res.State.String(), 1)
		if res.State.IsOpen() {
			s.logger.Debug("Port open", "target", t.addr.String(), "port", port, "latency", res.Latency)
		}
	}
	if len(host.Ports) == 0 {
		return ctx.Err()
	}

	if t.phase == PhaseExhaustive {
		t.mergePrevious(ctx, &host)
	} else {
		host.finalize()
		t.enrich(ctx, &host)
	}

	status := "down"
	switch {
	case host.Partial:
		status = "partial"
	case host.HasOpenPorts():
		status = "alive"
	}
	s.recorder.IncrementHostsScanned(status)
	if host.HasOpenPorts() {
		s.logger.InfoScan("Host complete", t.addr.String(),
			"phase", string(t.phase),
			"open_ports", len(host.OpenPorts()),
			"os", host.OS.String())
	}

	s.aggregator.Record(host)
	return nil
}

// enrich fills hostname and shares. Failures are tolerated and leave the
// fields empty.
func (t *hostTask) enrich(ctx context.Context, host *Host) {
	s := t.s
	if s.cfg.ResolveHostnames && s.resolver != nil && host.Hostname == "" {
		name, err := s.resolver.LookupHostname(ctx, host.Address)
		if err != nil {
			s.logger.Debug("Hostname lookup failed",
				"target", host.Address.String(), "code", errors.CodeResolveFailed, "error", err)
		} else {
			host.Hostname = name
		}
	}

	if s.cfg.EnumerateShares && s.shares != nil && len(host.Shares) == 0 && hasFileService(host) {
		found, err := s.shares.Enumerate(ctx, host.Address)
		if err != nil {
			s.logger.Debug("Share enumeration failed",
				"target", host.Address.String(), "code", errors.CodeShareEnumFailed, "error", err)
		} else {
			host.Shares = found
		}
	}
}

// mergePrevious replaces the discover-phase port list with the exhaustive
// one, keeps hostname and shares, and classifies the union of open ports.
// When the exhaustive pass was stopped, discover-phase results for ports it
// never reached are kept.
func (t *hostTask) mergePrevious(ctx context.Context, host *Host) {
	prev, ok := t.s.aggregator.Get(host.Address)
	if !ok {
		host.finalize()
		t.enrich(ctx, host)
		return
	}

	if host.Partial {
		probed := make(map[uint16]struct{}, len(host.Ports))
		for _, r := range host.Ports {
			probed[r.Port] = struct{}{}
		}
		for _, r := range prev.Ports {
			if _, ok := probed[r.Port]; !ok {
				host.Ports = append(host.Ports, r)
			}
		}
	}
	host.finalize()

	host.Hostname = prev.Hostname
	host.Shares = prev.Shares

	union := append(prev.OpenPorts(), host.OpenPorts()...)
	slices.Sort(union)
	host.OS = fingerprint.Classify(slices.Compact(union))

	t.enrich(ctx, host)
}

func hasFileService(h *Host) bool {
	for _, p := range h.OpenPorts() {
		if ports.IsFileService(p) {
			return true
		}
	}
	return false
}
