package scanning

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/ports"
)

//go:generate mockgen -destination=mocks/mock_prober.go -package=mocks github.com/artofscripting/networkvector/internal/scanning Prober

// Prober performs a single connection attempt against one port.
// Implementations never return an error: every failure maps to a state.
type Prober interface {
	Probe(ctx context.Context, addr netip.Addr, port uint16) PortResult
}

// TCPProber is a full-connect prober built on net.Dialer.
type TCPProber struct {
	Timeout time.Duration
	logger  *logging.Logger
}

// NewTCPProber returns a prober with the given per-attempt timeout.
func NewTCPProber(timeout time.Duration, logger *logging.Logger) *TCPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TCPProber{Timeout: timeout, logger: logger.WithComponent("probe")}
}

// Probe dials addr:port once.
func (p *TCPProber) Probe(ctx context.Context, addr netip.Addr, port uint16) PortResult {
	result := PortResult{Port: port, Service: ports.ServiceName(port)}

	d := net.Dialer{Timeout: p.Timeout}
	target := net.JoinHostPort(addr.String(), strconv.Itoa(int(port)))

	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", target)
	elapsed := time.Since(start)
	if err == nil {
		_ = conn.Close()
		result.State = StateOpen
		// Coarse clocks can report zero for loopback connects.
		result.Latency = max(elapsed, time.Nanosecond)
		return result
	}

	code := classify(err)
	if code == errors.CodePortClosed {
		result.State = StateClosed
		return result
	}
	result.State = StateFiltered

	if p.logger.Enabled(ctx, slog.LevelDebug) {
		perr := probeError(code, target, err)
		if code == errors.CodeResourceExhausted {
			p.logger.Debug("Probe hit a resource limit", "target", target, "code", code, "error", perr)
		} else {
			p.logger.Debug("Port filtered", "target", target, "code", code,
				"transient", errors.IsRetryable(perr), "error", perr)
		}
	}
	return result
}

// probeError wraps a failed dial. Failed attempts are never retried; the
// error only feeds debug logging.
func probeError(code errors.ErrorCode, target string, cause error) *errors.ScanError {
	var e *errors.ScanError
	switch code {
	case errors.CodeTimeout:
		e = errors.ErrScanTimeout(target)
	case errors.CodeHostUnreachable:
		e = errors.ErrHostUnreachable(target)
	default:
		e = errors.NewScanErrorWithTarget(code, "Probe failed", target)
	}
	e.Cause = cause
	return e.WithOperation("probe")
}

// classify maps a dial error onto the error taxonomy.
func classify(err error) errors.ErrorCode {
	switch {
	case stderrors.Is(err, syscall.ECONNREFUSED):
		return errors.CodePortClosed
	case stderrors.Is(err, syscall.EMFILE),
		stderrors.Is(err, syscall.ENFILE),
		stderrors.Is(err, syscall.ENOBUFS):
		return errors.CodeResourceExhausted
	case stderrors.Is(err, syscall.EHOSTUNREACH):
		return errors.CodeHostUnreachable
	case stderrors.Is(err, syscall.ENETUNREACH):
		return errors.CodeNetworkUnreachable
	case stderrors.Is(err, context.Canceled):
		return errors.CodeCanceled
	case stderrors.Is(err, os.ErrDeadlineExceeded), stderrors.Is(err, context.DeadlineExceeded):
		return errors.CodeTimeout
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.CodeTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "refused"):
		return errors.CodePortClosed
	case strings.Contains(msg, "too many open files"), strings.Contains(msg, "no buffer space"):
		return errors.CodeResourceExhausted
	}
	return errors.CodeScanFailed
}
