// Package shares lists the SMB shares a host exposes by running the
// platform's share browser: "net view \\host /all" on Windows and
// "smbclient -L host -N" elsewhere. Hidden shares (ending in $) are dropped.
package shares

import (
	"bufio"
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/metrics"
)

// DefaultTimeout bounds one enumeration.
const DefaultTimeout = 10 * time.Second

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// execRunner runs the command with exec.CommandContext.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() //nolint:gosec // fixed binary, address from netip
}

// Enumerator lists shares through an external command.
type Enumerator struct {
	timeout  time.Duration
	goos     string
	run      Runner
	recorder metrics.Recorder
	logger   *logging.Logger
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(e *Enumerator) { e.run = r }
}

// WithGOOS selects the command flavour instead of runtime.GOOS.
func WithGOOS(goos string) Option {
	return func(e *Enumerator) { e.goos = goos }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Enumerator) { e.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(m metrics.Recorder) Option {
	return func(e *Enumerator) { e.recorder = m }
}

// New creates an enumerator with the given per-host timeout.
func New(timeout time.Duration, opts ...Option) *Enumerator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	e := &Enumerator{
		timeout:  timeout,
		goos:     runtime.GOOS,
		run:      execRunner,
		recorder: metrics.Noop{},
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("shares")
	return e
}

// Enumerate returns the visible share names on addr. A failed or timed out
// command returns a SHARE_ENUM_FAILED error and no shares.
func (e *Enumerator) Enumerate(ctx context.Context, addr netip.Addr) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	name, args, parse := e.command(addr)
	out, err := e.run(ctx, name, args...)
	if err != nil {
		e.recorder.IncrementShareEnumerations("failure")
		if ctx.Err() != nil {
			err = fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		return nil, errors.WrapScanErrorWithTarget(errors.CodeShareEnumFailed,
			"share enumeration failed", addr.String(), err).WithOperation(name)
	}

	found := parse(string(out))
	e.recorder.IncrementShareEnumerations("success")
	e.logger.Debug("Shares enumerated", "target", addr.String(), "count", len(found))
	return found, nil
}

func (e *Enumerator) command(addr netip.Addr) (string, []string, func(string) []string) {
	if e.goos == "windows" {
		return "net", []string{"view", `\\` + addr.String(), "/all"}, ParseNetView
	}
	return "smbclient", []string{"-L", addr.String(), "-N"}, ParseSMBClient
}

// ParseSMBClient extracts share names from "smbclient -L" output. Shares are
// the tab-indented rows after the Sharename header, up to the first
// unindented line.
func ParseSMBClient(out string) []string {
	var shares []string
	inList := false
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "Sharename") {
			inList = true
			continue
		}
		if !inList || strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "\t") {
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "-") {
			continue
		}
		if visible(fields[0]) {
			shares = append(shares, fields[0])
		}
	}
	return shares
}

// ParseNetView extracts share names from "net view \\host /all" output:
// the rows between the dashed separator and the completion message.
func ParseNetView(out string) []string {
	var shares []string
	inList := false
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "---"):
			inList = true
			continue
		case !inList || line == "":
			continue
		case strings.HasPrefix(line, "The command completed"):
			return shares
		}
		if name := strings.Fields(line)[0]; visible(name) {
			shares = append(shares, name)
		}
	}
	return shares
}

func visible(name string) bool {
	return name != "" && !strings.HasSuffix(name, "$")
}
