package scanning

import (
	"fmt"
	"net/netip"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/fingerprint"
	"github.com/artofscripting/networkvector/internal/ports"
	"github.com/artofscripting/networkvector/internal/targets"
)

const (
	DefaultTimeout = 500 * time.Millisecond
	DefaultThreads = 1000
)

// ScanConfig represents the configuration for a scan session. It is built
// once and treated as an immutable value afterwards.
type ScanConfig struct {
	// Targets is the comma separated list of addresses, CIDR blocks and ranges
	Targets string `json:"targets"`
	// Exempt lists addresses, CIDR blocks and ranges that must never be probed
	Exempt []string `json:"exempt,omitempty"`
	// MaxHosts bounds target expansion (0 = targets.DefaultMaxHosts)
	MaxHosts int `json:"max_hosts"`
	// Timeout bounds each connection attempt
	Timeout time.Duration `json:"timeout"`
	// Threads is the maximum number of concurrent host tasks
	Threads int `json:"threads"`
	// PortMode selects the curated, explicit or full port set
	PortMode ports.Mode `json:"port_mode"`
	// Ports is the explicit port list used with ports.ModeExplicit
	Ports []uint16 `json:"ports,omitempty"`
	// Randomize shuffles host order and each host's port order
	Randomize bool `json:"randomize"`
	// MaxDelay bounds the per-host stealth delay (0 = none)
	MaxDelay time.Duration `json:"max_delay"`
	// Seed makes randomization reproducible (0 = seeded from the clock)
	Seed uint64 `json:"-"`
	// Dig enables the discover-then-exhaustive two phase mode
	Dig bool `json:"dig"`
	// Live delivers each host to listeners as soon as it completes
	Live bool `json:"live"`
	// ResolveHostnames enables reverse DNS lookups for scanned hosts
	ResolveHostnames bool `json:"resolve_hostnames"`
	// EnumerateShares enables SMB share listing on hosts with file services open
	EnumerateShares bool `json:"enumerate_shares"`
	// RateLimit caps connection attempts per second across the session (0 = unlimited)
	RateLimit int `json:"rate_limit"`
}

// DefaultScanConfig returns the configuration used when nothing is overridden.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		MaxHosts:         targets.DefaultMaxHosts,
		Timeout:          DefaultTimeout,
		Threads:          DefaultThreads,
		PortMode:         ports.ModeCurated,
		Randomize:        true,
		ResolveHostnames: true,
		EnumerateShares:  true,
	}
}

// Validate checks the configuration before any network activity.
func (c ScanConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.ErrConfigInvalid("timeout", c.Timeout)
	}
	if c.Threads < 1 {
		return errors.ErrConfigInvalid("threads", c.Threads)
	}
	if c.MaxDelay < 0 {
		return errors.ErrConfigInvalid("max_delay", c.MaxDelay)
	}
	if c.RateLimit < 0 {
		return errors.ErrConfigInvalid("rate_limit", c.RateLimit)
	}
	if c.PortMode == ports.ModeExplicit && len(c.Ports) == 0 {
		return errors.ErrConfigMissing("ports")
	}
	return nil
}

// PortState is the outcome of one connection attempt.
type PortState uint8

const (
	StateClosed PortState = iota
	StateOpen
	StateFiltered
)

// String returns "open", "closed" or "filtered".
func (s PortState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFiltered:
		return "filtered"
	default:
		return "closed"
	}
}

// MarshalText encodes the state by name.
func (s PortState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *PortState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "open":
		*s = StateOpen
	case "closed":
		*s = StateClosed
	case "filtered":
		*s = StateFiltered
	default:
		return fmt.Errorf("unknown port state %q", string(b))
	}
	return nil
}

// IsOpen reports whether the port accepted a connection. Filtered ports
// count as closed.
func (s PortState) IsOpen() bool {
	return s == StateOpen
}

// PortResult represents the probe result for a single port.
type PortResult struct {
	// Port is the TCP port number
	Port uint16 `json:"port"`
	// State is open, closed or filtered
	State PortState `json:"state"`
	// Service is the well-known service name from the static table
	Service string `json:"service"`
	// Latency is the connect time, set for open ports only
	Latency time.Duration `json:"latency,omitempty"`
}

// Host represents a scanned host and its findings.
type Host struct {
	Address     netip.Addr        `json:"address"`
	Hostname    string            `json:"hostname,omitempty"`
	Ports       []PortResult      `json:"ports"`
	Shares      []string          `json:"shares,omitempty"`
	OS          fingerprint.Guess `json:"os"`
	AvgResponse time.Duration     `json:"avg_response"`
	// Partial is set when a stop interrupted the host task before every port
	// was probed.
	Partial bool `json:"partial,omitempty"`
}

// OpenPorts returns the open port numbers in ascending order.
func (h *Host) OpenPorts() []uint16 {
	var out []uint16
	for _, r := range h.Ports {
		if r.State.IsOpen() {
			out = append(out, r.Port)
		}
	}
	return out
}

// OpenResults returns the open PortResults in ascending port order.
func (h *Host) OpenResults() []PortResult {
	var out []PortResult
	for _, r := range h.Ports {
		if r.State.IsOpen() {
			out = append(out, r)
		}
	}
	return out
}

// HasOpenPorts reports whether any port is open.
func (h *Host) HasOpenPorts() bool {
	for _, r := range h.Ports {
		if r.State.IsOpen() {
			return true
		}
	}
	return false
}

// DisplayName is "ip-hostname" when a hostname is known, else the address.
func (h *Host) DisplayName() string {
	if h.Hostname == "" {
		return h.Address.String()
	}
	return fmt.Sprintf("%s-%s", h.Address, h.Hostname)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (h *Host) Clone() Host {
	c := *h
	c.Ports = slices.Clone(h.Ports)
	c.Shares = slices.Clone(h.Shares)
	return c
}

// finalize sorts ports, then derives the average open-port latency and the
// OS guess from them.
func (h *Host) finalize() {
	slices.SortFunc(h.Ports, func(a, b PortResult) int { return int(a.Port) - int(b.Port) })

	var total time.Duration
	var open []uint16
	for _, r := range h.Ports {
		if r.State.IsOpen() {
			total += r.Latency
			open = append(open, r.Port)
		}
	}
	h.AvgResponse = 0
	if len(open) > 0 {
		h.AvgResponse = total / time.Duration(len(open))
	}
	h.OS = fingerprint.Classify(open)
}

// Phase identifies a dig phase. Plain scans run PhaseDiscover only.
type Phase string

const (
	PhaseDiscover   Phase = "discover"
	PhaseExhaustive Phase = "exhaustive"
)

// Session is one scan invocation.
type Session struct {
	ID        uuid.UUID        `json:"id"`
	Config    ScanConfig       `json:"config"`
	Targets   []targets.Target `json:"targets"`
	Hosts     []Host           `json:"hosts"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Phase     Phase            `json:"phase"`
	Progress  ProgressSnapshot `json:"progress"`
	Stopped   bool             `json:"stopped"`
	Stats     SessionStats     `json:"stats"`
}

// SessionStats summarizes a finished session.
type SessionStats struct {
	HostsScanned int           `json:"hosts_scanned"`
	HostsAlive   int           `json:"hosts_alive"`
	OpenPorts    int           `json:"open_ports"`
	Shares       int           `json:"shares"`
	PortsPerHost int           `json:"ports_per_host"`
	Duration     time.Duration `json:"duration"`
}

// AliveHosts returns the hosts with at least one open port.
func (s *Session) AliveHosts() []Host {
	var out []Host
	for i := range s.Hosts {
		if s.Hosts[i].HasOpenPorts() {
			out = append(out, s.Hosts[i])
		}
	}
	return out
}

func computeStats(hosts []Host, portsPerHost int, d time.Duration) SessionStats {
	st := SessionStats{HostsScanned: len(hosts), PortsPerHost: portsPerHost, Duration: d}
	for i := range hosts {
		open := len(hosts[i].OpenPorts())
		if open > 0 {
			st.HostsAlive++
		}
		st.OpenPorts += open
		st.Shares += len(hosts[i].Shares)
	}
	return st
}
