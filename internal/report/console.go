package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/artofscripting/networkvector/internal/ports"
	"github.com/artofscripting/networkvector/internal/scanning"
)

const bannerWidth = 50

// PrintBanner writes the scan parameters before a session starts.
func PrintBanner(w io.Writer, cfg scanning.ScanConfig) {
	portCount := "curated"
	if ps, err := ports.Build(cfg.PortMode, cfg.Ports); err == nil {
		portCount = fmt.Sprintf("%d ports", len(ps))
	}

	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Network Vector - Network Topology Scanner")
	fmt.Fprintf(w, "Target: %s\n", cfg.Targets)
	if len(cfg.Exempt) > 0 {
		fmt.Fprintf(w, "Exempt: %s\n", strings.Join(cfg.Exempt, ", "))
	}
	fmt.Fprintf(w, "Ports: %s\n", portCount)
	fmt.Fprintf(w, "Timeout: %s\n", cfg.Timeout)
	fmt.Fprintf(w, "Max Threads: %d\n", cfg.Threads)
	fmt.Fprintf(w, "Hostname Resolution: %s\n", enabled(cfg.ResolveHostnames))
	fmt.Fprintf(w, "Share Enumeration: %s\n", enabled(cfg.EnumerateShares))
	fmt.Fprintf(w, "Randomization: %s\n", enabled(cfg.Randomize))
	if cfg.MaxDelay > 0 {
		fmt.Fprintf(w, "Scan Delay: up to %s per host\n", cfg.MaxDelay)
	}
	if cfg.Dig {
		fmt.Fprintln(w, "Dig Mode: Enabled (all 65535 ports on alive hosts)")
	}
	if cfg.Live {
		fmt.Fprintln(w, "Live Mode: Enabled")
	}
	fmt.Fprintln(w, rule)
}

// PrintSummary writes the per-host results table for session.
func PrintSummary(w io.Writer, session *scanning.Session) error {
	status := "completed"
	if session.Stopped {
		status = "stopped"
	}
	fmt.Fprintf(w, "\nScan %s in %s\n", status, session.Stats.Duration.Round(10*time.Millisecond))

	alive := session.AliveHosts()
	if len(alive) == 0 {
		fmt.Fprintln(w, "No open ports found on any hosts.")
		return nil
	}
	fmt.Fprintf(w, "Found %d hosts with open ports (%d open ports total):\n",
		len(alive), session.Stats.OpenPorts)

	table := tablewriter.NewWriter(w)
	table.Header("Host", "Hostname", "Open Ports", "OS", "Avg Response", "Shares")
	for i := range alive {
		h := &alive[i]
		_ = table.Append([]string{
			h.Address.String(),
			h.Hostname,
			joinPorts(h.OpenPorts()),
			h.OS.String(),
			h.AvgResponse.Round(time.Microsecond).String(),
			strings.Join(h.Shares, ", "),
		})
	}
	return table.Render()
}

func joinPorts(ps []uint16) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("%d/%s", p, ports.ServiceName(p))
	}
	return strings.Join(parts, ", ")
}
