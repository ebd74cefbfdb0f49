package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/scanning"
)

// CSVHeader is the column layout of the CSV report.
var CSVHeader = []string{
	"Type", "IP Address", "Hostname", "Port", "Service", "SMB Share", "OS Detection", "Response Time",
}

const (
	rowTypePort  = "Port"
	rowTypeShare = "Share"
)

// WriteCSV writes one row per open port and one per share, then a metadata
// block. Filtered ports count as closed and are not listed.
func WriteCSV(w io.Writer, session *scanning.Session) error {
	cw := csv.NewWriter(w)

	rows := [][]string{CSVHeader}
	for i := range session.Hosts {
		h := &session.Hosts[i]
		for _, r := range h.OpenResults() {
			rows = append(rows, []string{
				rowTypePort,
				h.Address.String(),
				h.Hostname,
				strconv.Itoa(int(r.Port)),
				r.Service,
				"",
				h.OS.String(),
				formatLatency(r),
			})
		}
		for _, s := range h.Shares {
			rows = append(rows, []string{
				rowTypeShare,
				h.Address.String(),
				h.Hostname,
				"",
				"",
				s,
				h.OS.String(),
				"",
			})
		}
	}

	info := NewScanInfo(session)
	rows = append(rows,
		[]string{},
		[]string{"Scan Metadata"},
		[]string{"Target", info.Target},
		[]string{"Scan Time", info.ScanTime},
		[]string{"Session ID", session.ID.String()},
		[]string{"Hosts Scanned", strconv.Itoa(session.Stats.HostsScanned)},
		[]string{"Hosts With Open Ports", strconv.Itoa(info.TotalHosts)},
		[]string{"Open Ports", strconv.Itoa(info.OpenPorts)},
		[]string{"Ports Per Host", strconv.Itoa(info.PortsScanned)},
		[]string{"Shares Found", strconv.Itoa(session.Stats.Shares)},
		[]string{"Hostname Resolution", enabled(info.HostnameResolution)},
		[]string{"Share Enumeration", enabled(info.ShareEnumeration)},
		[]string{"Dig Mode", enabled(info.Dig)},
		[]string{"Randomized", enabled(session.Config.Randomize)},
		[]string{"Stopped", strconv.FormatBool(info.Stopped)},
		[]string{"Duration", session.Stats.Duration.String()},
	)

	if err := cw.WriteAll(rows); err != nil {
		return errors.WrapScanError(errors.CodeReportFailed, "failed to write CSV", err)
	}
	return nil
}

func formatLatency(r scanning.PortResult) string {
	return fmt.Sprintf("%.2f ms", float64(r.Latency.Microseconds())/1000)
}

func enabled(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}
