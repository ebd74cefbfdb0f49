package report

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"time"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/scanning"
)

// MaxThreeDNodes is the graph size above which 3D rendering falls back to
// 2D unless forced.
const MaxThreeDNodes = 2500

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

// HTMLOptions controls graph rendering.
type HTMLOptions struct {
	Title       string
	ThreeD      bool
	ForceThreeD bool
	// RefreshSeconds adds a meta refresh, used while a live scan is running.
	RefreshSeconds int
}

// LegendItem is one row of the graph legend.
type LegendItem struct {
	Label string
	Color string
}

// ScanInfo is the header block shown on the page and embedded as SCAN_DATA.
type ScanInfo struct {
	Target             string `json:"target"`
	ScanTime           string `json:"scan_time"`
	TotalHosts         int    `json:"total_hosts"`
	PortsScanned       int    `json:"ports_scanned"`
	OpenPorts          int    `json:"open_ports"`
	HostnameResolution bool   `json:"hostname_resolution"`
	ShareEnumeration   bool   `json:"share_enumeration"`
	Dig                bool   `json:"dig"`
	Stopped            bool   `json:"stopped"`
	Live               bool   `json:"live"`
}

// scanData is embedded in the page for offline analysis.
type scanData struct {
	ScanResults  map[string][]uint16 `json:"scan_results"`
	ShareResults map[string][]string `json:"share_results"`
	Timestamp    int64               `json:"timestamp"`
	ScanInfo     ScanInfo            `json:"scan_info"`
}

type pageData struct {
	Title          string
	RefreshSeconds int
	Info           ScanInfo
	Legend         []LegendItem
	Graph          template.JS
	ScanData       template.JS
}

var legendLabels = map[string]string{
	GroupNetworkA:  "Network /8",
	GroupNetworkB:  "Network /16",
	GroupNetworkC:  "Network /24",
	GroupHost:      "Host",
	GroupPort:      "Port",
	GroupRiskyPort: "Risky port",
	GroupShares:    "Shares",
	GroupShare:     "Share",
}

// NewScanInfo summarizes session for report headers.
func NewScanInfo(session *scanning.Session) ScanInfo {
	cfg := session.Config
	end := session.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	info := ScanInfo{
		Target:             cfg.Targets,
		ScanTime:           "Completed at " + end.Format("2006-01-02 15:04:05"),
		PortsScanned:       session.Stats.PortsPerHost,
		HostnameResolution: cfg.ResolveHostnames,
		ShareEnumeration:   cfg.EnumerateShares,
		Dig:                cfg.Dig,
		Stopped:            session.Stopped,
		Live:               session.EndTime.IsZero(),
	}
	if info.Live {
		info.ScanTime = "Updated at " + end.Format("2006-01-02 15:04:05")
	}
	for i := range session.Hosts {
		if open := len(session.Hosts[i].OpenPorts()); open > 0 {
			info.TotalHosts++
			info.OpenPorts += open
		}
	}
	return info
}

// UseThreeD reports whether a graph of n nodes renders in 3D.
func (o HTMLOptions) UseThreeD(n int) bool {
	return o.ThreeD && (o.ForceThreeD || n <= MaxThreeDNodes)
}

// WriteHTML renders session as a self-contained force-directed graph page.
func WriteHTML(w io.Writer, session *scanning.Session, opts HTMLOptions) error {
	if opts.Title == "" {
		opts.Title = "Network Vector - " + session.Config.Targets
	}

	g := BuildGraph(session.Hosts)
	graphJSON, err := json.Marshal(g)
	if err != nil {
		return errors.WrapScanError(errors.CodeReportFailed, "failed to encode graph", err)
	}

	info := NewScanInfo(session)
	data := scanData{
		ScanResults:  make(map[string][]uint16),
		ShareResults: make(map[string][]string),
		Timestamp:    time.Now().Unix(),
		ScanInfo:     info,
	}
	for i := range session.Hosts {
		h := &session.Hosts[i]
		if !h.HasOpenPorts() {
			continue
		}
		data.ScanResults[h.DisplayName()] = h.OpenPorts()
		if len(h.Shares) > 0 {
			data.ShareResults[h.DisplayName()] = h.Shares
		}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return errors.WrapScanError(errors.CodeReportFailed, "failed to encode scan data", err)
	}

	var legend []LegendItem
	for _, group := range g.Groups() {
		legend = append(legend, LegendItem{Label: legendLabels[group], Color: groupColors[group]})
	}

	name := "graph2d.html.tmpl"
	if opts.UseThreeD(len(g.Nodes)) {
		name = "graph3d.html.tmpl"
	}

	page := pageData{
		Title:          opts.Title,
		RefreshSeconds: opts.RefreshSeconds,
		Info:           info,
		Legend:         legend,
		Graph:          template.JS(graphJSON), //nolint:gosec // json.Marshal escapes HTML
		ScanData:       template.JS(dataJSON),  //nolint:gosec // json.Marshal escapes HTML
	}
	if err := templates.ExecuteTemplate(w, name, page); err != nil {
		return errors.WrapScanError(errors.CodeReportFailed, "failed to render graph", err)
	}
	return nil
}
