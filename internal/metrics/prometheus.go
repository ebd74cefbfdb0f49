// Package metrics records scan activity. The engine and its collaborators
// write through the Recorder interface; PrometheusMetrics backs it with
// collectors on a private registry that the live server exposes on /metrics.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "networkvector"

// Session durations range from a single host to a /16 dig.
var durationBuckets = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600}

// PrometheusMetrics is a Recorder backed by Prometheus collectors.
type PrometheusMetrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	scansTotal   *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	scanErrors   *prometheus.CounterVec
	portsScanned *prometheus.CounterVec
	hostsScanned *prometheus.CounterVec
	activeHosts  prometheus.Gauge

	resolverLookups   *prometheus.CounterVec
	shareEnumerations *prometheus.CounterVec
	liveClients       prometheus.Gauge

	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	uptime      prometheus.Gauge
}

var _ Recorder = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers every collector, plus the Go runtime and
// process collectors, on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &PrometheusMetrics{
		registry:  reg,
		startTime: time.Now(),

		scansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scan", Name: "total",
			Help: "Scan sessions by mode and final status.",
		}, []string{"mode", "status"}),
		scanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scan", Name: "duration_seconds",
			Help:    "Wall-clock duration of scan sessions.",
			Buckets: durationBuckets,
		}, []string{"mode"}),
		scanErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scan", Name: "errors_total",
			Help: "Sessions that failed before probing, by mode and error code.",
		}, []string{"mode", "error_type"}),
		portsScanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scan", Name: "ports_total",
			Help: "Port probes by resulting state.",
		}, []string{"state"}),
		hostsScanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scan", Name: "hosts_total",
			Help: "Completed host tasks by status.",
		}, []string{"status"}),
		activeHosts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scan", Name: "active_hosts",
			Help: "Host tasks currently running.",
		}),

		resolverLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "resolver", Name: "lookups_total",
			Help: "Reverse DNS lookups by outcome.",
		}, []string{"status"}),
		shareEnumerations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "shares", Name: "enumerations_total",
			Help: "SMB share enumerations by outcome.",
		}, []string{"status"}),
		liveClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "live", Name: "clients",
			Help: "Connected live feed clients.",
		}),

		memoryUsage: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "system", Name: "memory_usage_bytes",
			Help: "Heap bytes allocated.",
		}),
		goroutines: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "system", Name: "goroutines",
			Help: "Live goroutines.",
		}),
		uptime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "system", Name: "uptime_seconds",
			Help: "Seconds since the recorder was created.",
		}),
	}
}

// GetRegistry returns the registry holding every collector.
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

func (pm *PrometheusMetrics) IncrementScansTotal(mode, status string) {
	pm.scansTotal.WithLabelValues(mode, status).Inc()
}

func (pm *PrometheusMetrics) RecordScanDuration(mode string, d time.Duration) {
	pm.scanDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (pm *PrometheusMetrics) IncrementScanErrors(mode, errorType string) {
	pm.scanErrors.WithLabelValues(mode, errorType).Inc()
}

func (pm *PrometheusMetrics) IncrementPortsScanned(state string, count int) {
	pm.portsScanned.WithLabelValues(state).Add(float64(count))
}

func (pm *PrometheusMetrics) IncrementHostsScanned(status string) {
	pm.hostsScanned.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) SetActiveHosts(count int) {
	pm.activeHosts.Set(float64(count))
}

func (pm *PrometheusMetrics) IncrementResolverLookups(status string) {
	pm.resolverLookups.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) IncrementShareEnumerations(status string) {
	pm.shareEnumerations.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) SetLiveClients(count int) {
	pm.liveClients.Set(float64(count))
}

// UpdateSystemMetrics samples memory, goroutine count and uptime.
func (pm *PrometheusMetrics) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	pm.memoryUsage.Set(float64(m.Alloc))
	pm.goroutines.Set(float64(runtime.NumGoroutine()))
	pm.uptime.Set(time.Since(pm.startTime).Seconds())
}

// StartPeriodicUpdates samples system metrics every interval until ctx is
// done. It blocks.
func (pm *PrometheusMetrics) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.UpdateSystemMetrics()
		}
	}
}
