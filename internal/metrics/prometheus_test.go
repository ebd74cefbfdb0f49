package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetrics_InitializationAndUpdate(t *testing.T) {
	pm := NewPrometheusMetrics()
	if pm.GetRegistry() == nil {
		t.Fatalf("GetRegistry returned nil")
	}

	time.Sleep(10 * time.Millisecond)
	pm.UpdateSystemMetrics()
	if got := testutil.ToFloat64(pm.uptime); got <= 0 {
		t.Fatalf("expected uptime to be positive, got %v", got)
	}
	if got := testutil.ToFloat64(pm.memoryUsage); got <= 0 {
		t.Fatalf("expected memory usage to be populated, got %v", got)
	}
}

func TestPrometheusMetrics_IndependentRegistries(t *testing.T) {
	a, b := NewPrometheusMetrics(), NewPrometheusMetrics()
	a.SetLiveClients(3)
	if got := testutil.ToFloat64(b.liveClients); got != 0 {
		t.Errorf("expected registries to be independent, got %v", got)
	}
}

func TestPrometheusMetrics_HTTPHandlerServes(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.UpdateSystemMetrics()
	pm.IncrementPortsScanned("open", 3)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.HandlerFor(pm.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"networkvector_system_uptime_seconds",
		`networkvector_scan_ports_total{state="open"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestPrometheusMetrics_ScanMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.IncrementScansTotal("plain", "completed")
	pm.IncrementScansTotal("plain", "completed")
	pm.IncrementScansTotal("dig", "stopped")
	if got := testutil.CollectAndCount(pm.scansTotal); got != 2 {
		t.Errorf("expected 2 label combinations, got %d", got)
	}
	if got := testutil.ToFloat64(pm.scansTotal.WithLabelValues("plain", "completed")); got != 2 {
		t.Errorf("expected 2 completed plain scans, got %v", got)
	}

	pm.RecordScanDuration("plain", 5*time.Second)
	pm.RecordScanDuration("dig", 2*time.Second)
	if got := testutil.CollectAndCount(pm.scanDuration); got != 2 {
		t.Errorf("expected 2 duration series, got %d", got)
	}

	pm.IncrementPortsScanned("open", 2)
	pm.IncrementPortsScanned("closed", 10)
	pm.IncrementPortsScanned("filtered", 1)
	if got := testutil.ToFloat64(pm.portsScanned.WithLabelValues("closed")); got != 10 {
		t.Errorf("expected 10 closed ports, got %v", got)
	}

	pm.IncrementHostsScanned("alive")
	pm.IncrementScanErrors("plain", "TARGET_INVALID")
	pm.SetActiveHosts(7)
	if got := testutil.ToFloat64(pm.activeHosts); got != 7 {
		t.Errorf("expected 7 active hosts, got %v", got)
	}
}

func TestPrometheusMetrics_CollaboratorMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.IncrementResolverLookups("resolved")
	pm.IncrementResolverLookups("failed")
	pm.IncrementResolverLookups("cached")
	pm.IncrementShareEnumerations("success")
	pm.SetLiveClients(2)

	if got := testutil.CollectAndCount(pm.resolverLookups); got != 3 {
		t.Errorf("expected 3 resolver series, got %d", got)
	}
	if got := testutil.ToFloat64(pm.liveClients); got != 2 {
		t.Errorf("expected 2 live clients, got %v", got)
	}
}

func TestPrometheusMetrics_StartPeriodicUpdates(t *testing.T) {
	pm := NewPrometheusMetrics()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		pm.StartPeriodicUpdates(ctx, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartPeriodicUpdates did not return after context cancellation")
	}
	if testutil.ToFloat64(pm.goroutines) <= 0 {
		t.Error("expected goroutine gauge to be populated")
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = Noop{}
	r.IncrementScansTotal("plain", "completed")
	r.SetActiveHosts(1)
}
