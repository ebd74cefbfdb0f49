package metrics

import "time"

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks github.com/artofscripting/networkvector/internal/metrics Recorder

// Recorder is the metrics surface the scan engine and its collaborators
// write to. PrometheusMetrics implements it; Noop discards everything.
type Recorder interface {
	IncrementScansTotal(mode, status string)
	RecordScanDuration(mode string, duration time.Duration)
	IncrementScanErrors(mode, errorType string)
	IncrementPortsScanned(state string, count int)
	IncrementHostsScanned(status string)
	SetActiveHosts(count int)
	IncrementResolverLookups(status string)
	IncrementShareEnumerations(status string)
	SetLiveClients(count int)
}

// Noop is a Recorder that records nothing.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) IncrementScansTotal(string, string) {}
func (Noop) RecordScanDuration(string, time.Duration) {}
func (Noop) IncrementScanErrors(string, string) {}
func (Noop) IncrementPortsScanned(string, int) {}
func (Noop) IncrementHostsScanned(string) {}
func (Noop) SetActiveHosts(int) {}
func (Noop) IncrementResolverLookups(string) {}
func (Noop) IncrementShareEnumerations(string) {}
func (Noop) SetLiveClients(int) {}
