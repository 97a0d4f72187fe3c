// ABOUTME: Prometheus instrumentation for sync passes and pushes.
// ABOUTME: All collectors register on the registry passed to NewManager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "fitsync"
	Subsystem = "sync"
)

// Manager holds the sync collectors.
type Manager struct {
	// counters
	CounterPasses           *prometheus.CounterVec
	CounterRowsPushed       *prometheus.CounterVec
	CounterPushFailures     *prometheus.CounterVec
	CounterRowsPulled       *prometheus.CounterVec
	CounterMalformedRecords *prometheus.CounterVec
	CounterDroppedPushes    prometheus.Counter

	// gauges
	GaugeState     prometheus.Gauge
	GaugeDirtyRows prometheus.Gauge

	// histograms
	HistPassDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager(Namespace, "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager(Namespace, "test", reg), reg
}

// NewManager registers every sync collector on reg.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "passes_total",
			Help:      "Sync passes by result",
		}, []string{"result"}),
		CounterRowsPushed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rows_pushed_total",
			Help:      "Dirty rows pushed to the remote store",
		}, []string{"family"}),
		CounterPushFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "push_failures_total",
			Help:      "Rows whose push failed and stayed dirty",
		}, []string{"family"}),
		CounterRowsPulled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rows_pulled_total",
			Help:      "Remote records written into the local store",
		}, []string{"family"}),
		CounterMalformedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "malformed_records_total",
			Help:      "Records skipped because they could not be decoded",
		}, []string{"family"}),
		CounterDroppedPushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dropped_pushes_total",
			Help:      "Single-row push requests dropped because the queue was full",
		}),
		GaugeState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "state",
			Help:      "Coordinator state: 0 idle, 1 syncing, 2 success, 3 error",
		}),
		GaugeDirtyRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dirty_rows",
			Help:      "Local rows awaiting push after the last pass",
		}),
		HistPassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pass_duration_seconds",
			Help:      "Duration of a sync pass in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
	}
}
