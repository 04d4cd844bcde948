package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitor is a collection of Prometheus metrics for sync runs.
// A nil *Monitor records nothing.
type Monitor struct {
	// A histogram to measure how long each host pass takes.
	hostRunTimer *prometheus.HistogramVec
	// A counter of reconciled instances by outcome.
	instanceCounter *prometheus.CounterVec
	// A counter of reconciled child records by kind and outcome.
	childCounter *prometheus.CounterVec
	// A counter of failed host passes by failure kind.
	hostFailureCounter *prometheus.CounterVec
	// A gauge with the unix time of the last finished pass per host.
	lastRunGauge *prometheus.GaugeVec
}

// NewSyncMonitor creates a sync monitor and registers its metrics.
func NewSyncMonitor(registry *Registry) *Monitor {
	hostRunTimer := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "incus_sync_host_run_duration_seconds",
		Help:    "Duration of a host sync pass",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 15), // 0.01s to ~164s
	}, []string{"host", "state"})
	instanceCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incus_sync_instances_total",
		Help: "Number of reconciled instances by outcome",
	}, []string{"host", "outcome"})
	childCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incus_sync_children_total",
		Help: "Number of reconciled interfaces, ip addresses and disks by outcome",
	}, []string{"host", "kind", "outcome"})
	hostFailureCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incus_sync_host_failures_total",
		Help: "Number of failed host sync passes by failure kind",
	}, []string{"host", "kind"})
	lastRunGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "incus_sync_host_last_run_timestamp_seconds",
		Help: "Unix time of the last finished host sync pass",
	}, []string{"host"})
	registry.MustRegister(
		hostRunTimer,
		instanceCounter,
		childCounter,
		hostFailureCounter,
		lastRunGauge,
	)
	return &Monitor{
		hostRunTimer:       hostRunTimer,
		instanceCounter:    instanceCounter,
		childCounter:       childCounter,
		hostFailureCounter: hostFailureCounter,
		lastRunGauge:       lastRunGauge,
	}
}

// ObserveHostRun records a finished host pass.
func (m *Monitor) ObserveHostRun(host, state string, elapsed time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.hostRunTimer.WithLabelValues(host, state).Observe(elapsed.Seconds())
	m.lastRunGauge.WithLabelValues(host).Set(float64(finished.Unix()))
}

// AddInstances counts n instances with the given outcome.
func (m *Monitor) AddInstances(host, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.instanceCounter.WithLabelValues(host, outcome).Add(float64(n))
}

// AddChildren counts n child records of a kind with the given outcome.
func (m *Monitor) AddChildren(host, kind, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.childCounter.WithLabelValues(host, kind, outcome).Add(float64(n))
}

// CountHostFailure counts one failed host pass.
func (m *Monitor) CountHostFailure(host, kind string) {
	if m == nil {
		return
	}
	m.hostFailureCounter.WithLabelValues(host, kind).Inc()
}
