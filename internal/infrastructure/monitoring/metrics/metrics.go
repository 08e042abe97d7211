// Package metrics exposes the worker's Prometheus instrumentation:
// job-level counters, per-pair docking counters, and tool invocation
// durations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job kinds used as label values.
const (
	JobPreparation = "preparation"
	JobBatch       = "batch"
)

// Collector bundles the engine's metric families.  A nil *Collector is a
// valid no-op, so pipeline code never has to guard its calls.
type Collector struct {
	registry *prometheus.Registry

	jobsStarted   *prometheus.CounterVec
	jobsSucceeded *prometheus.CounterVec
	jobsFailed    *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec

	pairAttempts *prometheus.CounterVec

	toolDuration *prometheus.HistogramVec
}

// NewCollector registers all metric families on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		jobsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plasmodock",
			Name:      "jobs_started_total",
			Help:      "Docking jobs picked up by this worker.",
		}, []string{"kind"}),
		jobsSucceeded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plasmodock",
			Name:      "jobs_succeeded_total",
			Help:      "Docking jobs that reached a successful terminal state.",
		}, []string{"kind"}),
		jobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plasmodock",
			Name:      "jobs_failed_total",
			Help:      "Docking jobs that ended in failure.",
		}, []string{"kind"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plasmodock",
			Name:      "job_duration_seconds",
			Help:      "Wall-clock duration of docking jobs.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"kind"}),
		pairAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plasmodock",
			Name:      "pair_attempts_total",
			Help:      "Receptor/ligand pair attempts by outcome.",
		}, []string{"outcome"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plasmodock",
			Name:      "tool_invocation_seconds",
			Help:      "Durations of external tool invocations.",
			Buckets:   []float64{0.1, 1, 5, 30, 120, 600, 1800, 3600},
		}, []string{"tool"}),
	}
}

// Handler serves the registry for the worker's /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) JobStarted(kind string) {
	if c == nil {
		return
	}
	c.jobsStarted.WithLabelValues(kind).Inc()
}

func (c *Collector) JobFinished(kind string, success bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	if success {
		c.jobsSucceeded.WithLabelValues(kind).Inc()
	} else {
		c.jobsFailed.WithLabelValues(kind).Inc()
	}
	c.jobDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (c *Collector) PairAttempted(success bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.pairAttempts.WithLabelValues(outcome).Inc()
}

func (c *Collector) ToolInvoked(tool string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
