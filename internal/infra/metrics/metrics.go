// Package metrics collects and exposes Prometheus metrics for the client core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for bounded operations.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeTimedOut = "timed_out"
)

// Recorder is what the usecase layer and adapters depend on.
type Recorder interface {
	RecordBoundedOperation(operation, outcome string, elapsed time.Duration)
	RecordSessionTransition(state string)
	RecordSkippedRecord(kind string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	boundedOps     *prometheus.CounterVec
	boundedLatency *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
	skippedRecords *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		boundedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threads_bounded_operation_total",
			Help: "Bounded collaborator calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		boundedLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "threads_bounded_operation_seconds",
			Help:    "Latency of bounded collaborator calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"operation"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threads_session_transitions_total",
			Help: "Session store transitions by resulting state",
		}, []string{"state"}),
		skippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threads_records_skipped_total",
			Help: "Undecodable or orphaned records dropped from read flows",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.boundedOps,
		c.boundedLatency,
		c.transitions,
		c.skippedRecords,
	)

	return c
}

func (c *Collector) RecordBoundedOperation(operation, outcome string, elapsed time.Duration) {
	c.boundedOps.WithLabelValues(operation, outcome).Inc()
	c.boundedLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (c *Collector) RecordSessionTransition(state string) {
	c.transitions.WithLabelValues(state).Inc()
}

func (c *Collector) RecordSkippedRecord(kind string) {
	c.skippedRecords.WithLabelValues(kind).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Handy where no registry is wired.
type Nop struct{}

func (Nop) RecordBoundedOperation(string, string, time.Duration) {}
func (Nop) RecordSessionTransition(string)                       {}
func (Nop) RecordSkippedRecord(string)                           {}
