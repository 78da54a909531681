// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ekon-lab/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Engine metrics
	RoundsTotal       prometheus.Counter
	TurnsTotal        prometheus.Counter
	StrategyFailures  *prometheus.CounterVec
	SubActions        *prometheus.CounterVec
	DecisionLatency   *prometheus.HistogramVec
	SimulationsActive prometheus.Gauge

	// Benchmark metrics
	ReplicasTotal   *prometheus.CounterVec
	ReplicaDuration prometheus.Histogram
	WorkersActive   prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Stream metrics
	StreamClients prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "ekon_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Engine metrics
		RoundsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rounds_total",
			Help:      "Total number of simulation rounds completed",
		}),
		TurnsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "turns_total",
			Help:      "Total number of agent turns played",
		}),
		StrategyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "strategy_failures_total",
			Help:      "Total number of failed strategy invocations by strategy and kind",
		}, []string{"strategy", "kind"}),
		SubActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "sub_actions_total",
			Help:      "Total number of settled sub-actions by type and result",
		}, []string{"type", "result"}),
		DecisionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decision_latency_seconds",
			Help:      "Strategy decision latency in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{"strategy"}),
		SimulationsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "simulations_active",
			Help:      "Number of simulations currently running",
		}),

		// Benchmark metrics
		ReplicasTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "benchmark",
			Name:      "replicas_total",
			Help:      "Total number of replicas by status",
		}, []string{"status"}),
		ReplicaDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "benchmark",
			Name:      "replica_duration_seconds",
			Help:      "Replica execution duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		WorkersActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "benchmark",
			Name:      "workers_active",
			Help:      "Number of replica workers currently busy",
		}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Stream metrics
		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected WebSocket clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint serving g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordRound counts a completed round.
func (m *Metrics) RecordRound() {
	if m == nil {
		return
	}
	m.RoundsTotal.Inc()
}

// RecordTurn records one agent turn and its decision latency.
func (m *Metrics) RecordTurn(strategy string, d time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.Inc()
	m.DecisionLatency.WithLabelValues(strategy).Observe(d.Seconds())
}

// RecordStrategyFailure counts a failed strategy invocation.
func (m *Metrics) RecordStrategyFailure(strategy, kind string) {
	if m == nil {
		return
	}
	m.StrategyFailures.WithLabelValues(strategy, kind).Inc()
}

// RecordSubAction counts a settled sub-action.
func (m *Metrics) RecordSubAction(actionType string, accepted bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.SubActions.WithLabelValues(actionType, result).Inc()
}

// SimulationStarted increments the active simulations gauge; the returned
// func decrements it.
func (m *Metrics) SimulationStarted() func() {
	if m == nil {
		return func() {}
	}
	m.SimulationsActive.Inc()
	return m.SimulationsActive.Dec
}

// RecordReplica records a finished replica.
func (m *Metrics) RecordReplica(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ReplicasTotal.WithLabelValues(status).Inc()
	if d > 0 {
		m.ReplicaDuration.Observe(d.Seconds())
	}
}

// RecordSkipped counts replicas that were never started.
func (m *Metrics) RecordSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReplicasTotal.WithLabelValues(domain.ReplicaStatusSkipped).Add(float64(n))
}

// WorkerBusy increments the busy workers gauge; the returned func decrements it.
func (m *Metrics) WorkerBusy() func() {
	if m == nil {
		return func() {}
	}
	m.WorkersActive.Inc()
	return m.WorkersActive.Dec
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// StreamClientConnected increments the stream clients gauge; the returned
// func decrements it.
func (m *Metrics) StreamClientConnected() func() {
	if m == nil {
		return func() {}
	}
	m.StreamClients.Inc()
	return m.StreamClients.Dec
}
