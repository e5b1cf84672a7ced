// Package telemetry adds optional Prometheus metrics and OpenTelemetry
// tracing around node execution, gate evaluation, and barrier phases.
// Callers that do not enable telemetry use NoopMetrics (or a nil
// *Metrics), whose Record methods do nothing.
//
// Grounded on dshills-langgraph-go/graph/metrics.go's PrometheusMetrics
// (promauto factory, Namespace/Help/Buckets shape) and
// graph/emit/otel.go's OTelEmitter (tracer.Start/span attributes/status).
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus instruments for the pipeline core.
type Metrics struct {
	enabled bool

	nodeExecutions  *prometheus.CounterVec
	executeDuration *prometheus.HistogramVec
	gateEvaluations *prometheus.CounterVec
	barrierPhase    *prometheus.HistogramVec
}

// NewMetrics registers all instruments with registry (use
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,
		nodeExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anacostia",
			Name:      "node_executions_total",
			Help:      "Count of node Execute hook invocations by outcome",
		}, []string{"node", "outcome"}),
		executeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "anacostia",
			Name:      "node_execute_duration_ms",
			Help:      "Node Execute hook duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node"}),
		gateEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anacostia",
			Name:      "gate_evaluations_total",
			Help:      "Count of signal gate evaluations by result",
		}, []string{"node", "result"}),
		barrierPhase: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "anacostia",
			Name:      "barrier_phase_duration_ms",
			Help:      "Duration of each barrier rendezvous phase in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node", "phase"}),
	}
}

// NoopMetrics returns a Metrics that records nothing, used when telemetry
// isn't enabled.
func NoopMetrics() *Metrics {
	return &Metrics{enabled: false}
}

func (m *Metrics) RecordExecution(nodeName, outcome string) {
	if m == nil || !m.enabled {
		return
	}
	m.nodeExecutions.WithLabelValues(nodeName, outcome).Inc()
}

func (m *Metrics) RecordExecuteDuration(nodeName string, d time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.executeDuration.WithLabelValues(nodeName).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) RecordGateEvaluation(nodeName string, passed bool) {
	if m == nil || !m.enabled {
		return
	}
	result := "false"
	if passed {
		result = "true"
	}
	m.gateEvaluations.WithLabelValues(nodeName, result).Inc()
}

func (m *Metrics) RecordBarrierPhase(nodeName, phase string, d time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.barrierPhase.WithLabelValues(nodeName, phase).Observe(float64(d.Milliseconds()))
}
