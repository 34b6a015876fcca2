// Package monitoring exposes engine and HTTP metrics to Prometheus.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acl-rts-tracker/internal/domain"
)

const (
	defaultNamespace = "acl_rts"
	defaultSubsystem = "tracker"
)

// Manager holds the collectors. It satisfies service.MetricsRecorder.
type Manager struct {
	registry *prometheus.Registry

	// counters
	CounterAssessments      *prometheus.CounterVec
	CounterValidationErrors prometheus.Counter
	CounterRejectedFields   prometheus.Counter
	CounterClassifications  *prometheus.CounterVec
	CounterRequests         *prometheus.CounterVec
	CounterToolCalls        *prometheus.CounterVec

	// gauges
	GaugeRequests prometheus.Gauge
	GaugePhase    *prometheus.GaugeVec

	// histograms
	HistRequestDuration *prometheus.HistogramVec
}

// NewManager creates a manager on a fresh registry that also carries the Go and process collectors.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewManagerWithRegistry(defaultNamespace, defaultSubsystem, reg)
}

// NewTestManager creates a manager on an empty registry.
func NewTestManager() *Manager {
	return NewManagerWithRegistry(defaultNamespace, "test", prometheus.NewRegistry())
}

// NewManagerWithRegistry registers every collector on reg.
func NewManagerWithRegistry(namespace, subsystem string, reg *prometheus.Registry) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		registry: reg,
		CounterAssessments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "assessments_recorded_total",
			Help:      "The total number of stored assessment records",
		}, []string{"source"}),
		CounterValidationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "validation_failures_total",
			Help:      "The total number of rejected assessment submissions",
		}),
		CounterRejectedFields: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "validation_rejected_fields_total",
			Help:      "The total number of invalid fields across rejected submissions",
		}),
		CounterClassifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "phase_classifications_total",
			Help:      "The total number of phase classifications by resulting level",
		}, []string{"level", "severity"}),
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "The total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		CounterToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "mcp_tool_calls_total",
			Help:      "The total number of MCP tool invocations",
		}, []string{"tool", "outcome"}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Current number of requests being served",
		}),
		GaugePhase: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "classified_phase_level",
			Help:      "Phase level of the most recent classification per severity",
		}, []string{"severity"}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// AssessmentRecorded counts a stored record.
func (m *Manager) AssessmentRecorded(string) {
	m.CounterAssessments.WithLabelValues("engine").Inc()
}

// ValidationFailed counts a rejected submission and its invalid fields.
func (m *Manager) ValidationFailed(fields int) {
	m.CounterValidationErrors.Inc()
	if fields > 0 {
		m.CounterRejectedFields.Add(float64(fields))
	}
}

// PhaseClassified counts a classification outcome.
func (m *Manager) PhaseClassified(level domain.PhaseLevel, severity domain.Severity) {
	m.CounterClassifications.WithLabelValues(strconv.Itoa(int(level)), severity.String()).Inc()
	m.GaugePhase.WithLabelValues(severity.String()).Set(float64(level))
}

// ObserveRequest records one finished HTTP request.
func (m *Manager) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.CounterRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HistRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ToolCalled counts one MCP tool invocation.
func (m *Manager) ToolCalled(tool string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CounterToolCalls.WithLabelValues(tool, outcome).Inc()
}

// RegisterCacheStats exposes cache counters read on scrape.
func (m *Manager) RegisterCacheStats(hits, misses func() float64) {
	factory := promauto.With(m.registry)
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: defaultNamespace,
		Name:      "patient_cache_hits_total",
		Help:      "Patient lookups served from cache",
	}, hits)
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: defaultNamespace,
		Name:      "patient_cache_misses_total",
		Help:      "Patient lookups that went to the store",
	}, misses)
}
