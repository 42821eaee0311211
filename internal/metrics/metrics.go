// Package metrics holds the Prometheus collectors of the API process.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opsis"

// Metrics groups every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Connections       prometheus.Gauge
	Rooms             prometheus.Gauge
	PrunedConnections prometheus.Counter
	DroppedMessages   *prometheus.CounterVec

	AuditFallbacks   prometheus.Counter
	AuditQueued      prometheus.Counter
	AnalysisFailures prometheus.Counter
	SpeechFailures   *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Live realtime connections.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_rooms",
			Help:      "Exam rooms with at least one member.",
		}),
		PrunedConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_pruned_connections_total",
			Help:      "Connections removed after a failed send.",
		}),
		DroppedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_dropped_messages_total",
			Help:      "Inbound realtime messages dropped, by reason.",
		}, []string{"reason"}),
		AuditFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_insert_failures_total",
			Help:      "Audit entries whose synchronous insert failed.",
		}),
		AuditQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_queued_total",
			Help:      "Audit entries pushed to the retry queue.",
		}),
		AnalysisFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Text analyses that fell back to default results.",
		}),
		SpeechFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_failures_total",
			Help:      "Speech engine calls that failed, by operation.",
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Connections,
		m.Rooms,
		m.PrunedConnections,
		m.DroppedMessages,
		m.AuditFallbacks,
		m.AuditQueued,
		m.AnalysisFailures,
		m.SpeechFailures,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
