// Package metrics exposes Prometheus collectors for the request pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	intents          *prometheus.CounterVec
	routingErrors    *prometheus.CounterVec
	gateOutcomes     *prometheus.CounterVec
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	pending          prometheus.Gauge
	rateLimited      prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		intents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalegate_intents_total",
				Help: "Classified utterances by intent and classifier source",
			},
			[]string{"intent", "source"},
		),
		routingErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalegate_routing_errors_total",
				Help: "Requests refused before reaching the gate",
			},
			[]string{"kind"},
		),
		gateOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalegate_gate_outcomes_total",
				Help: "Confirmation gate decisions and transitions",
			},
			[]string{"outcome"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalegate_dispatch_total",
				Help: "Backend tool calls by tool and status",
			},
			[]string{"tool", "status"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scalegate_dispatch_duration_seconds",
				Help:    "Backend tool call duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"tool"},
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scalegate_pending_confirmations",
			Help: "Confirmations currently awaiting a reply",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scalegate_rate_limited_total",
			Help: "Inbound messages refused by the rate limiter",
		}),
	}
	m.registry.MustRegister(
		m.intents,
		m.routingErrors,
		m.gateOutcomes,
		m.dispatches,
		m.dispatchDuration,
		m.pending,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// IntentClassified counts one classified utterance.
func (m *Metrics) IntentClassified(tag, source string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(tag, source).Inc()
}

// RoutingError counts one refused request. kind is a short error class
// such as "no_handler" or "missing_parameter".
func (m *Metrics) RoutingError(kind string) {
	if m == nil {
		return
	}
	m.routingErrors.WithLabelValues(kind).Inc()
}

// GateOutcome counts one gate decision or transition.
func (m *Metrics) GateOutcome(outcome string) {
	if m == nil {
		return
	}
	m.gateOutcomes.WithLabelValues(outcome).Inc()
}

// Dispatch records one backend call.
func (m *Metrics) Dispatch(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(tool, status).Inc()
	m.dispatchDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// SetPending sets the pending confirmation gauge.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// RateLimited counts one refused inbound message.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
