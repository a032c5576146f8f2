package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TransitionsApplied *prometheus.CounterVec
	TransitionsDenied  *prometheus.CounterVec
	WebhooksProcessed  *prometheus.CounterVec
	CardsIssued        prometheus.Counter
	RequestLatency     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransitionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carteirinha_transitions_applied_total",
			Help: "Total transitions applied, by transition name",
		}, []string{"transition"}),
		TransitionsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carteirinha_transitions_denied_total",
			Help: "Total transitions rejected before mutation, by error code",
		}, []string{"transition", "code"}),
		WebhooksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carteirinha_gateway_webhooks_total",
			Help: "Total gateway callbacks processed, by gateway and outcome",
		}, []string{"gateway", "outcome"}),
		CardsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carteirinha_cards_issued_total",
			Help: "Total student cards issued",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carteirinha_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// IncrementTransitionApplied records a successful transition.
func (m *Metrics) IncrementTransitionApplied(name string) {
	if m == nil {
		return
	}
	m.TransitionsApplied.WithLabelValues(name).Inc()
}

// IncrementTransitionDenied records a transition rejected before mutation.
func (m *Metrics) IncrementTransitionDenied(name, code string) {
	if m == nil {
		return
	}
	m.TransitionsDenied.WithLabelValues(name, code).Inc()
}

// IncrementWebhookProcessed records a gateway callback outcome.
func (m *Metrics) IncrementWebhookProcessed(gateway, outcome string) {
	if m == nil {
		return
	}
	m.WebhooksProcessed.WithLabelValues(gateway, outcome).Inc()
}

// IncrementCardsIssued records a card issuance.
func (m *Metrics) IncrementCardsIssued() {
	if m == nil {
		return
	}
	m.CardsIssued.Inc()
}
