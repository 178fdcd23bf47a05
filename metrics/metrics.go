// Package metrics holds the Prometheus instruments shared by the registry,
// the ledger and the HTTP API. All methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry service.
type Metrics struct {
	// Registry calls by call kind and outcome
	CallOutcome *prometheus.CounterVec

	// Tokens minted since start
	TokensMinted prometheus.Counter

	// Ledger call groups by outcome
	GroupOutcome *prometheus.CounterVec

	// Time spent applying a call group
	GroupLatency prometheus.Histogram

	// HTTP requests by route pattern and status code
	HTTPRequests *prometheus.CounterVec
}

// New creates a Metrics instance registered with reg.
// A nil reg creates unregistered instruments.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CallOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mednft_registry_calls_total",
			Help: "Registry calls by call kind and outcome",
		}, []string{"kind", "outcome"}), // outcome: "ok" or an error kind

		TokensMinted: f.NewCounter(prometheus.CounterOpts{
			Name: "mednft_registry_tokens_minted_total",
			Help: "Tokens minted by the registry",
		}),

		GroupOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mednft_ledger_groups_total",
			Help: "Submitted call groups by outcome",
		}, []string{"outcome"}), // outcome: "committed", "rejected"

		GroupLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mednft_ledger_group_duration_seconds",
			Help:    "Duration of applying a call group",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mednft_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// IncrementCall records the outcome of one registry call.
func (m *Metrics) IncrementCall(kind, outcome string) {
	if m != nil {
		m.CallOutcome.WithLabelValues(kind, outcome).Inc()
	}
}

// IncrementMinted records one minted token.
func (m *Metrics) IncrementMinted() {
	if m != nil {
		m.TokensMinted.Inc()
	}
}

// IncrementGroup records a call group outcome.
func (m *Metrics) IncrementGroup(outcome string) {
	if m != nil {
		m.GroupOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveGroupLatency records how long a call group took to apply.
func (m *Metrics) ObserveGroupLatency(d time.Duration) {
	if m != nil {
		m.GroupLatency.Observe(d.Seconds())
	}
}

// IncrementHTTP records one served HTTP request.
func (m *Metrics) IncrementHTTP(route, code string) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(route, code).Inc()
	}
}
