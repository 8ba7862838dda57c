package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	QuotesTotal      *prometheus.CounterVec
	QuoteDuration    *prometheus.HistogramVec
	RatesReturned    *prometheus.HistogramVec
	CredentialChecks *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QuotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machool_quotes_total",
				Help: "Total number of rate quotes by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		QuoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "machool_quote_duration_seconds",
				Help:    "Rate quote duration in seconds by provider",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		RatesReturned: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "machool_rates_returned",
				Help:    "Number of rates returned per quote by provider",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
			},
			[]string{"provider"},
		),
		CredentialChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "machool_credential_checks_total",
				Help: "Total credential validations by result",
			},
			[]string{"result"},
		),
	}
}

// RecordQuote records one quote.
func (m *Metrics) RecordQuote(provider, outcome string, rates int, duration float64) {
	m.QuotesTotal.WithLabelValues(provider, outcome).Inc()
	m.QuoteDuration.WithLabelValues(provider).Observe(duration)
	m.RatesReturned.WithLabelValues(provider).Observe(float64(rates))
}

// RecordCredentialCheck records a credential validation result.
func (m *Metrics) RecordCredentialCheck(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.CredentialChecks.WithLabelValues(result).Inc()
}
