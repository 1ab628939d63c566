package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for provider calls.
type Metrics struct {
	CallLatency  *prometheus.HistogramVec
	CallOutcome  *prometheus.CounterVec
	CircuitState *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		CallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "faceguard_provider_call_duration_seconds",
			Help:    "Duration of biometric provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 20},
		}, []string{"provider"}),
		CallOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_provider_calls_total",
			Help: "Biometric provider calls by outcome category",
		}, []string{"provider", "outcome"}),
		CircuitState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "faceguard_provider_circuit_open",
			Help: "1 while the provider circuit breaker is open",
		}, []string{"provider"}),
	}
}

func (m *Metrics) ObserveCall(providerID, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CallLatency.WithLabelValues(providerID).Observe(d.Seconds())
	m.CallOutcome.WithLabelValues(providerID, outcome).Inc()
}

func (m *Metrics) SetCircuitOpen(providerID string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitState.WithLabelValues(providerID).Set(v)
}
