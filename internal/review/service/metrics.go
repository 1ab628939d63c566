package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Enqueued      prometheus.Counter
	Decisions     *prometheus.CounterVec
	Compensations prometheus.Counter
	Pending       prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Enqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "faceguard_review_enqueued_total",
			Help: "Submissions queued for human review",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_review_decisions_total",
			Help: "Reviewer decisions by verdict",
		}, []string{"decision"}),
		Compensations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "faceguard_review_compensations_total",
			Help: "Review claims reverted after the result could not be recorded",
		}),
		Pending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "faceguard_review_pending_listed",
			Help: "Pending entries returned by the last queue listing",
		}),
	}
}

func (m *Metrics) IncEnqueued() {
	if m == nil {
		return
	}
	m.Enqueued.Inc()
}

func (m *Metrics) IncDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncCompensation() {
	if m == nil {
		return
	}
	m.Compensations.Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}
