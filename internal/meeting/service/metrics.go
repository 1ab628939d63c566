package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Checks        *prometheus.CounterVec
	CheckDuration prometheus.Histogram
	Dispatches    *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_meeting_checks_total",
			Help: "Meeting check-ins by result and denial reason",
		}, []string{"result", "reason"}),
		CheckDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "faceguard_meeting_check_duration_seconds",
			Help:    "Wall time of meeting check-ins up to the verdict",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}),
		Dispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_meeting_decision_dispatches_total",
			Help: "Denial decision deliveries by outcome",
		}, []string{"outcome"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_meeting_embedding_cache_total",
			Help: "Reference embedding cache lookups by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveCheck(result, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(result, reason).Inc()
	m.CheckDuration.Observe(d.Seconds())
}

func (m *Metrics) IncDispatch(outcome string) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncCache(outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}
