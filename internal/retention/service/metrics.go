package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Artifacts *prometheus.CounterVec
	Holds     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Artifacts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_retention_artifacts_total",
			Help: "Expired artifacts handled by the retention sweep, by class and outcome",
		}, []string{"class", "outcome"}),
		Holds: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_retention_legal_holds_total",
			Help: "Legal hold changes by action",
		}, []string{"action"}),
	}
}

func (m *Metrics) IncArtifact(class, outcome string) {
	if m == nil {
		return
	}
	m.Artifacts.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncHold(action string) {
	if m == nil {
		return
	}
	m.Holds.WithLabelValues(action).Inc()
}
