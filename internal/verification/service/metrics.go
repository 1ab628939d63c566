package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AttemptsRecorded *prometheus.CounterVec
	BeginRejected    *prometheus.CounterVec
	Bans             *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	Abandoned        prometheus.Counter
	CASConflicts     prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		AttemptsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_verification_attempts_total",
			Help: "Recorded verification attempts by result",
		}, []string{"result"}),
		BeginRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_verification_begin_rejected_total",
			Help: "Attempts refused before reaching the provider, by error code",
		}, []string{"code"}),
		Bans: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_verification_bans_total",
			Help: "Ban transitions by kind",
		}, []string{"kind"}),
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "faceguard_verification_submissions_total",
			Help: "Registration submissions by outcome",
		}, []string{"outcome"}),
		Abandoned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "faceguard_verification_abandoned_total",
			Help: "In-flight attempts resolved as abandoned",
		}),
		CASConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "faceguard_verification_cas_conflicts_total",
			Help: "Status compare-and-set conflicts that were retried",
		}),
	}
}

func (m *Metrics) IncAttempt(result string) {
	if m == nil {
		return
	}
	m.AttemptsRecorded.WithLabelValues(result).Inc()
}

func (m *Metrics) IncBeginRejected(code string) {
	if m == nil {
		return
	}
	m.BeginRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) IncBan(kind string) {
	if m == nil {
		return
	}
	m.Bans.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncAbandoned() {
	if m == nil {
		return
	}
	m.Abandoned.Inc()
}

func (m *Metrics) IncCASConflict() {
	if m == nil {
		return
	}
	m.CASConflicts.Inc()
}
