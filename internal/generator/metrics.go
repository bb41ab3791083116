package generator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts controller activity. A nil *Metrics records nothing.
type Metrics struct {
	attempts     *prometheus.CounterVec
	ruleFailures *prometheus.CounterVec
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewMetrics registers the controller collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clausegen",
			Name:      "attempts_total",
			Help:      "Generation attempts by section and result.",
		}, []string{"section", "result"}),
		ruleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clausegen",
			Name:      "rule_failures_total",
			Help:      "Validation rule failures by section and rule.",
		}, []string{"section", "rule"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clausegen",
			Name:      "requests_total",
			Help:      "Section requests by final state.",
		}, []string{"section", "state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clausegen",
			Name:      "attempt_duration_seconds",
			Help:      "Engine call duration per attempt.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"section"}),
	}
	reg.MustRegister(m.attempts, m.ruleFailures, m.requests, m.duration)
	return m
}

func (m *Metrics) observeAttempt(section string, a Attempt) {
	if m == nil {
		return
	}
	result := "accepted"
	switch {
	case a.EngineErr != nil:
		result = "engine_failed"
	case !a.Validation.Passed:
		result = "validation_failed"
	}
	m.attempts.WithLabelValues(section, result).Inc()
	for _, f := range a.Validation.Failures {
		m.ruleFailures.WithLabelValues(section, f.RuleID).Inc()
	}
	m.duration.WithLabelValues(section).Observe(a.Duration.Seconds())
}

func (m *Metrics) observeRequest(section string, state string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(section, state).Inc()
}
