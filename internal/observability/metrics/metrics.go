package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LeadMetrics exposes counters/histograms for the lead pipeline.
type LeadMetrics struct {
	receivedTotal      *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	forwardDuration    *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		receivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Subsystem: "leads",
			Name:      "received_total",
			Help:      "Inbound lead submissions by entry point and terminal outcome",
		}, []string{"entrypoint", "outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Subsystem: "leads",
			Name:      "validation_failures_total",
			Help:      "Leads rejected by schema validation, by first violated field",
		}, []string{"field"}),
		forwardDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadrelay",
			Subsystem: "leads",
			Name:      "forward_duration_seconds",
			Help:      "Latency of the CRM forward call",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 4, 8},
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.receivedTotal, m.validationFailures, m.forwardDuration)
	return m
}

func (m *LeadMetrics) ObserveReceived(entrypoint, outcome string) {
	if m == nil {
		return
	}
	m.receivedTotal.WithLabelValues(entrypoint, outcome).Inc()
}

func (m *LeadMetrics) ObserveValidationFailure(field string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(field).Inc()
}

func (m *LeadMetrics) ObserveForward(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.forwardDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
