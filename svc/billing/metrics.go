package billing

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts billing activity. A nil *Metrics records nothing.
type Metrics struct {
	checkouts      *prometheus.CounterVec
	events         *prometheus.CounterVec
	effectFailures *prometheus.CounterVec
}

// NewMetrics registers the billing collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rankpay",
			Subsystem: "billing",
			Name:      "checkouts_total",
			Help:      "Checkout requests by transition case.",
		}, []string{"case"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rankpay",
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Processed webhook events by type and result.",
		}, []string{"type", "result"}),
		effectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rankpay",
			Subsystem: "billing",
			Name:      "effect_failures_total",
			Help:      "Failed side effects by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.checkouts, m.events, m.effectFailures)
	return m
}

func (m *Metrics) checkout(c Case) {
	if m != nil {
		m.checkouts.WithLabelValues(c.String()).Inc()
	}
}

func (m *Metrics) event(t EventType, result string) {
	if m != nil {
		m.events.WithLabelValues(string(t), result).Inc()
	}
}

func (m *Metrics) effectFailed(k EffectKind) {
	if m != nil {
		m.effectFailures.WithLabelValues(string(k)).Inc()
	}
}
