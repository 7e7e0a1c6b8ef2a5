package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the response router.
type ConversationMetrics struct {
	routedTotal  *prometheus.CounterVec
	routeLatency *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		routedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "routed_total",
			Help:      "Total routed messages by source stage",
		}, []string{"stage"}),
		routeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "route_latency_seconds",
			Help:      "Latency of message routing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.routedTotal, m.routeLatency)
	return m
}

// ObserveRoute records one routed message. Safe on a nil receiver.
func (m *ConversationMetrics) ObserveRoute(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.routedTotal.WithLabelValues(stage).Inc()
	m.routeLatency.WithLabelValues(stage).Observe(seconds)
}

// AppointmentMetrics exposes counters for booking outcomes.
type AppointmentMetrics struct {
	outcomesTotal *prometheus.CounterVec
	emailFailures prometheus.Counter
}

func NewAppointmentMetrics(reg prometheus.Registerer) *AppointmentMetrics {
	m := &AppointmentMetrics{
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "appointments",
			Name:      "outcomes_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"outcome"}),
		emailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "appointments",
			Name:      "confirmation_email_failures_total",
			Help:      "Confirmation emails that failed to send",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomesTotal, m.emailFailures)
	return m
}

// ObserveOutcome records one booking attempt. Safe on a nil receiver.
func (m *AppointmentMetrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveEmailFailure records a failed confirmation email. Safe on a nil receiver.
func (m *AppointmentMetrics) ObserveEmailFailure() {
	if m == nil {
		return
	}
	m.emailFailures.Inc()
}
