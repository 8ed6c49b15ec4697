package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the booking service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	bookings    *prometheus.CounterVec
	settlements *prometheus.CounterVec
	gateway     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boat_booking",
			Name:      "bookings_total",
			Help:      "Booking attempts by result.",
		}, []string{"result"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boat_booking",
			Name:      "webhook_events_total",
			Help:      "Payment confirmation events by outcome.",
		}, []string{"outcome"}),
		gateway: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boat_booking",
			Name:      "gateway_session_errors_total",
			Help:      "Failed checkout session requests by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.bookings, m.settlements, m.gateway)
	}
	return m
}

func (m *Metrics) Booking(result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
}

func (m *Metrics) Webhook(outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GatewayError(reason string) {
	if m == nil {
		return
	}
	m.gateway.WithLabelValues(reason).Inc()
}
