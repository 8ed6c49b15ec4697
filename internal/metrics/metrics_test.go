package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Webhook("settled")
	m.Webhook("duplicate")
	m.Webhook("duplicate")
	m.Booking("created")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlements.WithLabelValues("settled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.settlements.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookings.WithLabelValues("created")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Booking("created")
		m.Webhook("settled")
		m.GatewayError("unavailable")
	})
}
