package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records invocation counts and latencies.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the gateway collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pagegate",
				Subsystem: "gateway",
				Name:      "invocations_total",
				Help:      "Total capability invocations by outcome.",
			},
			[]string{"capability", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pagegate",
				Subsystem: "gateway",
				Name:      "invocation_duration_seconds",
				Help:      "Capability invocation duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"capability"},
		),
	}
	reg.MustRegister(m.invocations, m.duration)
	return m
}

func (m *Metrics) observe(capability, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(capability, outcome).Inc()
	m.duration.WithLabelValues(capability).Observe(d.Seconds())
}
