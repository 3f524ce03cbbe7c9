package oracle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records block-header lookups. A nil *Metrics records nothing.
type Metrics struct {
	lookups *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics creates the lookup collectors and registers them with reg when
// reg is not nil. Create one Metrics per registry and share it between
// oracles.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stampdag",
			Subsystem: "oracle",
			Name:      "lookups_total",
			Help:      "Block header lookups by chain and outcome.",
		}, []string{"chain", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stampdag",
			Subsystem: "oracle",
			Name:      "lookup_duration_seconds",
			Help:      "Block header lookup latency, cache hits excluded.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups, m.latency)
	}
	return m
}

func (m *Metrics) observe(chain, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(chain, outcome).Inc()
	if outcome != outcomeCached {
		m.latency.WithLabelValues(chain).Observe(took.Seconds())
	}
}
