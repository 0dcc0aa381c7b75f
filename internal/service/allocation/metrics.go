package allocation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

type metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progresso",
			Subsystem: "allocation",
			Name:      "operations_total",
			Help:      "Count of allocation operations by outcome code",
		}, []string{"operation", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "progresso",
			Subsystem: "allocation",
			Name:      "operation_duration_seconds",
			Help:      "Latency of allocation operations including the transaction",
			Buckets:   durationBuckets,
		}, []string{"operation"}),
	}

	if err := prometheus.Register(m.operations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				m.operations = existing
			}
		}
	}
	if err := prometheus.Register(m.latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				m.latency = existing
			}
		}
	}
	return m
}

func (m *metrics) observe(operation, code string, elapsed time.Duration) {
	m.operations.WithLabelValues(operation, code).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}
