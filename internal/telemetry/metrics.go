package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics は Store 操作ごとの件数と所要時間。
type StoreMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "todo",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Store operations by operation and result (ok, rejected, error).",
			},
			[]string{"operation", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "todo",
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Latency of store operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(m.operations, m.duration)
	return m
}

func (m *StoreMetrics) observe(op, result string, seconds float64) {
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(seconds)
}
