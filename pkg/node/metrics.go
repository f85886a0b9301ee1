package node

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type nodeMetrics struct {
	height    prometheus.Gauge
	rollbacks prometheus.Counter
	gateWait  *prometheus.HistogramVec
	fetched   prometheus.Histogram
}

var (
	metricsOnce sync.Once
	registry    *nodeMetrics
)

func defaultMetrics() *nodeMetrics {
	metricsOnce.Do(func() {
		registry = &nodeMetrics{
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "chaind",
				Subsystem: "node",
				Name:      "height",
				Help:      "Height of the chain tip.",
			}),
			rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "chaind",
				Subsystem: "node",
				Name:      "rollbacks_total",
				Help:      "Blocks removed from the tip by rollback.",
			}),
			gateWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "chaind",
				Subsystem: "node",
				Name:      "gate_wait_seconds",
				Help:      "Time spent waiting for shared or exclusive access to node state.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			}, []string{"mode"}),
			fetched: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "chaind",
				Subsystem: "node",
				Name:      "explorer_blocks_returned",
				Help:      "Blocks returned per explorer page.",
				Buckets:   prometheus.LinearBuckets(0, 4, 9),
			}),
		}
		prometheus.MustRegister(
			registry.height,
			registry.rollbacks,
			registry.gateWait,
			registry.fetched,
		)
	})
	return registry
}
