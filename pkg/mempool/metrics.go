package mempool

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	partitionChain = "chain"
	partitionMpn   = "mpn"

	reasonIncluded    = "included"
	reasonExpired     = "expired"
	reasonInvalidated = "invalidated"
	reasonReplaced    = "replaced"
)

type poolMetrics struct {
	admitted *prometheus.CounterVec
	rejected *prometheus.CounterVec
	removed  *prometheus.CounterVec
	pending  *prometheus.GaugeVec
}

var (
	metricsOnce sync.Once
	registry    *poolMetrics
)

func defaultMetrics() *poolMetrics {
	metricsOnce.Do(func() {
		registry = &poolMetrics{
			admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chaind",
				Subsystem: "mempool",
				Name:      "admitted_total",
				Help:      "Transactions admitted to the mempool by partition and origin.",
			}, []string{"partition", "origin"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chaind",
				Subsystem: "mempool",
				Name:      "rejected_total",
				Help:      "Submissions rejected by partition and reason.",
			}, []string{"partition", "reason"}),
			removed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chaind",
				Subsystem: "mempool",
				Name:      "removed_total",
				Help:      "Entries leaving the mempool by partition and terminal reason.",
			}, []string{"partition", "reason"}),
			pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "chaind",
				Subsystem: "mempool",
				Name:      "pending",
				Help:      "Entries currently pending by partition.",
			}, []string{"partition"}),
		}
		prometheus.MustRegister(
			registry.admitted,
			registry.rejected,
			registry.removed,
			registry.pending,
		)
	})
	return registry
}

func rejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNonceAlreadyUsed):
		return "nonce_used"
	case errors.Is(err, ErrDuplicatePending):
		return "duplicate"
	case errors.Is(err, ErrAdmissionThrottled):
		return "throttled"
	case errors.Is(err, ErrWrongPartition):
		return "partition"
	case errors.Is(err, ErrInvalidTx):
		return "invalid"
	default:
		return "error"
	}
}
