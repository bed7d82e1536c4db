package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger module.
type Metrics struct {
	TransfersCompleted  prometheus.Counter
	TransferFailures    prometheus.Counter
	AccountsProvisioned prometheus.Counter
	TransferDuration    prometheus.Histogram
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		TransfersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paychain_transfers_completed_total",
			Help: "Total number of completed transfers",
		}),
		TransferFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paychain_transfer_failures_total",
			Help: "Total number of transfers that failed at the store",
		}),
		AccountsProvisioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paychain_accounts_provisioned_total",
			Help: "Total number of placeholder accounts created for unknown recipients",
		}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "paychain_transfer_duration_seconds",
			Help:    "Duration of ledger transfer operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveTransfer records the duration of one transfer. Call with time.Now()
// taken at the start of the operation.
func (m *Metrics) ObserveTransfer(start time.Time) {
	m.TransferDuration.Observe(time.Since(start).Seconds())
}
