package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the due-cycle processor.
type Metrics struct {
	CyclesRun      prometheus.Counter
	RulesProcessed prometheus.Counter
	RulesSkipped   *prometheus.CounterVec
	RuleFailures   prometheus.Counter
	CycleDuration  prometheus.Histogram
}

// New creates a Metrics instance with all processor metrics registered.
func New() *Metrics {
	return &Metrics{
		CyclesRun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paychain_due_cycles_total",
			Help: "Total number of due cycles run",
		}),
		RulesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paychain_rules_processed_total",
			Help: "Total number of rule occurrences that produced a transfer",
		}),
		RulesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "paychain_rules_skipped_total",
			Help: "Total number of due rules skipped, by reason",
		}, []string{"reason"}),
		RuleFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paychain_rule_failures_total",
			Help: "Total number of rules whose transfer failed hard",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "paychain_due_cycle_duration_seconds",
			Help:    "Duration of due-cycle runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
	}
}

// ObserveCycle records the duration of one cycle. Call with time.Now() taken
// at the start.
func (m *Metrics) ObserveCycle(start time.Time) {
	m.CycleDuration.Observe(time.Since(start).Seconds())
}
