package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// lotengine_exit_decisions_total counts evaluation cycles by mode and reason.
	exitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotengine_exit_decisions_total",
			Help: "Exit evaluation cycles by accounting mode and decided reason.",
		},
		[]string{"mode", "reason"},
	)

	sellOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotengine_sell_orders_total",
			Help: "Sell orders emitted by reason.",
		},
		[]string{"reason"},
	)

	rejectedOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotengine_sell_orders_rejected_total",
			Help: "Sell orders dropped before submission (min_notional|zero_qty).",
		},
		[]string{"cause"},
	)

	// lotengine_discrepancies_total counts ledger/lot mismatches by kind (oversell|unknown_lot|lot_overflow).
	discrepancies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotengine_discrepancies_total",
			Help: "Ledger discrepancies found during lot reconstruction.",
		},
		[]string{"kind"},
	)

	lockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lotengine_lock_wait_seconds",
			Help:    "Time spent waiting for the per-symbol evaluation lock.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	lockTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lotengine_lock_timeouts_total",
			Help: "Evaluations skipped because the symbol lock could not be acquired in time.",
		},
	)

	cycleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotengine_cycle_errors_total",
			Help: "Evaluation cycles that failed closed, by stage.",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(exitDecisions, sellOrders, rejectedOrders, discrepancies)
	prometheus.MustRegister(lockWait, lockTimeouts, cycleErrors)
}

func IncExitDecision(mode, reason string) { exitDecisions.WithLabelValues(mode, reason).Inc() }

func AddSellOrders(reason string, n int) {
	if n <= 0 {
		return
	}
	sellOrders.WithLabelValues(reason).Add(float64(n))
}

func AddRejectedOrders(cause string, n int) {
	if n <= 0 {
		return
	}
	rejectedOrders.WithLabelValues(cause).Add(float64(n))
}

func IncDiscrepancy(kind string)      { discrepancies.WithLabelValues(kind).Inc() }
func ObserveLockWait(d time.Duration) { lockWait.Observe(d.Seconds()) }
func IncLockTimeout()                 { lockTimeouts.Inc() }
func IncCycleError(stage string)      { cycleErrors.WithLabelValues(stage).Inc() }
