// Package metrics holds the engine's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_cycles_total",
		Help: "Completed engine cycles.",
	})
	SkippedCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_skipped_cycles_total",
		Help: "Cycles skipped without trading, by reason.",
	}, []string{"reason"})
	Failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_failures_total",
		Help: "Per-instrument failures, by kind.",
	}, []string{"kind"})
	Orders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_orders_total",
		Help: "Orders submitted, by leg (entry/exit), side and result.",
	}, []string{"leg", "side", "result"})
	Trades = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_trades_total",
		Help: "Trades recorded, by status.",
	}, []string{"status"})
	Running = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_running",
		Help: "1 while the engine loop is running.",
	})
)

func init() {
	prometheus.MustRegister(Cycles, SkippedCycles, Failures, Orders, Trades, Running)
}
