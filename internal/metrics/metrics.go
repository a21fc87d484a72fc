// Package metrics exposes Prometheus counters and gauges for the
// exchange simulator, served over /metrics for external scraping.
//
// Grounded on chidi150c-coinbase/metrics.go's package-level var block +
// init()-registration shape and main.go's promhttp.Handler() wiring —
// the only repo in the pack that instruments a trading system with
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TradesTotal counts matched trades by symbol and taker source.
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_trades_total",
			Help: "Matched trades by symbol and taker source.",
		},
		[]string{"symbol", "source"},
	)

	// OrdersRoutedTotal counts strategy orders routed into the matching
	// engine by symbol and source.
	OrdersRoutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_orders_routed_total",
			Help: "Strategy orders routed through the matching engine.",
		},
		[]string{"symbol", "source"},
	)

	// TradingHaltsTotal counts circuit breaker halts by symbol.
	TradingHaltsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_trading_halts_total",
			Help: "Circuit breaker halts triggered.",
		},
		[]string{"symbol"},
	)

	// ReseedsTotal counts synthetic depth reseeds by symbol.
	ReseedsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_reseeds_total",
			Help: "Synthetic order book depth reseeds.",
		},
		[]string{"symbol"},
	)

	// SpreadBps reports the most recent bid/ask spread in basis points of
	// mid, per symbol.
	SpreadBps = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "exchange_spread_bps",
			Help: "Most recent bid/ask spread in basis points of mid price.",
		},
		[]string{"symbol"},
	)

	// TopOfBookDepth reports top-of-book quantity per symbol and side.
	TopOfBookDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "exchange_top_of_book_depth",
			Help: "Top-of-book resting quantity.",
		},
		[]string{"symbol", "side"},
	)

	// SchedulerTickDuration measures the wall time of one symbol's share
	// of a scheduler tick.
	SchedulerTickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exchange_scheduler_tick_duration_seconds",
			Help:    "Wall time of one scheduler tick for one symbol.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(TradesTotal, OrdersRoutedTotal, TradingHaltsTotal, ReseedsTotal)
	prometheus.MustRegister(SpreadBps, TopOfBookDepth, SchedulerTickDuration)
}
