package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal counts every tick() invocation across all markets.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_statemachine_ticks_total",
		Help: "Total number of per-market state machine ticks executed",
	})

	// TransitionsTotal counts status transitions, labeled by from/to state.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_statemachine_transitions_total",
		Help: "Total number of per-market state transitions",
	}, []string{"from", "to"})

	// QuotesPlacedTotal counts successful quote-pair placements.
	QuotesPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_statemachine_quotes_placed_total",
		Help: "Total number of UP/DOWN quote pairs placed",
	})

	// RecoveriesTotal counts one-sided fill recoveries, labeled by outcome.
	RecoveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_statemachine_recoveries_total",
		Help: "Total number of one-sided fill recoveries, by outcome",
	}, []string{"outcome"})

	// RealizedPnLUSDC tracks the running realized P&L across all markets.
	RealizedPnLUSDC = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_statemachine_realized_pnl_usdc_total",
		Help: "Cumulative realized P&L in USDC across completed markets",
	})

	// CutLossLossUSDC tracks the estimated loss booked by cut-loss unwinds.
	CutLossLossUSDC = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_statemachine_cutloss_usdc_total",
		Help: "Cumulative estimated loss in USDC from cut-loss unwinds",
	})
)
