package arbexecutor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesFoundTotal counts crossing opportunities detected.
	OpportunitiesFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_arbexecutor_opportunities_found_total",
		Help: "Total crossing arbitrage opportunities detected",
	})

	// ExecutionsTotal counts completed execution attempts, by outcome.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_arbexecutor_executions_total",
		Help: "Total arbitrage execution attempts, labeled by outcome",
	}, []string{"outcome"})

	// ReversalsTotal counts reversal-to-zero attempts, by outcome.
	ReversalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_arbexecutor_reversals_total",
		Help: "Total reversal-to-zero attempts, labeled by outcome",
	}, []string{"outcome"})

	// RealizedProfitUSDC tracks cumulative realized arbitrage profit.
	RealizedProfitUSDC = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_arbexecutor_realized_profit_usdc_total",
		Help: "Cumulative realized profit in USDC from completed arbitrage trades",
	})
)
