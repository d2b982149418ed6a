package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersSubmittedTotal tracks order submissions by side and result.
	OrdersSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btcupdown_gateway_orders_submitted_total",
			Help: "Total number of orders submitted to the exchange",
		},
		[]string{"side", "result"},
	)

	// OrderSubmitDuration tracks exchange order submission latency.
	OrderSubmitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "btcupdown_gateway_order_submit_duration_seconds",
		Help:    "Duration of a single order submission request",
		Buckets: prometheus.DefBuckets,
	})

	// CancelsTotal tracks cancel and cancel-all calls by result.
	CancelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btcupdown_gateway_cancels_total",
			Help: "Total number of cancel / cancel-all requests by result",
		},
		[]string{"op", "result"},
	)

	// BalanceFloorBlocksTotal tracks submissions rejected by the pre-submit
	// balance floor check.
	BalanceFloorBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcupdown_gateway_balance_floor_blocks_total",
		Help: "Total number of order submissions blocked by the balance floor check",
	})

	// CollateralBalanceUSDC tracks the last sampled collateral balance.
	CollateralBalanceUSDC = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "btcupdown_gateway_collateral_balance_usdc",
		Help: "Last sampled collateral balance in USDC",
	})

	// RequestErrorsByType tracks exchange request failures by classification.
	RequestErrorsByType = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btcupdown_gateway_request_errors_total",
			Help: "Total gateway request errors classified by type",
		},
		[]string{"error_type"},
	)
)
