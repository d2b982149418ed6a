package arbexecutor

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds every tunable the arbitrage executor needs.
type Config struct {
	MinEdge           decimal.Decimal // opportunity threshold: ask_up+ask_down must be below 1-MinEdge
	MaxShares         decimal.Decimal // cap on the opportunity's sizing check
	MinSharesPerOrder decimal.Decimal // fixed size of each crossing order
	CrossingPrice     decimal.Decimal // limit price used to cross the book ("market buy")
	ReversalPrice     decimal.Decimal // limit price used to unwind a position to zero
	ExpiryCutoff      time.Duration   // markets within this of expiry are not scanned

	ScanInterval          time.Duration
	ReversalMaxAttempts   int
	ReversalRetryInterval time.Duration
}

// DefaultConfig returns the spec-literal tunables.
func DefaultConfig() Config {
	return Config{
		MinEdge:           decimal.NewFromFloat(0.005),
		MaxShares:         decimal.NewFromInt(100),
		MinSharesPerOrder: decimal.NewFromInt(5),
		CrossingPrice:     decimal.NewFromFloat(0.99),
		ReversalPrice:     decimal.NewFromFloat(0.01),
		ExpiryCutoff:      60 * time.Second,

		ScanInterval:          100 * time.Millisecond,
		ReversalMaxAttempts:   3,
		ReversalRetryInterval: 2 * time.Second,
	}
}
