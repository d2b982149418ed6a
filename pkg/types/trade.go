package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade represents a single fill observed via position sampling (the
// engine does not maintain an authoritative fill stream; see spec.md Sec
// 3's Position definition).
type Trade struct {
	Token     Token
	Side      Side
	Price     decimal.Decimal
	Size      decimal.Decimal
	Timestamp time.Time
}

// ExecutionResult summarizes one arbitrage executor trade attempt.
type ExecutionResult struct {
	OpportunityID  string
	MarketID       string
	ExecutedAt     time.Time
	UpTrade        *Trade
	DownTrade      *Trade
	RealizedProfit decimal.Decimal
	Success        bool
	Retryable      bool
	Error          error
}
