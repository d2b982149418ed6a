package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is a per-market state machine state.
type Status string

const (
	StatusIdle               Status = "IDLE"
	StatusQuoting            Status = "QUOTING"
	StatusAggressiveComplete Status = "AGGRESSIVE_COMPLETE"
	StatusHolding            Status = "HOLDING"
	StatusBlocked            Status = "BLOCKED"
)

// MarketState is the per-market state owned by its state machine
// (internal/statemachine). It is never shared across markets.
type MarketState struct {
	MarketID  string
	Regime    Regime
	Expiry    time.Time
	UpToken   Token
	DownToken Token

	Status Status

	// LastUpBid/LastDownBid are the prices of the most recent live quote
	// pair; zero when not quoting.
	LastUpBid   decimal.Decimal
	LastDownBid decimal.Decimal

	// CurrentUpOrderID/CurrentDownOrderID are nullable: empty string means
	// no resting order on that leg.
	CurrentUpOrderID   string
	CurrentDownOrderID string

	// ObservedUpPosition/ObservedDownPosition are the last sampled share
	// counts from the Gateway.
	ObservedUpPosition   int64
	ObservedDownPosition int64

	EnteredHoldingAt time.Time

	RealizedPnL decimal.Decimal
}

// NewMarketState constructs the IDLE initial state for a freshly admitted
// market.
func NewMarketState(m *Market) *MarketState {
	return &MarketState{
		MarketID:  m.ID,
		Regime:    m.Regime,
		Expiry:    m.Expiry,
		UpToken:   m.UpToken,
		DownToken: m.DownToken,
		Status:    StatusIdle,
	}
}

// HasOpenBuy reports whether either leg currently has a resting order the
// engine placed (invariant I1/I5).
func (s *MarketState) HasOpenBuy() bool {
	return s.CurrentUpOrderID != "" || s.CurrentDownOrderID != ""
}

// ClearQuotes forgets the currently tracked resting orders and bid prices.
// Called after cancel_all has been verified empty.
func (s *MarketState) ClearQuotes() {
	s.CurrentUpOrderID = ""
	s.CurrentDownOrderID = ""
	s.LastUpBid = decimal.Zero
	s.LastDownBid = decimal.Zero
}
