// Package storage persists a record of every completed trade the engine
// locks in, whether from market-making (both legs filled, held to
// settlement) or from the arbitrage executor's crossing fills.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Mode identifies which operating mode produced a Record.
type Mode string

const (
	ModeMarketMaker Mode = "market-maker"
	ModeArbitrage   Mode = "arbitrage-taker"
)

// Record is a single completed, locked-in position: the engine acquired
// equal UP/DOWN exposure and is holding to settlement (or, for arbitrage,
// already realized the profit on crossing fills).
type Record struct {
	ID          string
	MarketID    string
	Question    string
	Mode        Mode
	UpPrice     decimal.Decimal
	DownPrice   decimal.Decimal
	Shares      int64
	RealizedPnL decimal.Decimal
	DetectedAt  time.Time
}

// Storage is the interface for persisting completed trade records.
type Storage interface {
	StoreRecord(ctx context.Context, r *Record) error
	Close() error
}
