package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderBookLevel is a single resting price level: how much size is
// available at a given price.
type OrderBookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is the cached state of one token's book: asks stored ascending
// by price, bids stored descending, plus a monotonic LastUpdated timestamp.
// Invariant: BestAsk().Price > BestBid().Price whenever both exist.
type OrderBook struct {
	TokenID     Token
	Asks        []OrderBookLevel // ascending
	Bids        []OrderBookLevel // descending
	LastUpdated time.Time
}

// BestAsk returns the lowest ask level, or false if the book has no asks.
func (b *OrderBook) BestAsk() (OrderBookLevel, bool) {
	if len(b.Asks) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Asks[0], true
}

// BestBid returns the highest bid level, or false if the book has no bids.
func (b *OrderBook) BestBid() (OrderBookLevel, bool) {
	if len(b.Bids) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Bids[0], true
}

// IsFresh reports whether the book was updated within horizon of now.
func (b *OrderBook) IsFresh(now time.Time, horizon time.Duration) bool {
	if b.LastUpdated.IsZero() {
		return false
	}
	return now.Sub(b.LastUpdated) <= horizon
}

// WireLevel is a single price level as it appears on the wire: both price
// and size are decimal strings.
type WireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderbookMessage is a single event off the exchange WebSocket. Both "book"
// (full snapshot) and "price_change" (refresh-only) events decode into this
// shape; the cache dispatches on EventType.
type OrderbookMessage struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Market    string      `json:"market"`
	Price     string      `json:"price,omitempty"` // set on price_change
	Bids      []WireLevel `json:"bids,omitempty"`
	Asks      []WireLevel `json:"asks,omitempty"`
}

// ParseLevels converts wire price levels (decimal strings) into
// OrderBookLevel values, skipping any entry that fails to parse rather than
// failing the whole message (spec.md Sec 4.1: "Parse failures on a message
// are silently dropped").
func ParseLevels(raw []WireLevel) []OrderBookLevel {
	levels := make([]OrderBookLevel, 0, len(raw))
	for _, r := range raw {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(r.Size)
		if err != nil {
			continue
		}
		levels = append(levels, OrderBookLevel{Price: price, Size: size})
	}
	return levels
}
