package types

import "github.com/shopspring/decimal"

// Side is an order side.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Quote is a single resting limit order the engine placed, identified
// uniquely by the order_id the Gateway returned.
type Quote struct {
	Token   Token
	OrderID string
	Price   decimal.Decimal
	Size    decimal.Decimal
	Side    Side
}

// OpenOrder mirrors a resting order as reported by
// Gateway.ListOpenOrders().
type OpenOrder struct {
	OrderID      string
	Token        Token
	Price        decimal.Decimal
	OriginalSize decimal.Decimal
	SizeFilled   decimal.Decimal
	Side         Side
}

// Position is the integer share count of a token held at the Gateway for
// this account. The engine does not maintain an authoritative mirror; the
// Gateway is the source of truth and Position is always a point-in-time
// sample.
type Position struct {
	Token Token
	Shares int64
}

// Balances is the wallet/collateral snapshot used by the Gateway's
// pre-submit balance-floor check.
type Balances struct {
	CollateralBalance decimal.Decimal
}
