package types

import (
	"errors"
	"fmt"
)

// Sentinel error categories for the Gateway's typed-failure boundary
// (spec.md Sec 7 "Propagation policy"). The state machine branches on these
// via errors.Is rather than inspecting exchange-specific error strings.
var (
	// ErrTransient covers request timeouts, rate limits and 5xx responses.
	// Callers should skip this tick and retry next.
	ErrTransient = errors.New("transient exchange error")

	// ErrInsufficientBalance is returned when a SELL fails because the
	// position was already closed exchange-side; the state machine treats
	// this as success (position reconciled), not a failure.
	ErrInsufficientBalance = errors.New("insufficient balance: position already closed")

	// ErrNoData indicates a Book Cache miss or stale entry; quoting is
	// suspended for the affected market this tick.
	ErrNoData = errors.New("no data: book cache miss or stale")

	// ErrBalanceFloor is returned by the Gateway's pre-submit balance check
	// when collateral_balance() is below the configured floor.
	ErrBalanceFloor = errors.New("collateral balance below configured floor")
)

// OrderError represents an error that occurred during order placement or
// execution.
type OrderError struct {
	Code    string // exchange or internal error code
	Message string // human-readable error message
	OrderID string // order ID if available
	Token   Token  // which leg failed
}

func (e *OrderError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("order failed for %s (ID: %s): %s (%s)", e.Token, e.OrderID, e.Message, e.Code)
	}
	return fmt.Sprintf("order failed for %s: %s (%s)", e.Token, e.Message, e.Code)
}

// Known CLOB API error codes (carried from the exchange's own taxonomy).
const (
	ErrCodeInvalidMinTickSize = "INVALID_ORDER_MIN_TICK_SIZE"
	ErrCodeNotEnoughBalance   = "INVALID_ORDER_NOT_ENOUGH_BALANCE"
	ErrCodeFOKNotFilled       = "FOK_ORDER_NOT_FILLED_ERROR"
	ErrCodeMarketNotReady     = "MARKET_NOT_READY"
	ErrCodeUnmatched          = "UNMATCHED"
	ErrCodeUnknownStatus      = "UNKNOWN_STATUS"
)
