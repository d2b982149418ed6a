// Package pricing is the pure Pricing Module: given current ask prices for
// a market's UP and DOWN tokens and the regime's target parameters, it
// proposes a bid pair that captures edge if both legs fill, or reports
// that there is no edge worth quoting. Nothing here performs I/O or
// touches mutable state; every call is a deterministic function of its
// inputs, which is what lets the state machine call it on every tick
// without synchronization.
package pricing

import (
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// midProxyFactor is the fixed 2% proxy for half-spread used to estimate a
// mid price from the ask alone (spec.md Sec 4.3: the engine never has a
// genuine mid since it only quotes the bid side).
var midProxyFactor = decimal.NewFromFloat(0.98)

// minPrice is the exchange's price floor; no bid is ever quoted below it.
var minPrice = decimal.NewFromFloat(0.01)

// safetyMargin bounds the numerical-safety check on the combined bid.
var safetyMargin = decimal.NewFromFloat(0.01)

// Reason classifies why a pricing evaluation yielded no quote. Consumers
// treat NoEdge and Skip identically at decision time (neither quotes) but
// log them differently (spec.md Sec 4.3).
type Reason string

const (
	ReasonNone   Reason = ""
	ReasonNoEdge Reason = "no_edge"
	ReasonSkip   Reason = "skip_volatility"
	ReasonUnsafe Reason = "unsafe_combined"
)

// Params holds the regime-dependent tunables that are the only inputs
// differing between LIVE and PREMARKET (spec.md Sec 4.3).
type Params struct {
	TargetCombined      decimal.Decimal
	MinEdge             decimal.Decimal
	VolatilityThreshold decimal.Decimal
}

// ParamsForRegime returns the LIVE or PREMARKET pricing parameters.
// volatilityThreshold is an engine-wide tunable (VOLATILITY_THRESHOLD),
// not regime-dependent, but is carried on Params so Evaluate needs a
// single argument beyond the two asks.
func ParamsForRegime(regime types.Regime, volatilityThreshold float64) Params {
	vt := decimal.NewFromFloat(volatilityThreshold)
	switch regime {
	case types.RegimeLive:
		return Params{
			TargetCombined:      decimal.NewFromFloat(0.97),
			MinEdge:             decimal.NewFromFloat(0.02),
			VolatilityThreshold: vt,
		}
	default: // PREMARKET
		return Params{
			TargetCombined:      decimal.NewFromFloat(0.98),
			MinEdge:             decimal.NewFromFloat(0.015),
			VolatilityThreshold: vt,
		}
	}
}

// Quote is a proposed bid pair. Valid is false when Evaluate found no
// edge, a volatility skip, or a numerically unsafe split; Reason then
// explains which.
type Quote struct {
	BidUp   decimal.Decimal
	BidDown decimal.Decimal
	Valid   bool
	Reason  Reason
}

// Evaluate is the Pricing Module's sole entry point: askUp and askDown are
// the current best-ask prices for the two tokens; params selects the
// regime's target_combined/min_edge and the volatility threshold.
func Evaluate(askUp, askDown decimal.Decimal, params Params) Quote {
	if askUp.GreaterThanOrEqual(params.VolatilityThreshold) || askDown.GreaterThanOrEqual(params.VolatilityThreshold) {
		return Quote{Reason: ReasonSkip}
	}

	midUp := askUp.Mul(midProxyFactor)
	midDown := askDown.Mul(midProxyFactor)
	combinedMid := midUp.Add(midDown)

	discountNeeded := combinedMid.Sub(params.TargetCombined)
	if discountNeeded.LessThan(params.MinEdge) {
		return Quote{Reason: ReasonNoEdge}
	}

	if combinedMid.IsZero() {
		return Quote{Reason: ReasonNoEdge}
	}

	weightUp := midUp.Div(combinedMid)
	weightDown := midDown.Div(combinedMid)

	bidUp := maxDecimal(minPrice, midUp.Sub(discountNeeded.Mul(weightUp)))
	bidDown := maxDecimal(minPrice, midDown.Sub(discountNeeded.Mul(weightDown)))

	if bidUp.Add(bidDown).GreaterThan(params.TargetCombined.Add(safetyMargin)) {
		return Quote{Reason: ReasonUnsafe}
	}

	return Quote{BidUp: bidUp, BidDown: bidDown, Valid: true}
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
