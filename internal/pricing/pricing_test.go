package pricing

import (
	"testing"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestParamsForRegime(t *testing.T) {
	t.Parallel()

	live := ParamsForRegime(types.RegimeLive, 0.80)
	assert.True(t, live.TargetCombined.Equal(d("0.97")))
	assert.True(t, live.MinEdge.Equal(d("0.02")))

	pre := ParamsForRegime(types.RegimePremarket, 0.80)
	assert.True(t, pre.TargetCombined.Equal(d("0.98")))
	assert.True(t, pre.MinEdge.Equal(d("0.015")))
}

func TestEvaluate_HappyPath(t *testing.T) {
	t.Parallel()

	params := ParamsForRegime(types.RegimeLive, 0.80)
	// combined_mid well above target_combined + min_edge: room for a split.
	q := Evaluate(d("0.55"), d("0.50"), params)

	require.True(t, q.Valid)
	assert.Equal(t, ReasonNone, q.Reason)
	assert.True(t, q.BidUp.GreaterThanOrEqual(d("0.01")))
	assert.True(t, q.BidDown.GreaterThanOrEqual(d("0.01")))
	assert.True(t, q.BidUp.Add(q.BidDown).LessThanOrEqual(params.TargetCombined.Add(d("0.01"))))
}

func TestEvaluate_NoEdgeWhenCombinedAboveTarget(t *testing.T) {
	t.Parallel()

	params := ParamsForRegime(types.RegimeLive, 0.80)
	// ask_up + ask_down sum such that combined_mid is within min_edge of target.
	q := Evaluate(d("0.50"), d("0.49"), params)
	assert.False(t, q.Valid)
	assert.Equal(t, ReasonNoEdge, q.Reason)
}

func TestEvaluate_VolatilitySkip(t *testing.T) {
	t.Parallel()

	params := ParamsForRegime(types.RegimeLive, 0.80)
	q := Evaluate(d("0.81"), d("0.10"), params)
	assert.False(t, q.Valid)
	assert.Equal(t, ReasonSkip, q.Reason)

	q2 := Evaluate(d("0.10"), d("0.81"), params)
	assert.False(t, q2.Valid)
	assert.Equal(t, ReasonSkip, q2.Reason)
}

// Property-style sweep mirroring spec.md's quantified invariants: any
// return satisfies the floor and the combined-cost safety bound.
func TestEvaluate_Property_BoundsHold(t *testing.T) {
	t.Parallel()

	params := ParamsForRegime(types.RegimeLive, 0.80)
	for up := 1; up < 79; up++ {
		for down := 1; down < 79; down++ {
			askUp := decimal.NewFromInt(int64(up)).Div(decimal.NewFromInt(100))
			askDown := decimal.NewFromInt(int64(down)).Div(decimal.NewFromInt(100))
			q := Evaluate(askUp, askDown, params)
			if !q.Valid {
				continue
			}
			assert.Truef(t, q.BidUp.GreaterThanOrEqual(d("0.01")), "bid_up below floor for %s/%s", askUp, askDown)
			assert.Truef(t, q.BidDown.GreaterThanOrEqual(d("0.01")), "bid_down below floor for %s/%s", askUp, askDown)
			assert.Truef(t, q.BidUp.Add(q.BidDown).LessThanOrEqual(params.TargetCombined.Add(d("0.01"))),
				"combined bid exceeds safety bound for %s/%s", askUp, askDown)
		}
	}
}

func TestEvaluate_NoEdgeBoundary(t *testing.T) {
	t.Parallel()

	// combined_mid exactly at target_combined: discount_needed is zero,
	// always below min_edge, so this must always report no edge (spec.md
	// Sec 8 quantified invariant).
	params := ParamsForRegime(types.RegimeLive, 0.80)
	// mid_up + mid_down == target_combined, split evenly across both legs.
	askEach := params.TargetCombined.Div(decimal.NewFromInt(2)).Div(midProxyFactor)
	q := Evaluate(askEach, askEach, params)
	assert.False(t, q.Valid)
	assert.Equal(t, ReasonNoEdge, q.Reason)
}
