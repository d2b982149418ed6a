package statemachine

import (
	"context"
	"time"

	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type side string

const (
	sideUp   side = "up"
	sideDown side = "down"
)

// unwindLossThreshold is the would_pay ceiling below which the engine
// accepts an aggressive complete rather than waiting for improvement
// (spec.md Sec 4.5: "accept up to 2% unwind loss").
var unwindLossThreshold = decimal.NewFromFloat(1.02)

// aggressiveCrossOffset is added to the missing leg's ask so the
// aggressive BUY crosses the book instead of resting (spec.md Sec 4.5
// step 1: "aggressive BUY ... at a + 0.01").
var aggressiveCrossOffset = decimal.NewFromFloat(0.01)

// cutLossOffset is subtracted from the filled leg's best bid so the
// unwind SELL crosses the book (spec.md Sec 4.5 "Cut-loss").
var cutLossOffset = decimal.NewFromFloat(0.01)

// cutLossPriceFloor is the exchange's minimum price.
var cutLossPriceFloor = decimal.NewFromFloat(0.01)

// estimatedCutLossRate is the flat loss-per-share estimate recorded when a
// cut-loss sell fills (spec.md Sec 4.5 "Cut-loss": "estimated loss ≈
// filled × 0.03").
var estimatedCutLossRate = decimal.NewFromFloat(0.03)

// recoverOneSided runs the one-sided fill recovery protocol (spec.md Sec
// 4.5): exactly one leg of a quote pair filled. It tries, in order, to
// complete the position cheaply (aggressive-complete), then waits for a
// price improvement on the unfilled leg if the current ask would lock in
// too much loss, then cuts the loss by selling the filled leg back. Every
// branch ends in HOLDING, IDLE (superseded by I2, see below) or BLOCKED.
func (m *Machine) recoverOneSided(ctx context.Context, e *registry.Entry, filled side, filledShares decimal.Decimal) {
	st := e.State

	filledToken, missingToken := st.UpToken, st.DownToken
	filledPrice := st.LastUpBid
	if filled == sideDown {
		filledToken, missingToken = st.DownToken, st.UpToken
		filledPrice = st.LastDownBid
	}

	// Critical bounded-size rule (spec.md Sec 4.5): cap the aggressive
	// complete at SharesPerOrder even if the sampled fill is larger (a
	// duplicate-order bug); any excess is left for cut-loss.
	completeShares := filledShares
	if completeShares.GreaterThan(m.cfg.SharesPerOrder) {
		completeShares = m.cfg.SharesPerOrder
	}

	m.logger.Warn("one-sided-fill-detected",
		zap.String("market-id", e.Market.ID), zap.String("filled-side", string(filled)),
		zap.Int64("shares", filledShares.IntPart()))

	_ = m.gw.CancelAll(ctx)
	m.transition(e, types.StatusAggressiveComplete)

	if m.recoverAtBestPrice(ctx, e, missingToken, filledPrice, completeShares) {
		RecoveriesTotal.WithLabelValues("completed").Inc()
		st.EnteredHoldingAt = time.Now()
		m.transition(e, types.StatusHolding)
		return
	}

	if m.cutLoss(ctx, filledToken, filledShares) {
		// I2 forbids re-entry once any position existed this cycle, even
		// though the spec's cut-loss step nominally returns to IDLE: once
		// the market is clean, holding it open for requoting violates
		// "never re-enter a market that has had exposure", so it still
		// goes HOLDING, recorded here as a resolved-flat terminal state.
		RecoveriesTotal.WithLabelValues("cut_loss").Inc()
		st.EnteredHoldingAt = time.Now()
		m.transition(e, types.StatusHolding)
		return
	}

	m.logger.Error("recovery-exhausted-manual-intervention-required",
		zap.String("market-id", e.Market.ID), zap.String("stuck-token", string(filledToken)))
	RecoveriesTotal.WithLabelValues("blocked").Inc()
	m.transition(e, types.StatusBlocked)
}

// recoverAtBestPrice implements spec.md Sec 4.5 steps 1-2: if the current
// would_pay (filledPrice + missing-leg ask) is within the accepted unwind
// loss, buy aggressively right away; otherwise wait up to
// PriceImprovementTimeout for the ask to fall far enough, re-checking the
// threshold on every poll (a poll that newly qualifies retries step 1 with
// the improved ask, per spec).
func (m *Machine) recoverAtBestPrice(ctx context.Context, e *registry.Entry, missingToken types.Token, filledPrice, shares decimal.Decimal) bool {
	deadline := time.Now().Add(m.cfg.PriceImprovementTimeout)
	first := true
	for first || time.Now().Before(deadline) {
		first = false

		ask, ok := m.book.BestAsk(missingToken)
		if ok {
			wouldPay := filledPrice.Add(ask.Price)
			if wouldPay.LessThanOrEqual(unwindLossThreshold) {
				if m.tryAggressiveComplete(ctx, missingToken, ask.Price, shares) {
					return true
				}
				// Aggressive buy placed but didn't fill within
				// AggressiveWaitTimeout: cancel and fall through to the
				// next price-improvement poll (spec.md Sec 4.5 step 3).
				_ = m.gw.CancelAll(ctx)
			}
		}
		if !time.Now().Before(deadline) {
			return false
		}
		m.sleep(m.cfg.PriceImprovementPoll)
	}
	return false
}

// tryAggressiveComplete places one aggressive BUY at ask+offset and polls
// position until it fills or AggressiveWaitTimeout elapses (spec.md Sec
// 4.5 step "Aggressive complete", "Poll positions every 1s for up to 30s").
func (m *Machine) tryAggressiveComplete(ctx context.Context, missingToken types.Token, askPrice, shares decimal.Decimal) bool {
	price := askPrice.Add(aggressiveCrossOffset)
	if _, err := m.gw.PlaceLimitBuy(ctx, missingToken, price, shares); err != nil {
		return false
	}

	deadline := time.Now().Add(m.cfg.AggressiveWaitTimeout)
	for {
		pos, err := m.gw.Position(ctx, missingToken)
		if err == nil && decimal.NewFromInt(pos.Shares).GreaterThanOrEqual(shares) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		m.sleep(m.cfg.AggressivePollInterval)
	}
}

// cutLoss sells the filled leg back at max(0.01, best_bid - 0.01), retrying
// up to CutLossMaxAttempts times (spec.md Sec 4.5 "Cut-loss").
func (m *Machine) cutLoss(ctx context.Context, filledToken types.Token, shares decimal.Decimal) bool {
	pos, err := m.gw.Position(ctx, filledToken)
	remaining := decimal.NewFromInt(shares.IntPart())
	if err == nil {
		remaining = decimal.NewFromInt(pos.Shares)
	}
	if remaining.IsZero() {
		// Exchange-side liquidation already closed the position.
		return true
	}

	for attempt := 0; attempt < m.cfg.CutLossMaxAttempts; attempt++ {
		if bid, ok := m.book.BestBid(filledToken); ok {
			sellPrice := maxDecimal(cutLossPriceFloor, bid.Price.Sub(cutLossOffset))
			_, err := m.gw.PlaceMarketSell(ctx, filledToken, sellPrice, remaining)
			if err == nil {
				pos, perr := m.gw.Position(ctx, filledToken)
				if perr == nil && pos.Shares == 0 {
					CutLossLossUSDC.Add(remaining.Mul(estimatedCutLossRate).InexactFloat64())
					return true
				}
				if perr == nil {
					remaining = decimal.NewFromInt(pos.Shares)
				}
			}
		}
		m.sleep(m.cfg.CutLossRetryInterval)
	}
	return false
}
