// Package arbexecutor implements the Arbitrage Executor, the engine's
// alternative "arbitrage taker" operating mode (spec.md Sec 4.6): rather
// than resting passive quotes, it scans for a true crossing opportunity
// (ask_up + ask_down already below 1-min_edge) and aggressively acquires
// equal UP/DOWN exposure, unwinding immediately if a step leaves the two
// legs unequal.
package arbexecutor

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway is the subset of internal/gateway.Gateway the executor calls.
type Gateway interface {
	PlaceLimitBuy(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error)
	PlaceMarketSell(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error)
	Cancel(ctx context.Context, orderID string) error
	Position(ctx context.Context, token types.Token) (types.Position, error)
}

// BookCache is the subset of internal/bookcache.Cache the executor calls.
type BookCache interface {
	BestAsk(token types.Token) (types.OrderBookLevel, bool)
}

// Executor runs the arbitrage-taker scan-and-execute loop. A single
// Executor instance is shared engine-wide; its mutex is the "global
// mutual-exclusion lock" that serializes trade execution across every
// market it scans (spec.md Sec 4.6 step 1).
type Executor struct {
	gw     Gateway
	book   BookCache
	cfg    Config
	logger *zap.Logger

	mu    sync.Mutex
	sleep func(d time.Duration)

	// onSuccess, if set, fires after execute() locks in a successful
	// crossing trade — the hook internal/app wires to internal/storage.
	onSuccess func(e *registry.Entry, filledShares int64, upQuote, downQuote *types.Quote)
}

// New constructs an Executor.
func New(gw Gateway, book BookCache, cfg Config, logger *zap.Logger) *Executor {
	return &Executor{
		gw:     gw,
		book:   book,
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// SetOnSuccess registers a callback invoked after a successful crossing
// trade locks in equal UP/DOWN exposure.
func (x *Executor) SetOnSuccess(fn func(e *registry.Entry, filledShares int64, upQuote, downQuote *types.Quote)) {
	x.onSuccess = fn
}

// Run scans every active registry entry at ScanInterval cadence until ctx
// is cancelled.
func (x *Executor) Run(ctx context.Context, reg *registry.Registry) error {
	x.logger.Info("arbexecutor-starting", zap.Duration("scan-interval", x.cfg.ScanInterval))

	ticker := time.NewTicker(x.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			x.logger.Info("arbexecutor-stopping")
			return ctx.Err()
		case <-ticker.C:
			for _, e := range reg.Active() {
				x.Scan(ctx, e)
			}
		}
	}
}

// Scan checks one market for a crossing opportunity and executes it if
// found (spec.md Sec 4.6: detection).
func (x *Executor) Scan(ctx context.Context, e *registry.Entry) {
	if e.State.Status == types.StatusHolding || e.State.Status == types.StatusBlocked {
		return
	}

	askUp, okUp := x.book.BestAsk(e.State.UpToken)
	askDown, okDown := x.book.BestAsk(e.State.DownToken)
	if !okUp || !okDown {
		return
	}

	combined := askUp.Price.Add(askDown.Price)
	threshold := decimal.NewFromInt(1).Sub(x.cfg.MinEdge)
	if combined.GreaterThanOrEqual(threshold) {
		return
	}

	if e.Market.Expiry.Sub(time.Now()) <= x.cfg.ExpiryCutoff {
		return
	}

	executable := minDecimal(minDecimal(askUp.Size, askDown.Size), x.cfg.MaxShares)
	if executable.LessThan(x.cfg.MinSharesPerOrder) {
		return
	}

	OpportunitiesFoundTotal.Inc()
	x.execute(ctx, e, combined)
}

// execute runs the strict equal-exposure execution protocol (spec.md
// Sec 4.6 steps 1-7).
func (x *Executor) execute(ctx context.Context, e *registry.Entry, combinedAsk decimal.Decimal) {
	x.mu.Lock()
	defer x.mu.Unlock()

	st := e.State

	posUp0, err := x.gw.Position(ctx, st.UpToken)
	if err != nil {
		return
	}
	posDown0, err := x.gw.Position(ctx, st.DownToken)
	if err != nil {
		return
	}

	if posUp0.Shares != posDown0.Shares {
		if !x.reverseToZero(ctx, st) {
			e.State.Status = types.StatusBlocked
			ExecutionsTotal.WithLabelValues("blocked_unequal_start").Inc()
		}
		return
	}

	downQuote, err := x.gw.PlaceLimitBuy(ctx, st.DownToken, x.cfg.CrossingPrice, x.cfg.MinSharesPerOrder)
	if err != nil {
		ExecutionsTotal.WithLabelValues("place_down_failed").Inc()
		return
	}
	_ = x.gw.Cancel(ctx, downQuote.OrderID)

	posDown1, err := x.gw.Position(ctx, st.DownToken)
	if err != nil {
		return
	}
	fDown := posDown1.Shares - posDown0.Shares
	if fDown <= 0 {
		ExecutionsTotal.WithLabelValues("no_fill_retryable").Inc()
		return
	}

	upQuote, err := x.gw.PlaceLimitBuy(ctx, st.UpToken, x.cfg.CrossingPrice, decimal.NewFromInt(fDown))
	if err != nil {
		ExecutionsTotal.WithLabelValues("place_up_failed_retryable").Inc()
		if x.reverseToZero(ctx, st) {
			return
		}
		e.State.Status = types.StatusBlocked
		return
	}
	_ = x.gw.Cancel(ctx, upQuote.OrderID)

	posUp1, err := x.gw.Position(ctx, st.UpToken)
	if err != nil {
		return
	}
	fUp := posUp1.Shares - posUp0.Shares

	if fUp == fDown && fUp > 0 {
		// Crossing orders fill at the resting asks, not at the limit price.
		edge := decimal.NewFromInt(1).Sub(combinedAsk)
		profit := edge.Mul(decimal.NewFromInt(fUp))
		RealizedProfitUSDC.Add(profit.InexactFloat64())
		st.RealizedPnL = st.RealizedPnL.Add(profit)
		e.State.Status = types.StatusHolding
		ExecutionsTotal.WithLabelValues("success").Inc()
		x.logger.Info("arbitrage-executed",
			zap.String("market-id", e.Market.ID), zap.Int64("shares", fUp))
		if x.onSuccess != nil {
			x.onSuccess(e, fUp, upQuote, downQuote)
		}
		return
	}

	if x.reverseToZero(ctx, st) {
		ExecutionsTotal.WithLabelValues("reversed_retryable").Inc()
		return
	}
	e.State.Status = types.StatusBlocked
	ExecutionsTotal.WithLabelValues("blocked_final_imbalance").Inc()
}

// reverseToZero sells down any remaining position on both legs at
// ReversalPrice until both read zero, or gives up after
// ReversalMaxAttempts (spec.md Sec 4.6 step 2/7: "reversal-to-zero").
func (x *Executor) reverseToZero(ctx context.Context, st *types.MarketState) bool {
	for attempt := 0; attempt < x.cfg.ReversalMaxAttempts; attempt++ {
		posUp, errUp := x.gw.Position(ctx, st.UpToken)
		posDown, errDown := x.gw.Position(ctx, st.DownToken)
		if errUp == nil && errDown == nil && posUp.Shares == 0 && posDown.Shares == 0 {
			ReversalsTotal.WithLabelValues("success").Inc()
			return true
		}
		if errUp == nil && posUp.Shares > 0 {
			_, _ = x.gw.PlaceMarketSell(ctx, st.UpToken, x.cfg.ReversalPrice, decimal.NewFromInt(posUp.Shares))
		}
		if errDown == nil && posDown.Shares > 0 {
			_, _ = x.gw.PlaceMarketSell(ctx, st.DownToken, x.cfg.ReversalPrice, decimal.NewFromInt(posDown.Shares))
		}
		x.sleep(x.cfg.ReversalRetryInterval)
	}

	posUp, errUp := x.gw.Position(ctx, st.UpToken)
	posDown, errDown := x.gw.Position(ctx, st.DownToken)
	ok := errUp == nil && errDown == nil && posUp.Shares == 0 && posDown.Shares == 0
	if ok {
		ReversalsTotal.WithLabelValues("success").Inc()
	} else {
		ReversalsTotal.WithLabelValues("failed").Inc()
	}
	return ok
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
