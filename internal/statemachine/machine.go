// Package statemachine implements the Per-Market State Machine (spec.md
// Sec 4.4): the coordinator that owns one market's quote lifecycle, fill
// detection, one-sided recovery, and hold-to-expiry. Each Machine is
// driven by its own goroutine (Run), ticking on RequoteInterval; it never
// touches another market's state, and the only resources it shares with
// the rest of the engine are the Book Cache (read-only) and the Gateway
// (stateless at the engine level).
package statemachine

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/internal/pricing"
	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway is the subset of internal/gateway.Gateway the state machine
// calls. Defining it locally keeps this package testable against a fake
// without importing the concrete Gateway's signing/HTTP machinery.
type Gateway interface {
	PlaceLimitBuy(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error)
	PlaceMarketSell(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error)
	Cancel(ctx context.Context, orderID string) error
	CancelAll(ctx context.Context) error
	ListOpenOrders(ctx context.Context) ([]types.OpenOrder, error)
	Position(ctx context.Context, token types.Token) (types.Position, error)
}

// BookCache is the subset of internal/bookcache.Cache the state machine
// calls.
type BookCache interface {
	BestAsk(token types.Token) (types.OrderBookLevel, bool)
	BestBid(token types.Token) (types.OrderBookLevel, bool)
	IsFreshPair(up, down types.Token, now time.Time, horizon time.Duration) bool
}

// Machine is the per-market state machine. One Machine instance owns
// exactly one market's Entry for the Entry's entire lifetime.
type Machine struct {
	gw     Gateway
	book   BookCache
	cfg    Config
	logger *zap.Logger

	// sleep is the clock primitive every wait loop uses instead of
	// time.Sleep directly, so tests can substitute an instant no-op.
	sleep func(d time.Duration)

	// onSettled, if set, fires whenever transition reaches a terminal
	// status (HOLDING or BLOCKED) — the hook internal/app wires to
	// internal/storage so locked-in positions get persisted.
	onSettled func(e *registry.Entry, to types.Status)
}

// SetOnSettled registers a callback invoked the moment this market's
// status becomes terminal (HOLDING or BLOCKED). Only one callback is
// supported; a second call replaces the first.
func (m *Machine) SetOnSettled(fn func(e *registry.Entry, to types.Status)) {
	m.onSettled = fn
}

// New constructs a Machine bound to one market's Gateway/BookCache view.
func New(gw Gateway, book BookCache, cfg Config, logger *zap.Logger) *Machine {
	return &Machine{
		gw:     gw,
		book:   book,
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Run drives one market's Entry until ctx is cancelled or the Entry
// reaches a terminal state (HOLDING/BLOCKED) and the caller stops calling
// Run again — Run itself returns once the status is terminal so the
// Supervisor can retire the goroutine.
func (m *Machine) Run(ctx context.Context, e *registry.Entry) {
	ticker := time.NewTicker(m.cfg.RequoteInterval)
	defer ticker.Stop()

	m.Tick(ctx, e, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx, e, time.Now())
		}
		if terminal(e.State.Status) {
			return
		}
	}
}

func terminal(s types.Status) bool {
	return s == types.StatusHolding || s == types.StatusBlocked
}

// Tick performs one state-machine cycle for entry e: expiry check,
// position sample, then a status-dependent action, in that order (spec.md
// Sec 4.4 "Driver cycle").
func (m *Machine) Tick(ctx context.Context, e *registry.Entry, now time.Time) {
	TicksTotal.Inc()

	if terminal(e.State.Status) {
		return
	}

	timeToExpiry := e.Market.Expiry.Sub(now)

	if timeToExpiry <= m.cfg.ExpiryCutoff {
		m.handleExpiryCutoff(ctx, e)
		return
	}

	if timeToExpiry <= m.cfg.RequoteBlackout && e.State.Status == types.StatusQuoting {
		_ = m.gw.CancelAll(ctx)
		m.transition(e, types.StatusIdle)
		e.State.CurrentUpOrderID = ""
		e.State.CurrentDownOrderID = ""
	}

	posUp, errUp := m.gw.Position(ctx, e.State.UpToken)
	posDown, errDown := m.gw.Position(ctx, e.State.DownToken)
	if errUp != nil || errDown != nil {
		m.logger.Warn("position-sample-failed",
			zap.String("market-id", e.Market.ID), zap.Error(errUp), zap.Error(errDown))
		return
	}
	e.State.ObservedUpPosition = posUp.Shares
	e.State.ObservedDownPosition = posDown.Shares

	if m.applyPositionTransitions(ctx, e, now) {
		return
	}

	if e.State.Status == types.StatusIdle || e.State.Status == types.StatusQuoting {
		m.evaluateQuote(ctx, e, now)
	}
}

// applyPositionTransitions implements spec.md Sec 4.4's "Position-driven
// transitions (checked every tick before any quoting decision)". Returns
// true if a transition consumed the tick (no further quoting this cycle).
func (m *Machine) applyPositionTransitions(ctx context.Context, e *registry.Entry, now time.Time) bool {
	st := e.State
	shares := m.cfg.SharesPerOrder
	up := decimal.NewFromInt(st.ObservedUpPosition)
	down := decimal.NewFromInt(st.ObservedDownPosition)

	switch {
	case up.GreaterThanOrEqual(shares) && down.GreaterThanOrEqual(shares):
		minPos := minDecimal(up, down)
		locked := decimal.NewFromInt(1).Sub(st.LastUpBid).Sub(st.LastDownBid).Mul(minPos)
		_ = m.gw.CancelAll(ctx)
		st.RealizedPnL = st.RealizedPnL.Add(locked)
		RealizedPnLUSDC.Add(locked.InexactFloat64())
		st.EnteredHoldingAt = now
		m.transition(e, types.StatusHolding)
		return true

	case up.GreaterThan(decimal.Zero) && down.IsZero():
		m.recoverOneSided(ctx, e, sideUp, up)
		return true

	case down.GreaterThan(decimal.Zero) && up.IsZero():
		m.recoverOneSided(ctx, e, sideDown, down)
		return true

	case up.GreaterThan(decimal.Zero) && down.GreaterThan(decimal.Zero):
		// Partial fill on both sides but neither reached the full order
		// size: I2 forbids re-entry once any position exists.
		_ = m.gw.CancelAll(ctx)
		st.EnteredHoldingAt = now
		m.transition(e, types.StatusHolding)
		return true

	default:
		return false
	}
}

// evaluateQuote implements spec.md Sec 4.4's "Quote evaluation" — only
// reachable from IDLE or QUOTING.
func (m *Machine) evaluateQuote(ctx context.Context, e *registry.Entry, now time.Time) {
	st := e.State

	askUp, okUp := m.book.BestAsk(st.UpToken)
	askDown, okDown := m.book.BestAsk(st.DownToken)
	if !okUp || !okDown {
		return // remain IDLE, or leave any existing QUOTING quotes pending.
	}

	if !m.book.IsFreshPair(st.UpToken, st.DownToken, now, m.cfg.BookFreshnessHorizon) {
		// Stale book: if already quoting, leave the existing quotes in
		// place rather than refresh off stale data.
		return
	}

	params := pricing.ParamsForRegime(st.Regime, m.cfg.VolatilityThreshold)
	q := pricing.Evaluate(askUp.Price, askDown.Price, params)

	if !q.Valid {
		m.logger.Debug("no-quote",
			zap.String("market-id", e.Market.ID), zap.String("reason", string(q.Reason)))
		if st.Status == types.StatusQuoting {
			_ = m.gw.CancelAll(ctx)
			st.CurrentUpOrderID = ""
			st.CurrentDownOrderID = ""
			m.transition(e, types.StatusIdle)
		}
		return
	}

	if st.Status == types.StatusQuoting {
		diffUp := absDecimal(q.BidUp.Sub(st.LastUpBid))
		diffDown := absDecimal(q.BidDown.Sub(st.LastDownBid))
		if diffUp.LessThan(m.cfg.RequoteDeltaThreshold) && diffDown.LessThan(m.cfg.RequoteDeltaThreshold) {
			return // existing quote pair is still close enough.
		}
	}

	_ = m.gw.CancelAll(ctx)
	m.verifyOrdersEmpty(ctx, st)

	upQuote, downQuote := m.placeBothConcurrently(ctx, st.UpToken, st.DownToken, q.BidUp, q.BidDown, m.cfg.SharesPerOrder)
	if upQuote == nil || downQuote == nil {
		_ = m.gw.CancelAll(ctx) // best-effort: cancel in case the other leg succeeded.
		st.CurrentUpOrderID = ""
		st.CurrentDownOrderID = ""
		m.transition(e, types.StatusIdle)
		return
	}

	st.CurrentUpOrderID = upQuote.OrderID
	st.CurrentDownOrderID = downQuote.OrderID
	st.LastUpBid = q.BidUp
	st.LastDownBid = q.BidDown
	m.transition(e, types.StatusQuoting)
	QuotesPlacedTotal.Inc()

	m.enforceOpenOrderCap(ctx, st)
}

// placeBothConcurrently places the UP and DOWN BUYs in parallel and waits
// for both to resolve (spec.md Sec 5 concurrency point 1).
func (m *Machine) placeBothConcurrently(
	ctx context.Context,
	upToken, downToken types.Token,
	bidUp, bidDown, size decimal.Decimal,
) (*types.Quote, *types.Quote) {
	var wg sync.WaitGroup
	var upQuote, downQuote *types.Quote

	wg.Add(2)
	go func() {
		defer wg.Done()
		q, err := m.gw.PlaceLimitBuy(ctx, upToken, bidUp, size)
		if err == nil {
			upQuote = q
		} else {
			m.logger.Warn("place-buy-failed", zap.String("token", string(upToken)), zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		q, err := m.gw.PlaceLimitBuy(ctx, downToken, bidDown, size)
		if err == nil {
			downQuote = q
		} else {
			m.logger.Warn("place-buy-failed", zap.String("token", string(downToken)), zap.Error(err))
		}
	}()
	wg.Wait()

	return upQuote, downQuote
}

// verifyOrdersEmpty polls ListOpenOrders a bounded number of times after a
// cancel_all, enforcing the cancel-before-place discipline (I1, I5).
func (m *Machine) verifyOrdersEmpty(ctx context.Context, st *types.MarketState) {
	const maxAttempts = 5
	for i := 0; i < maxAttempts; i++ {
		orders, err := m.gw.ListOpenOrders(ctx)
		if err != nil {
			return
		}
		if !anyOrderForMarket(orders, st.UpToken, st.DownToken) {
			return
		}
		m.sleep(100 * time.Millisecond)
	}
}

// enforceOpenOrderCap implements spec.md Sec 4.4's tie-break: if this
// market somehow has more than 2 resting orders after placement, cancel
// everything and retry next tick rather than let orders accumulate.
func (m *Machine) enforceOpenOrderCap(ctx context.Context, st *types.MarketState) {
	orders, err := m.gw.ListOpenOrders(ctx)
	if err != nil {
		return
	}
	count := 0
	for _, o := range orders {
		if o.Token == st.UpToken || o.Token == st.DownToken {
			count++
		}
	}
	if count > 2 {
		_ = m.gw.CancelAll(ctx)
		st.CurrentUpOrderID = ""
		st.CurrentDownOrderID = ""
		st.Status = types.StatusIdle
	}
}

func anyOrderForMarket(orders []types.OpenOrder, up, down types.Token) bool {
	for _, o := range orders {
		if o.Token == up || o.Token == down {
			return true
		}
	}
	return false
}

// handleExpiryCutoff implements spec.md Sec 4.4's expiry check at
// expiry-60s.
func (m *Machine) handleExpiryCutoff(ctx context.Context, e *registry.Entry) {
	st := e.State
	_ = m.gw.CancelAll(ctx)

	posUp, errUp := m.gw.Position(ctx, st.UpToken)
	posDown, errDown := m.gw.Position(ctx, st.DownToken)
	if errUp == nil {
		st.ObservedUpPosition = posUp.Shares
	}
	if errDown == nil {
		st.ObservedDownPosition = posDown.Shares
	}

	switch {
	case st.ObservedUpPosition > 0 && st.ObservedDownPosition > 0:
		st.EnteredHoldingAt = time.Now()
		m.transition(e, types.StatusHolding)

	case st.ObservedUpPosition == 0 && st.ObservedDownPosition == 0:
		m.logger.Warn("market-lost-no-position-at-expiry", zap.String("market-id", e.Market.ID))
		m.transition(e, types.StatusBlocked)

	default:
		// One-sided at expiry: best-effort close, then BLOCKED.
		filledToken, filledShares := st.UpToken, st.ObservedUpPosition
		if st.ObservedDownPosition > 0 {
			filledToken, filledShares = st.DownToken, st.ObservedDownPosition
		}
		if bid, ok := m.book.BestBid(filledToken); ok {
			sellPrice := maxDecimal(decimal.NewFromFloat(0.01), bid.Price.Sub(decimal.NewFromFloat(0.01)))
			_, _ = m.gw.PlaceMarketSell(ctx, filledToken, sellPrice, decimal.NewFromInt(filledShares))
		}
		m.logger.Warn("operator-notice-expiry-imbalance",
			zap.String("market-id", e.Market.ID),
			zap.String("question", e.Market.Question),
			zap.Int64("imbalance-shares", filledShares))
		m.transition(e, types.StatusBlocked)
	}
}

func (m *Machine) transition(e *registry.Entry, to types.Status) {
	from := e.State.Status
	if from == to {
		return
	}
	e.State.Status = to
	TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	m.logger.Info("market-state-transition",
		zap.String("market-id", e.Market.ID), zap.String("from", string(from)), zap.String("to", string(to)))

	if terminal(to) && m.onSettled != nil {
		m.onSettled(e, to)
	}
}

func absDecimal(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return d.Neg()
	}
	return d
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
