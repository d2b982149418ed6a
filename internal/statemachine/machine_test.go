package statemachine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeGateway struct {
	mu sync.Mutex

	asks      map[types.Token]types.OrderBookLevel
	bids      map[types.Token]types.OrderBookLevel
	positions map[types.Token]int64
	openOrds  []types.OpenOrder

	placeErr    error
	nextOrderID int

	placedBuys  []types.Token
	placedSells []types.Token
	cancelAllN  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		asks:      make(map[types.Token]types.OrderBookLevel),
		bids:      make(map[types.Token]types.OrderBookLevel),
		positions: make(map[types.Token]int64),
	}
}

func (f *fakeGateway) PlaceLimitBuy(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.nextOrderID++
	f.placedBuys = append(f.placedBuys, token)
	return &types.Quote{Token: token, OrderID: fmt.Sprintf("ord-%d", f.nextOrderID), Price: price, Size: size, Side: types.Buy}, nil
}

func (f *fakeGateway) PlaceMarketSell(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placedSells = append(f.placedSells, token)
	f.positions[token] = 0
	return &types.Quote{Token: token, Price: price, Size: size, Side: types.Sell}, nil
}

func (f *fakeGateway) Cancel(ctx context.Context, orderID string) error { return nil }

func (f *fakeGateway) CancelAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelAllN++
	f.openOrds = nil
	return nil
}

func (f *fakeGateway) ListOpenOrders(ctx context.Context) ([]types.OpenOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openOrds, nil
}

func (f *fakeGateway) Position(ctx context.Context, token types.Token) (types.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.Position{Token: token, Shares: f.positions[token]}, nil
}

func (f *fakeGateway) setPosition(token types.Token, shares int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[token] = shares
}

type fakeBook struct {
	mu    sync.Mutex
	asks  map[types.Token]types.OrderBookLevel
	bids  map[types.Token]types.OrderBookLevel
	fresh bool
}

func newFakeBook() *fakeBook {
	return &fakeBook{
		asks:  make(map[types.Token]types.OrderBookLevel),
		bids:  make(map[types.Token]types.OrderBookLevel),
		fresh: true,
	}
}

func (b *fakeBook) setAsk(token types.Token, price string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.asks[token] = types.OrderBookLevel{Price: decimal.RequireFromString(price), Size: decimal.NewFromInt(100)}
}

func (b *fakeBook) setBid(token types.Token, price string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids[token] = types.OrderBookLevel{Price: decimal.RequireFromString(price), Size: decimal.NewFromInt(100)}
}

func (b *fakeBook) BestAsk(token types.Token) (types.OrderBookLevel, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lvl, ok := b.asks[token]
	return lvl, ok
}

func (b *fakeBook) BestBid(token types.Token) (types.OrderBookLevel, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lvl, ok := b.bids[token]
	return lvl, ok
}

func (b *fakeBook) IsFreshPair(up, down types.Token, now time.Time, horizon time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fresh
}

func testConfig() Config {
	cfg := DefaultConfig(decimal.NewFromInt(10), decimal.NewFromFloat(0.01), 0.9, 10*time.Millisecond)
	cfg.ExpiryCutoff = 60 * time.Second
	cfg.RequoteBlackout = 5 * time.Minute
	cfg.BookFreshnessHorizon = 5 * time.Second
	cfg.AggressiveWaitTimeout = 20 * time.Millisecond
	cfg.AggressivePollInterval = 5 * time.Millisecond
	cfg.PriceImprovementTimeout = 20 * time.Millisecond
	cfg.PriceImprovementPoll = 5 * time.Millisecond
	cfg.CutLossMaxAttempts = 2
	cfg.CutLossRetryInterval = time.Millisecond
	return cfg
}

func testEntry(id string, expiry time.Time) *registry.Entry {
	m := &types.Market{
		ID: id, Question: "q", UpToken: types.Token(id + "-up"), DownToken: types.Token(id + "-down"),
		Expiry: expiry, Regime: types.RegimeLive,
	}
	return &registry.Entry{Market: m, State: types.NewMarketState(m)}
}

func noSleep(d time.Duration) {}

func TestTick_PlacesQuotesWhenEdgeExists(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	book.setAsk(e.State.UpToken, "0.55")
	book.setAsk(e.State.DownToken, "0.50")

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusQuoting, e.State.Status)
	assert.NotEmpty(t, e.State.CurrentUpOrderID)
	assert.NotEmpty(t, e.State.CurrentDownOrderID)
}

func TestTick_NoQuoteWhenNoEdge(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	book.setAsk(e.State.UpToken, "0.49")
	book.setAsk(e.State.DownToken, "0.48")

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusIdle, e.State.Status)
	assert.Empty(t, e.State.CurrentUpOrderID)
}

func TestTick_VolatilitySkip(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	book.setAsk(e.State.UpToken, "0.95")
	book.setAsk(e.State.DownToken, "0.50")

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusIdle, e.State.Status)
}

func TestTick_StaleBookSkipsEvaluation(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	book.fresh = false
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	book.setAsk(e.State.UpToken, "0.55")
	book.setAsk(e.State.DownToken, "0.50")

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusIdle, e.State.Status)
	assert.Empty(t, e.State.CurrentUpOrderID)
}

func TestTick_BothFilled_TransitionsToHoldingAndRecordsPnL(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	e.State.Status = types.StatusQuoting
	e.State.LastUpBid = decimal.NewFromFloat(0.45)
	e.State.LastDownBid = decimal.NewFromFloat(0.45)
	gw.setPosition(e.State.UpToken, 10)
	gw.setPosition(e.State.DownToken, 10)

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusHolding, e.State.Status)
	assert.True(t, e.State.RealizedPnL.GreaterThan(decimal.Zero))
	assert.Equal(t, 1, gw.cancelAllN)
}

func TestTick_OneSidedFill_RecoversViaAggressiveComplete(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	e.State.Status = types.StatusQuoting
	gw.setPosition(e.State.UpToken, 10)
	gw.setPosition(e.State.DownToken, 0)
	book.setAsk(e.State.DownToken, "0.40")

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	// simulate the missing leg filling as soon as the aggressive buy posts.
	go func() {
		time.Sleep(2 * time.Millisecond)
		gw.setPosition(e.State.DownToken, 10)
	}()

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusHolding, e.State.Status)
}

func TestTick_OneSidedFill_ExhaustsRecoveryToBlocked(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	e.State.Status = types.StatusQuoting
	gw.setPosition(e.State.UpToken, 10)
	gw.setPosition(e.State.DownToken, 0)
	// No ask/bid ever available: every recovery branch fails to act.

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusBlocked, e.State.Status)
}

func TestTick_PartialBothSides_GoesHolding(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	e.State.Status = types.StatusQuoting
	gw.setPosition(e.State.UpToken, 3)
	gw.setPosition(e.State.DownToken, 2)

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusHolding, e.State.Status)
}

func TestTick_ExpiryCutoff_BothPositions_GoesHolding(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(30*time.Second))
	gw.setPosition(e.State.UpToken, 10)
	gw.setPosition(e.State.DownToken, 10)

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusHolding, e.State.Status)
}

func TestTick_ExpiryCutoff_NoPosition_GoesBlocked(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(30*time.Second))

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusBlocked, e.State.Status)
}

func TestTick_ExpiryCutoff_OneSided_SellsAndBlocks(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(30*time.Second))
	gw.setPosition(e.State.UpToken, 10)
	book.setBid(e.State.UpToken, "0.60")

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusBlocked, e.State.Status)
	require.Len(t, gw.placedSells, 1)
	assert.Equal(t, e.State.UpToken, gw.placedSells[0])
}

func TestTick_RequoteBlackout_CancelsAndGoesIdle(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(4*time.Minute))
	e.State.Status = types.StatusQuoting
	e.State.CurrentUpOrderID = "ord-1"
	e.State.CurrentDownOrderID = "ord-2"

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusIdle, e.State.Status)
	assert.Empty(t, e.State.CurrentUpOrderID)
	assert.Equal(t, 1, gw.cancelAllN)
}

func TestTick_TerminalStatusIsNoOp(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	e.State.Status = types.StatusBlocked

	m := New(gw, book, testConfig(), zaptest.NewLogger(t))
	m.sleep = noSleep

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, types.StatusBlocked, e.State.Status)
	assert.Zero(t, gw.cancelAllN)
}

func TestTick_RequoteDeltaThreshold_SkipsRequoteWhenClose(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1", time.Now().Add(10*time.Minute))
	e.State.Status = types.StatusQuoting
	book.setAsk(e.State.UpToken, "0.55")
	book.setAsk(e.State.DownToken, "0.50")

	cfg := testConfig()
	cfg.RequoteDeltaThreshold = decimal.NewFromFloat(10) // unreachable threshold: any delta is "close enough"
	m := New(gw, book, cfg, zaptest.NewLogger(t))
	m.sleep = noSleep

	e.State.LastUpBid = decimal.NewFromFloat(0.01)
	e.State.LastDownBid = decimal.NewFromFloat(0.01)
	e.State.CurrentUpOrderID = "existing-up"
	e.State.CurrentDownOrderID = "existing-down"

	m.Tick(context.Background(), e, time.Now())

	assert.Equal(t, "existing-up", e.State.CurrentUpOrderID)
	assert.Zero(t, gw.cancelAllN)
}
