package arbexecutor

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
	"go.uber.org/zap/zaptest"
)

type fakeGateway struct {
	mu        sync.Mutex
	positions map[types.Token]int64
	nextID    int
	fillFrac  map[types.Token]int64 // shares credited per PlaceLimitBuy call, keyed by token
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		positions: make(map[types.Token]int64),
		fillFrac:  make(map[types.Token]int64),
	}
}

func (f *fakeGateway) PlaceLimitBuy(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if fill, ok := f.fillFrac[token]; ok {
		f.positions[token] += fill
	} else {
		f.positions[token] += size.IntPart()
	}
	return &types.Quote{Token: token, OrderID: fmt.Sprintf("ord-%d", f.nextID), Price: price, Size: size}, nil
}

func (f *fakeGateway) PlaceMarketSell(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[token] -= size.IntPart()
	return &types.Quote{Token: token, Price: price, Size: size}, nil
}

func (f *fakeGateway) Cancel(ctx context.Context, orderID string) error { return nil }

func (f *fakeGateway) Position(ctx context.Context, token types.Token) (types.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.Position{Token: token, Shares: f.positions[token]}, nil
}

type fakeBook struct {
	asks map[types.Token]types.OrderBookLevel
}

func newFakeBook() *fakeBook {
	return &fakeBook{asks: make(map[types.Token]types.OrderBookLevel)}
}

func (b *fakeBook) setAsk(token types.Token, price, size string) {
	b.asks[token] = types.OrderBookLevel{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

func (b *fakeBook) BestAsk(token types.Token) (types.OrderBookLevel, bool) {
	lvl, ok := b.asks[token]
	return lvl, ok
}

func testEntry(id string) *registry.Entry {
	m := &types.Market{
		ID: id, Question: "q", UpToken: types.Token(id + "-up"), DownToken: types.Token(id + "-down"),
		Expiry: time.Now().Add(10 * time.Minute), Regime: types.RegimeLive,
	}
	return &registry.Entry{Market: m, State: types.NewMarketState(m)}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.ScanInterval = time.Millisecond
	cfg.ReversalRetryInterval = time.Millisecond
	return cfg
}

func TestScan_NoOpportunityWhenCombinedAboveThreshold(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1")
	book.setAsk(e.State.UpToken, "0.50", "100")
	book.setAsk(e.State.DownToken, "0.50", "100")

	x := New(gw, book, fastConfig(), zaptest.NewLogger(t))
	x.Scan(context.Background(), e)

	assert.Equal(t, types.StatusIdle, e.State.Status)
}

func TestScan_ExecutesWhenCrossing(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1")
	book.setAsk(e.State.UpToken, "0.45", "100")
	book.setAsk(e.State.DownToken, "0.45", "100")

	x := New(gw, book, fastConfig(), zaptest.NewLogger(t))
	x.Scan(context.Background(), e)

	assert.Equal(t, types.StatusHolding, e.State.Status)
	assert.True(t, e.State.RealizedPnL.GreaterThan(decimal.Zero))
}

func TestScan_InsufficientLiquiditySkipped(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1")
	book.setAsk(e.State.UpToken, "0.45", "2")
	book.setAsk(e.State.DownToken, "0.45", "2")

	x := New(gw, book, fastConfig(), zaptest.NewLogger(t))
	x.Scan(context.Background(), e)

	assert.Equal(t, types.StatusIdle, e.State.Status)
}

func TestScan_SkipsNearExpiry(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1")
	e.Market.Expiry = time.Now().Add(30 * time.Second)
	book.setAsk(e.State.UpToken, "0.45", "100")
	book.setAsk(e.State.DownToken, "0.45", "100")

	x := New(gw, book, fastConfig(), zaptest.NewLogger(t))
	x.Scan(context.Background(), e)

	assert.Equal(t, types.StatusIdle, e.State.Status)
}

func TestScan_NoDownFillRetriesWithoutBlocking(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.fillFrac[types.Token("m1-down")] = 0 // down order never fills
	book := newFakeBook()
	e := testEntry("m1")
	book.setAsk(e.State.UpToken, "0.45", "100")
	book.setAsk(e.State.DownToken, "0.45", "100")

	x := New(gw, book, fastConfig(), zaptest.NewLogger(t))
	x.Scan(context.Background(), e)

	assert.Equal(t, types.StatusIdle, e.State.Status)
}

func TestScan_UnequalStartingPositionReversesOrBlocks(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	e := testEntry("m1")
	gw.positions[e.State.UpToken] = 5 // unequal start
	book := newFakeBook()
	book.setAsk(e.State.UpToken, "0.45", "100")
	book.setAsk(e.State.DownToken, "0.45", "100")

	x := New(gw, book, fastConfig(), zaptest.NewLogger(t))
	x.Scan(context.Background(), e)

	// reversal sells the 5 up shares to zero, leaving the market retryable (IDLE).
	assert.Equal(t, types.StatusIdle, e.State.Status)
	assert.Equal(t, int64(0), gw.positions[e.State.UpToken])
}

func TestScan_AlreadyHoldingIsSkipped(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	book := newFakeBook()
	e := testEntry("m1")
	e.State.Status = types.StatusHolding
	book.setAsk(e.State.UpToken, "0.40", "100")
	book.setAsk(e.State.DownToken, "0.40", "100")

	x := New(gw, book, fastConfig(), zaptest.NewLogger(t))
	x.Scan(context.Background(), e)

	assert.Zero(t, gw.nextID)
}
