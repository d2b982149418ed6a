package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/internal/statemachine"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeDiscovery struct {
	ch chan *types.Market
}

func newFakeDiscovery() *fakeDiscovery {
	return &fakeDiscovery{ch: make(chan *types.Market, 10)}
}

func (f *fakeDiscovery) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeDiscovery) NewMarketsChan() <-chan *types.Market {
	return f.ch
}

type noopGateway struct{}

func (noopGateway) PlaceLimitBuy(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error) {
	return &types.Quote{Token: token, OrderID: "ord", Price: price, Size: size}, nil
}
func (noopGateway) PlaceMarketSell(ctx context.Context, token types.Token, price, size decimal.Decimal) (*types.Quote, error) {
	return &types.Quote{Token: token, Price: price, Size: size}, nil
}
func (noopGateway) Cancel(ctx context.Context, orderID string) error { return nil }
func (noopGateway) CancelAll(ctx context.Context) error              { return nil }
func (noopGateway) ListOpenOrders(ctx context.Context) ([]types.OpenOrder, error) {
	return nil, nil
}
func (noopGateway) Position(ctx context.Context, token types.Token) (types.Position, error) {
	return types.Position{Token: token}, nil
}

type noopBook struct{}

func (noopBook) BestAsk(token types.Token) (types.OrderBookLevel, bool) { return types.OrderBookLevel{}, false }
func (noopBook) BestBid(token types.Token) (types.OrderBookLevel, bool) { return types.OrderBookLevel{}, false }
func (noopBook) IsFreshPair(up, down types.Token, now time.Time, horizon time.Duration) bool {
	return false
}

func newTestSupervisor(t *testing.T, disc Discovery) (*Supervisor, *registry.Registry) {
	t.Helper()
	reg := registry.New(zaptest.NewLogger(t))
	cfg := statemachine.DefaultConfig(decimal.NewFromInt(10), decimal.NewFromFloat(0.01), 0.9, 5*time.Millisecond)
	s := New(Config{
		Discovery:           disc,
		Registry:            reg,
		Gateway:             noopGateway{},
		BookCache:           noopBook{},
		StateMachineConfig:  cfg,
		MaintenanceInterval: 5 * time.Millisecond,
		Logger:              zaptest.NewLogger(t),
	})
	return s, reg
}

func TestSupervisor_AdmitsDiscoveredMarketAndSpawnsMachine(t *testing.T) {
	t.Parallel()
	disc := newFakeDiscovery()
	s, reg := newTestSupervisor(t, disc)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	market := &types.Market{
		ID: "m1", Question: "q", UpToken: "m1-up", DownToken: "m1-down",
		Expiry: time.Now().Add(10 * time.Minute), Regime: types.RegimeLive,
	}
	disc.ch <- market

	require.Eventually(t, func() bool {
		_, ok := reg.Get("m1")
		return ok
	}, 200*time.Millisecond, time.Millisecond)

	<-done
}

func TestSupervisor_DuplicateMarketAdmittedOnce(t *testing.T) {
	t.Parallel()
	disc := newFakeDiscovery()
	s, reg := newTestSupervisor(t, disc)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	go s.Run(ctx)

	market := &types.Market{
		ID: "dup", Question: "q", UpToken: "dup-up", DownToken: "dup-down",
		Expiry: time.Now().Add(10 * time.Minute), Regime: types.RegimeLive,
	}
	disc.ch <- market
	disc.ch <- market

	<-ctx.Done()
	assert.Equal(t, 1, reg.Len())
}

func TestSupervisor_StatsReflectsRegistry(t *testing.T) {
	t.Parallel()
	disc := newFakeDiscovery()
	s, reg := newTestSupervisor(t, disc)
	reg.Admit(&types.Market{
		ID: "a", Question: "q", UpToken: "a-up", DownToken: "a-down",
		Expiry: time.Now().Add(10 * time.Minute), Regime: types.RegimeLive,
	})

	stats := s.Stats()
	assert.Equal(t, 1, stats[types.StatusIdle])
}
