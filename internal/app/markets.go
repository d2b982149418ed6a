package app

import (
	"context"

	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
	"go.uber.org/zap"
)

// subscriptionAdapter sits between the discovery Service and the
// Supervisor: discovery.Service.NewMarketsChan() has exactly one real
// consumer (a Go channel isn't fan-out), so a second goroutine can't also
// drain it to subscribe the websocket Manager without racing the
// Supervisor for messages. The adapter owns the one read of the
// underlying channel, subscribes both outcome tokens as a side effect,
// then republishes the market on its own channel for the Supervisor.
type subscriptionAdapter struct {
	discovery *discovery.Service
	wsManager *websocket.Manager
	logger    *zap.Logger
	out       chan *types.Market
}

func newSubscriptionAdapter(d *discovery.Service, ws *websocket.Manager, logger *zap.Logger) *subscriptionAdapter {
	return &subscriptionAdapter{
		discovery: d,
		wsManager: ws,
		logger:    logger,
		out:       make(chan *types.Market, 100),
	}
}

// Run starts the forwarding loop and blocks on the underlying discovery
// Service's own Run, returning when either stops.
func (s *subscriptionAdapter) Run(ctx context.Context) error {
	go s.forward(ctx)
	return s.discovery.Run(ctx)
}

func (s *subscriptionAdapter) forward(ctx context.Context) {
	defer close(s.out)
	for {
		select {
		case <-ctx.Done():
			return
		case market, ok := <-s.discovery.NewMarketsChan():
			if !ok {
				return
			}
			if err := s.wsManager.Subscribe(ctx, []string{string(market.UpToken), string(market.DownToken)}); err != nil {
				s.logger.Error("subscribe-new-market-failed",
					zap.String("market-id", market.ID), zap.Error(err))
			}
			select {
			case s.out <- market:
			case <-ctx.Done():
				return
			}
		}
	}
}

// NewMarketsChan returns the channel of markets already subscribed on the
// websocket, ready for the Supervisor to admit.
func (s *subscriptionAdapter) NewMarketsChan() <-chan *types.Market {
	return s.out
}
