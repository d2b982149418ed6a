package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/internal/storage"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// persistSettled is the market-maker mode's statemachine.Machine
// OnSettled hook: it records every market that reaches HOLDING (a locked
// position) so spec.md Sec 6's trade-record history captures both legs'
// final quoted prices. BLOCKED markets are logged but not recorded as
// trades — the operator-notice line the state machine already emits is
// the record of those.
func (a *App) persistSettled(e *registry.Entry, to types.Status) {
	if to != types.StatusHolding {
		return
	}

	shares := e.State.ObservedUpPosition
	if e.State.ObservedDownPosition < shares {
		shares = e.State.ObservedDownPosition
	}

	record := &storage.Record{
		ID:          uuid.NewString(),
		MarketID:    e.Market.ID,
		Question:    e.Market.Question,
		Mode:        storage.ModeMarketMaker,
		UpPrice:     e.State.LastUpBid,
		DownPrice:   e.State.LastDownBid,
		Shares:      shares,
		RealizedPnL: e.State.RealizedPnL,
		DetectedAt:  time.Now(),
	}

	if err := a.store.StoreRecord(a.ctx, record); err != nil {
		a.logger.Error("persist-trade-record-failed",
			zap.String("market-id", e.Market.ID), zap.Error(err))
	}
}

// persistArbSuccess is the arbitrage-taker mode's arbexecutor.Executor
// OnSuccess hook.
func (a *App) persistArbSuccess(e *registry.Entry, filledShares int64, upQuote, downQuote *types.Quote) {
	record := &storage.Record{
		ID:          uuid.NewString(),
		MarketID:    e.Market.ID,
		Question:    e.Market.Question,
		Mode:        storage.ModeArbitrage,
		UpPrice:     upQuote.Price,
		DownPrice:   downQuote.Price,
		Shares:      filledShares,
		RealizedPnL: e.State.RealizedPnL,
		DetectedAt:  time.Now(),
	}

	if err := a.store.StoreRecord(context.Background(), record); err != nil {
		a.logger.Error("persist-arb-record-failed",
			zap.String("market-id", e.Market.ID), zap.Error(err))
	}
}
