// Package supervisor owns the engine's top-level driver loop in
// market-maker mode: it admits markets discovery finds into the registry,
// keeps regime classification and expiry sweeps current, and spawns one
// state machine goroutine per admitted market. It holds no market-specific
// state itself; the registry and each market's state machine own that.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/internal/statemachine"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// Discovery is the subset of internal/discovery.Service the supervisor
// consumes.
type Discovery interface {
	Run(ctx context.Context) error
	NewMarketsChan() <-chan *types.Market
}

// Supervisor runs the market-maker driver loop.
type Supervisor struct {
	discovery Discovery
	registry  *registry.Registry
	gw        statemachine.Gateway
	book      statemachine.BookCache
	smConfig  statemachine.Config
	logger    *zap.Logger

	maintenanceInterval time.Duration
	onSettled           func(e *registry.Entry, to types.Status)

	mu       sync.Mutex
	running  map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// Config holds Supervisor construction parameters.
type Config struct {
	Discovery           Discovery
	Registry            *registry.Registry
	Gateway             statemachine.Gateway
	BookCache           statemachine.BookCache
	StateMachineConfig  statemachine.Config
	MaintenanceInterval time.Duration // how often to ReclassifyRegimes/ExpirySweep
	Logger              *zap.Logger

	// OnSettled, if set, is registered on every spawned state machine and
	// fires once that market reaches HOLDING or BLOCKED.
	OnSettled func(e *registry.Entry, to types.Status)
}

// New constructs a Supervisor.
func New(cfg Config) *Supervisor {
	interval := cfg.MaintenanceInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Supervisor{
		discovery:           cfg.Discovery,
		registry:            cfg.Registry,
		gw:                  cfg.Gateway,
		book:                cfg.BookCache,
		smConfig:            cfg.StateMachineConfig,
		logger:              cfg.Logger,
		maintenanceInterval: interval,
		onSettled:           cfg.OnSettled,
		running:             make(map[string]context.CancelFunc),
	}
}

// Run drives admission, maintenance and per-market state machines until ctx
// is cancelled. It blocks until every spawned state machine goroutine has
// returned.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("supervisor-starting")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.discovery.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("discovery-run-failed", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(s.maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("supervisor-stopping")
			s.wg.Wait()
			return ctx.Err()

		case market, ok := <-s.discovery.NewMarketsChan():
			if !ok {
				continue
			}
			s.admitAndSpawn(ctx, market)

		case <-ticker.C:
			s.runMaintenance()
		}
	}
}

// admitAndSpawn adds a newly discovered market to the registry and starts
// its state machine goroutine. Admission is idempotent; a duplicate market
// id is silently ignored.
func (s *Supervisor) admitAndSpawn(ctx context.Context, market *types.Market) {
	if !s.registry.Admit(market) {
		return
	}

	entry, ok := s.registry.Get(market.ID)
	if !ok {
		return
	}

	machineCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.running[market.ID] = cancel
	s.mu.Unlock()

	machine := statemachine.New(s.gw, s.book, s.smConfig, s.logger.With(zap.String("market-id", market.ID)))
	if s.onSettled != nil {
		machine.SetOnSettled(s.onSettled)
	}
	MachinesSpawnedTotal.Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, market.ID)
			s.mu.Unlock()
		}()
		machine.Run(machineCtx, entry)
	}()
}

// runMaintenance reclassifies regimes, sweeps expired markets, and refreshes
// the stats gauges. It does not touch any individual state machine's
// goroutine; a market whose entry is swept while its machine is still
// running simply finds the machine exits on its next expiry check.
func (s *Supervisor) runMaintenance() {
	now := time.Now()
	s.registry.ReclassifyRegimes(now)

	removed := s.registry.ExpirySweep(now)
	MarketsExpiredTotal.Add(float64(len(removed)))

	s.refreshStats()
}

func (s *Supervisor) refreshStats() {
	MarketsTrackedGauge.Set(float64(s.registry.Len()))
	counts := s.registry.CountByStatus()
	for _, status := range []types.Status{
		types.StatusIdle, types.StatusQuoting, types.StatusAggressiveComplete,
		types.StatusHolding, types.StatusBlocked,
	} {
		MarketsByStatusGauge.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// Stats reports the registry's current market counts, for the dashboard.
func (s *Supervisor) Stats() map[types.Status]int {
	return s.registry.CountByStatus()
}
