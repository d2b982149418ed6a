// Package registry is the Market Registry: the set of markets the engine
// is currently tracking, keyed by market id, each carrying its own
// MarketState. The Supervisor is the sole mutator of membership (Admit,
// Remove); every other component — in particular each market's state
// machine goroutine — only ever reads or writes the single Entry it owns.
// That division is what lets many state machines run concurrently without
// a lock on market state itself; only the membership map needs one.
package registry

import (
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// Entry pairs a Market's immutable identity with its mutable per-market
// state. State is never shared across markets; each Entry is owned, after
// admission, by exactly one state machine goroutine.
type Entry struct {
	Market *types.Market
	State  *types.MarketState
}

// Registry is the active market set (spec.md Sec 3 "Market Registry").
// BLOCKED markets are never removed (I4: "A market in BLOCKED never
// transitions out"); they remain in the map, permanently skipped by
// every trading path, until process restart.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	logger  *zap.Logger
}

// New creates an empty Registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		logger:  logger,
	}
}

// Admit adds a newly discovered market with status IDLE if it is not
// already tracked. Returns false if the market id is already present
// (admission is idempotent: a market already IDLE/QUOTING/HOLDING/BLOCKED
// is left untouched rather than reset).
func (r *Registry) Admit(market *types.Market) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[market.ID]; exists {
		return false
	}

	r.entries[market.ID] = &Entry{
		Market: market,
		State: &types.MarketState{
			MarketID:  market.ID,
			Regime:    market.Regime,
			Expiry:    market.Expiry,
			UpToken:   market.UpToken,
			DownToken: market.DownToken,
			Status:    types.StatusIdle,
		},
	}

	r.logger.Info("market-admitted",
		zap.String("market-id", market.ID),
		zap.String("question", market.Question),
		zap.String("regime", string(market.Regime)))

	return true
}

// Get returns the Entry for a market id.
func (r *Registry) Get(marketID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[marketID]
	return e, ok
}

// Snapshot returns every tracked Entry. It is a stable point-in-time copy
// of the membership slice; the Entries themselves are shared pointers, so
// callers still observe live State mutation by the owning state machine.
func (r *Registry) Snapshot() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Active returns every tracked Entry whose status is not HOLDING or
// BLOCKED — the set the Supervisor's driver loop ticks each cycle
// (spec.md Sec 4.4 "Driver cycle").
func (r *Registry) Active() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.State.Status != types.StatusHolding && e.State.Status != types.StatusBlocked {
			out = append(out, e)
		}
	}
	return out
}

// Remove drops a market from the registry. Callers must never remove a
// BLOCKED market (I4); ExpirySweep enforces this by construction.
func (r *Registry) Remove(marketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, marketID)
}

// ExpirySweep removes every tracked market whose expiry has passed,
// except BLOCKED markets, which remain forever (I4) for operator
// inspection. Returns the removed market ids.
func (r *Registry) ExpirySweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, e := range r.entries {
		if e.State.Status == types.StatusBlocked {
			continue
		}
		if now.After(e.Market.Expiry) {
			delete(r.entries, id)
			removed = append(removed, id)
			r.logger.Info("market-expired-removed",
				zap.String("market-id", id),
				zap.String("final-status", string(e.State.Status)))
		}
	}
	return removed
}

// ReclassifyRegimes transitions any PREMARKET entry to LIVE once its
// time-to-expiry crosses the 15-minute boundary (spec.md Sec 3: "Regime
// ... transitions PREMARKET -> LIVE when expiry - now crosses 15 minutes").
func (r *Registry) ReclassifyRegimes(now time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.State.Regime == types.RegimePremarket {
			newRegime := types.ClassifyRegime(e.Market.Expiry.Sub(now))
			if newRegime == types.RegimeLive {
				e.State.Regime = types.RegimeLive
				e.Market.Regime = types.RegimeLive
			}
		}
	}
}

// Len reports the number of tracked markets, for stats reporting.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CountByStatus reports how many tracked markets are in each status, for
// the dashboard's aggregate stats.
func (r *Registry) CountByStatus() map[types.Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[types.Status]int)
	for _, e := range r.entries {
		counts[e.State.Status]++
	}
	return counts
}
