package statemachine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds every tunable the per-market state machine needs. Timeouts
// and poll intervals are configurable (rather than hardcoded constants) so
// tests can run the full one-sided-recovery protocol in milliseconds
// instead of the real 30s spec.md bounds.
type Config struct {
	SharesPerOrder        decimal.Decimal
	RequoteDeltaThreshold decimal.Decimal
	VolatilityThreshold   float64

	RequoteInterval      time.Duration
	ExpiryCutoff         time.Duration // spec.md Sec 4.4: 60s before expiry
	RequoteBlackout      time.Duration // spec.md Sec 4.4: 5 minutes, stop requoting
	BookFreshnessHorizon time.Duration // spec.md Sec 4.1: 5s

	AggressiveWaitTimeout   time.Duration // 30s
	AggressivePollInterval  time.Duration // 1s
	PriceImprovementTimeout time.Duration // 30s
	PriceImprovementPoll    time.Duration // 2s
	CutLossMaxAttempts      int           // 3
	CutLossRetryInterval    time.Duration // ~4s
	SettlementDelay         time.Duration // 1.5s, unused by the bounded-retry loop directly
}

// DefaultConfig returns the spec.md-literal tunables (real-time durations).
// Production wiring uses this; tests override the timing fields with
// millisecond-scale values via DefaultConfig() mutation.
func DefaultConfig(sharesPerOrder, requoteDelta decimal.Decimal, volatilityThreshold float64, requoteInterval time.Duration) Config {
	return Config{
		SharesPerOrder:        sharesPerOrder,
		RequoteDeltaThreshold: requoteDelta,
		VolatilityThreshold:   volatilityThreshold,

		RequoteInterval:      requoteInterval,
		ExpiryCutoff:         60 * time.Second,
		RequoteBlackout:      5 * time.Minute,
		BookFreshnessHorizon: 5 * time.Second,

		AggressiveWaitTimeout:   30 * time.Second,
		AggressivePollInterval:  1 * time.Second,
		PriceImprovementTimeout: 30 * time.Second,
		PriceImprovementPoll:    2 * time.Second,
		CutLossMaxAttempts:      3,
		CutLossRetryInterval:    4 * time.Second,
		SettlementDelay:         1500 * time.Millisecond,
	}
}
