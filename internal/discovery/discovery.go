// Package discovery polls the Gamma API for BTC up/down markets, filters and
// classifies them, and hands qualifying candidates to the Registry.
package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// admissionWindow is the outer bound on time-to-expiry a candidate must be
// within to be worth tracking at all; beyond it a market isn't even
// PREMARKET yet.
const admissionWindow = 30 * time.Minute

// Service discovers new BTC up/down markets by polling the Gamma API.
type Service struct {
	client       *Client
	pollInterval time.Duration
	logger       *zap.Logger

	mu         sync.RWMutex
	notified   map[string]bool // market IDs already pushed to newMarketsCh
	newMarkets chan *types.Market
}

// Config holds discovery service configuration.
type Config struct {
	Client       *Client
	PollInterval time.Duration
	Logger       *zap.Logger
}

// New creates a new discovery service.
func New(cfg Config) *Service {
	return &Service{
		client:       cfg.Client,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
		notified:     make(map[string]bool),
		newMarkets:   make(chan *types.Market, 100),
	}
}

// Run starts the discovery polling loop; it blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("discovery-service-starting",
		zap.Duration("poll-interval", s.pollInterval))

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	if err := s.poll(ctx); err != nil {
		s.logger.Error("initial-poll-failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("discovery-service-stopping")
			close(s.newMarkets)
			return ctx.Err()
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.logger.Error("poll-failed", zap.Error(err))
			}
		}
	}
}

// poll fetches the current candidate set and pushes any not yet notified.
func (s *Service) poll(ctx context.Context) error {
	start := time.Now()
	defer func() {
		PollDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	candidates, err := s.client.FetchCandidates(ctx)
	if err != nil {
		PollErrorsTotal.Inc()
		return err
	}

	CandidatesDiscoveredTotal.Add(float64(len(candidates)))

	now := time.Now()
	for _, c := range candidates {
		market, ok := s.admit(c, now)
		if !ok {
			continue
		}

		select {
		case s.newMarkets <- market:
			NewMarketsTotal.Inc()
			s.logger.Info("new-market-discovered",
				zap.String("market-id", market.ID),
				zap.String("question", market.Question),
				zap.String("regime", string(market.Regime)))
		default:
			s.logger.Warn("new-markets-channel-full", zap.String("market-id", market.ID))
		}
	}

	s.logger.Debug("poll-complete",
		zap.Int("candidate-count", len(candidates)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// admit applies the 30-minute admission window and the already-notified
// dedup check, returning a classified Market on success.
func (s *Service) admit(c Candidate, now time.Time) (*types.Market, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.notified[c.ID] {
		return nil, false
	}

	timeToExpiry := c.Expiry.Sub(now)
	if timeToExpiry <= 0 {
		return nil, false
	}
	if timeToExpiry > admissionWindow {
		MarketsFilteredByWindowTotal.Inc()
		return nil, false
	}

	market := &types.Market{
		ID:        c.ID,
		Question:  c.Question,
		UpToken:   types.Token(c.UpToken),
		DownToken: types.Token(c.DownToken),
		Expiry:    c.Expiry,
		Regime:    types.ClassifyRegime(timeToExpiry),
	}

	s.notified[c.ID] = true
	return market, true
}

// NewMarketsChan returns the channel of newly discovered, classified
// markets.
func (s *Service) NewMarketsChan() <-chan *types.Market {
	return s.newMarkets
}
