package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/mselser95/polymarket-arb/internal/registry"
	"go.uber.org/zap"
)

// MarketsHandler exposes the registry's tracked market set for the
// dashboard.
type MarketsHandler struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewMarketsHandler creates a new markets handler.
func NewMarketsHandler(reg *registry.Registry, logger *zap.Logger) *MarketsHandler {
	return &MarketsHandler{registry: reg, logger: logger}
}

// MarketSummary is one tracked market's current status, for the dashboard.
type MarketSummary struct {
	MarketID string `json:"market_id"`
	Question string `json:"question"`
	Status   string `json:"status"`
	Regime   string `json:"regime"`
}

// HandleMarkets handles GET /api/markets.
func (h *MarketsHandler) HandleMarkets(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.Snapshot()
	out := make([]MarketSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, MarketSummary{
			MarketID: e.Market.ID,
			Question: e.Market.Question,
			Status:   string(e.State.Status),
			Regime:   string(e.State.Regime),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}
