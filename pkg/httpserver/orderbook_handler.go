package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/mselser95/polymarket-arb/internal/bookcache"
	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// OrderbookHandler serves cached book state for a single tracked market.
type OrderbookHandler struct {
	book     *bookcache.Cache
	registry *registry.Registry
	logger   *zap.Logger
}

// NewOrderbookHandler creates a new orderbook handler.
func NewOrderbookHandler(book *bookcache.Cache, reg *registry.Registry, logger *zap.Logger) *OrderbookHandler {
	return &OrderbookHandler{
		book:     book,
		registry: reg,
		logger:   logger,
	}
}

// TokenBook is the best bid/ask snapshot for one outcome token.
type TokenBook struct {
	TokenID      string  `json:"token_id"`
	BestBidPrice float64 `json:"best_bid_price"`
	BestBidSize  float64 `json:"best_bid_size"`
	BestAskPrice float64 `json:"best_ask_price"`
	BestAskSize  float64 `json:"best_ask_size"`
}

// OrderbookResponse is the HTTP response for a single market's book state.
type OrderbookResponse struct {
	MarketID string    `json:"market_id"`
	Question string    `json:"question"`
	Status   string    `json:"status"`
	Up       TokenBook `json:"up"`
	Down     TokenBook `json:"down"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOrderbook handles GET /api/orderbook?market=<market-id> requests.
func (h *OrderbookHandler) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	marketID := r.URL.Query().Get("market")
	if marketID == "" {
		h.writeError(w, "missing required query parameter: market", http.StatusBadRequest)
		return
	}

	entry, ok := h.registry.Get(marketID)
	if !ok {
		h.writeError(w, "market not tracked", http.StatusNotFound)
		return
	}

	response := OrderbookResponse{
		MarketID: entry.Market.ID,
		Question: entry.Market.Question,
		Status:   string(entry.State.Status),
		Up:       h.tokenBook(entry.State.UpToken),
		Down:     h.tokenBook(entry.State.DownToken),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *OrderbookHandler) tokenBook(token types.Token) TokenBook {
	book, ok := h.book.GetBook(token)
	if !ok {
		return TokenBook{TokenID: string(token)}
	}
	tb := TokenBook{TokenID: string(token)}
	if ask, ok := book.BestAsk(); ok {
		tb.BestAskPrice, _ = ask.Price.Float64()
		tb.BestAskSize, _ = ask.Size.Float64()
	}
	if bid, ok := book.BestBid(); ok {
		tb.BestBidPrice, _ = bid.Price.Float64()
		tb.BestBidSize, _ = bid.Size.Float64()
	}
	return tb
}

// writeError writes a JSON error response.
func (h *OrderbookHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
