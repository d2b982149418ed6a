package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/internal/bookcache"
	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

func newTestBookCache(logger *zap.Logger) *bookcache.Cache {
	msgChan := make(chan *types.OrderbookMessage)
	return bookcache.New(bookcache.Config{Logger: logger, MessageChannel: msgChan})
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	tests := []struct {
		name      string
		cfg       *Config
		wantPanic bool
	}{
		{
			name: "valid_config_minimal",
			cfg: &Config{
				Port:          "8080",
				Logger:        logger,
				HealthChecker: healthChecker,
			},
			wantPanic: false,
		},
		{
			name: "valid_config_with_book_and_registry",
			cfg: &Config{
				Port:          "8080",
				Logger:        logger,
				HealthChecker: healthChecker,
				BookCache:     newTestBookCache(logger),
				Registry:      registry.New(logger),
			},
			wantPanic: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if (r != nil) != tt.wantPanic {
					t.Errorf("New() panic = %v, wantPanic %v", r, tt.wantPanic)
				}
			}()

			server := New(tt.cfg)
			if server == nil {
				t.Error("New() returned nil server")
			}
			if server.server == nil {
				t.Error("New() server.server is nil")
			}
			if server.logger != tt.cfg.Logger {
				t.Error("New() logger not set correctly")
			}
			if server.healthChecker != tt.cfg.HealthChecker {
				t.Error("New() healthChecker not set correctly")
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{name: "ready_when_set", setReady: true, expectedStatus: http.StatusOK},
		{name: "not_ready_initially", setReady: false, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tt.setReady {
				hc.SetReady(true)
			}

			cfg := &Config{Port: "0", Logger: logger, HealthChecker: hc}
			server := New(cfg)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Ready endpoint status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{Port: "0", Logger: logger, HealthChecker: healthChecker}
	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		t.Error("Metrics endpoint missing Content-Type header")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics response body: %v", err)
	}
	if len(body) == 0 {
		t.Error("Metrics endpoint returned empty body")
	}
}

func testServerWithComponents(logger *zap.Logger, healthChecker *healthprobe.HealthChecker) *Server {
	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
		BookCache:     newTestBookCache(logger),
		Registry:      registry.New(logger),
	}
	return New(cfg)
}

func TestOrderbookHandler_MarketNotFound(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	server := testServerWithComponents(logger, healthChecker)

	req := httptest.NewRequest(http.MethodGet, "/api/orderbook?market=non-existent-market", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Market not found status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("Error response missing error message")
	}
}

func TestOrderbookHandler_MissingMarket(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	server := testServerWithComponents(logger, healthChecker)

	req := httptest.NewRequest(http.MethodGet, "/api/orderbook", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Missing market status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("Error response missing error message")
	}
}

func TestOrderbookHandler_MethodNotAllowed(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	server := testServerWithComponents(logger, healthChecker)

	req := httptest.NewRequest(http.MethodPost, "/api/orderbook?market=test-market", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Method not allowed status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestOrderbookHandler_ReturnsTrackedMarket(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	reg := registry.New(logger)
	reg.Admit(&types.Market{
		ID: "m1", Question: "q", UpToken: "m1-up", DownToken: "m1-down",
		Expiry: time.Now().Add(10 * time.Minute), Regime: types.RegimeLive,
	})

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
		BookCache:     newTestBookCache(logger),
		Registry:      reg,
	}
	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/orderbook?market=m1", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out OrderbookResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.MarketID != "m1" {
		t.Errorf("MarketID = %q, want %q", out.MarketID, "m1")
	}
}

func TestMarketsEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	reg := registry.New(logger)
	reg.Admit(&types.Market{
		ID: "m1", Question: "q", UpToken: "m1-up", DownToken: "m1-down",
		Expiry: time.Now().Add(10 * time.Minute), Regime: types.RegimeLive,
	})

	cfg := &Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthChecker,
		BookCache:     newTestBookCache(logger),
		Registry:      reg,
	}
	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out []MarketSummary
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 || out[0].MarketID != "m1" {
		t.Errorf("unexpected markets list: %+v", out)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{Port: "0", Logger: logger, HealthChecker: healthChecker}
	server := New(cfg)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestServer_Timeouts(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{Port: "8080", Logger: logger, HealthChecker: healthChecker}
	server := New(cfg)

	if server.server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want %v", server.server.ReadTimeout, 15*time.Second)
	}
	if server.server.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want %v", server.server.ReadHeaderTimeout, 10*time.Second)
	}
	if server.server.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want %v", server.server.WriteTimeout, 15*time.Second)
	}
	if server.server.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want %v", server.server.IdleTimeout, 60*time.Second)
	}
}

func TestServer_RouteNotFound(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{Port: "0", Logger: logger, HealthChecker: healthChecker}
	server := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Non-existent route status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestOrderbookEndpoint_OnlyWithComponents(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	tests := []struct {
		name           string
		includeBook    bool
		includeReg     bool
		expectEndpoint bool
	}{
		{name: "both_components_provided", includeBook: true, includeReg: true, expectEndpoint: true},
		{name: "missing_book", includeBook: false, includeReg: true, expectEndpoint: false},
		{name: "missing_registry", includeBook: true, includeReg: false, expectEndpoint: false},
		{name: "missing_both", includeBook: false, includeReg: false, expectEndpoint: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Port: "0", Logger: logger, HealthChecker: healthChecker}

			if tt.includeBook {
				cfg.BookCache = newTestBookCache(logger)
			}
			if tt.includeReg {
				cfg.Registry = registry.New(logger)
			}

			server := New(cfg)

			req := httptest.NewRequest(http.MethodGet, "/api/orderbook?market=test", nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if tt.expectEndpoint {
				if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusBadRequest {
					t.Errorf("Expected endpoint status 404 or 400, got %d", resp.StatusCode)
				}
			} else {
				if resp.StatusCode != http.StatusNotFound {
					t.Errorf("Expected route not found status %d, got %d", http.StatusNotFound, resp.StatusCode)
				}
			}
		})
	}
}
