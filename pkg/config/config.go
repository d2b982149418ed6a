package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// RiskProfile selects one of the two divergent tunable tuples the source
// material carried (see spec.md's Open Questions: MIN_EDGE/EXPIRY_CUTOFF/
// SCAN_INTERVAL had two different values with no documented rationale for
// which was intended). Exposing both as a named, logged choice rather than
// guessing one is the resolution recorded in DESIGN.md.
type RiskProfile string

const (
	RiskProfileConservative RiskProfile = "conservative"
	RiskProfileAggressive   RiskProfile = "aggressive"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Exchange API
	ExchangeWSURL      string
	ExchangeGammaURL   string
	ExchangeCLOBURL    string
	ExchangeAPIKey     string
	ExchangeSecret     string
	ExchangePassphrase string

	// Wallet / signing
	PrivateKey    string
	ProxyWallet   string
	SignatureType int
	RPCURL        string

	// Market Discovery
	DiscoveryPollInterval time.Duration
	SeriesID              string // Gamma /events?series_id=... selector for the BTC up/down family

	// WebSocket
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	// Book cache
	BookFreshnessHorizon time.Duration

	// Risk profile tuple (spec.md Open Question)
	RiskProfile         RiskProfile
	MinEdge             float64
	ExpiryCutoffSeconds int
	ScanIntervalMS      int

	// Operating mode: "market-maker" or "arbitrage-taker"
	Mode string

	// Market-maker tunables
	RequoteIntervalMS     int
	SharesPerOrder        float64
	VolatilityThreshold   float64
	RequoteDeltaThreshold float64 // minimum price change to replace an existing quote

	// Arbitrage-taker tunables
	MaxSharesPerTrade float64

	// Balance floor safety check (Sec 12's narrowed circuit breaker)
	BalanceFloorEnabled bool
	BalanceFloorUSDC    float64

	// Storage
	StorageMode  string // "postgres", "console", or "files"
	DataDir      string
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	profile := RiskProfile(getEnvOrDefault("RISK_PROFILE", string(RiskProfileConservative)))

	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("PORT", "8080"),

		ExchangeWSURL:      getEnvOrDefault("EXCHANGE_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		ExchangeGammaURL:   getEnvOrDefault("EXCHANGE_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		ExchangeCLOBURL:    getEnvOrDefault("EXCHANGE_CLOB_API_URL", "https://clob.polymarket.com"),
		ExchangeAPIKey:     os.Getenv("POLYMARKET_API_KEY"),
		ExchangeSecret:     os.Getenv("POLYMARKET_SECRET"),
		ExchangePassphrase: os.Getenv("POLYMARKET_PASSPHRASE"),

		PrivateKey:    os.Getenv("POLYMARKET_PRIVATE_KEY"),
		ProxyWallet:   os.Getenv("POLYMARKET_PROXY_WALLET"),
		SignatureType: getIntOrDefault("POLYMARKET_SIGNATURE_TYPE", 0),
		RPCURL:        getEnvOrDefault("POLYGON_RPC_URL", "https://polygon-rpc.com"),

		DiscoveryPollInterval: getDurationOrDefault("DISCOVERY_POLL_INTERVAL", 10*time.Second),
		SeriesID:              getEnvOrDefault("BTC_UPDOWN_SERIES_ID", ""),

		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 2*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 10000),

		BookFreshnessHorizon: getDurationOrDefault("BOOK_FRESHNESS_HORIZON", 5*time.Second),

		RiskProfile: profile,

		Mode: getEnvOrDefault("ENGINE_MODE", "market-maker"),

		RequoteIntervalMS:     getIntOrDefault("REQUOTE_INTERVAL_MS", 2000),
		SharesPerOrder:        getFloat64OrDefault("SHARES_PER_ORDER", 5.0),
		VolatilityThreshold:   getFloat64OrDefault("VOLATILITY_THRESHOLD", 0.80),
		RequoteDeltaThreshold: getFloat64OrDefault("REQUOTE_DELTA_THRESHOLD", 0.005),

		MaxSharesPerTrade: getFloat64OrDefault("MAX_SHARES_PER_TRADE", 100.0),

		BalanceFloorEnabled: getBoolOrDefault("BALANCE_FLOOR_ENABLED", true),
		BalanceFloorUSDC:    getFloat64OrDefault("BALANCE_FLOOR_USDC", 5.0),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "files"),
		DataDir:      getEnvOrDefault("DATA_DIR", "data"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "polymarket"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "polymarket123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "polymarket_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	applyRiskProfileDefaults(cfg, profile)

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyRiskProfileDefaults resolves MIN_EDGE / EXPIRY_CUTOFF_SECONDS /
// SCAN_INTERVAL_MS from the selected risk profile unless the operator set
// them explicitly via env vars, in which case the explicit value wins.
func applyRiskProfileDefaults(cfg *Config, profile RiskProfile) {
	minEdge, cutoff, scanMS := 0.005, 60, 100
	if profile == RiskProfileAggressive {
		minEdge, cutoff, scanMS = 0.02, 120, 300
	}

	cfg.MinEdge = getFloat64OrDefault("MIN_EDGE", minEdge)
	cfg.ExpiryCutoffSeconds = getIntOrDefault("EXPIRY_CUTOFF_SECONDS", cutoff)
	cfg.ScanIntervalMS = getIntOrDefault("SCAN_INTERVAL_MS", scanMS)
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() (err error) {
	if c.HTTPPort == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.ExchangeWSURL == "" {
		return errors.New("EXCHANGE_WS_URL cannot be empty")
	}
	if c.ExchangeGammaURL == "" {
		return errors.New("EXCHANGE_GAMMA_API_URL cannot be empty")
	}
	if c.Mode != "market-maker" && c.Mode != "arbitrage-taker" {
		return fmt.Errorf("ENGINE_MODE must be 'market-maker' or 'arbitrage-taker', got %q", c.Mode)
	}
	if c.MinEdge <= 0 {
		return fmt.Errorf("MIN_EDGE must be positive, got %f", c.MinEdge)
	}
	if c.ExpiryCutoffSeconds <= 0 {
		return fmt.Errorf("EXPIRY_CUTOFF_SECONDS must be positive, got %d", c.ExpiryCutoffSeconds)
	}
	if c.ScanIntervalMS <= 0 {
		return fmt.Errorf("SCAN_INTERVAL_MS must be positive, got %d", c.ScanIntervalMS)
	}
	if c.RequoteIntervalMS <= 0 {
		return fmt.Errorf("REQUOTE_INTERVAL_MS must be positive, got %d", c.RequoteIntervalMS)
	}
	if c.SharesPerOrder <= 0 {
		return fmt.Errorf("SHARES_PER_ORDER must be positive, got %f", c.SharesPerOrder)
	}
	if c.VolatilityThreshold <= 0 || c.VolatilityThreshold > 1 {
		return fmt.Errorf("VOLATILITY_THRESHOLD must be in (0, 1], got %f", c.VolatilityThreshold)
	}
	if c.StorageMode != "postgres" && c.StorageMode != "console" && c.StorageMode != "files" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres', 'console', or 'files', got %q", c.StorageMode)
	}
	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}
