package cmd

import (
	"fmt"
	"os"

	"github.com/mselser95/polymarket-arb/internal/gateway"
	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/pkg/cache"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// getEnv returns the value of the first set environment variable among
// keys, for debug commands that accept several historical variable names.
func getEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

// buildGateway constructs a Gateway wired the same way internal/app does it,
// for the CLI debug commands that need to place, cancel or list live orders
// outside the supervisor/executor run loop.
func buildGateway(cfg *config.Config, logger *zap.Logger) (*gateway.Gateway, *wallet.Client, error) {
	walletClient, err := wallet.NewClient(cfg.RPCURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create wallet client: %w", err)
	}

	metadataCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create metadata cache: %w", err)
	}
	cachedMetadata := markets.NewCachedMetadataClient(markets.NewMetadataClient(), metadataCache)

	gw, err := gateway.New(gateway.Config{
		APIKey:              cfg.ExchangeAPIKey,
		Secret:              cfg.ExchangeSecret,
		Passphrase:          cfg.ExchangePassphrase,
		PrivateKey:          cfg.PrivateKey,
		ProxyAddress:        cfg.ProxyWallet,
		SignatureType:       cfg.SignatureType,
		CLOBBaseURL:         cfg.ExchangeCLOBURL,
		Metadata:            cachedMetadata,
		WalletClient:        walletClient,
		BalanceFloorEnabled: cfg.BalanceFloorEnabled,
		BalanceFloorUSDC:    decimal.NewFromFloat(cfg.BalanceFloorUSDC),
		Logger:              logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create gateway: %w", err)
	}

	return gw, walletClient, nil
}
