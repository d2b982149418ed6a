package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/polymarket-arb/internal/arbexecutor"
	"github.com/mselser95/polymarket-arb/internal/bookcache"
	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/internal/gateway"
	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/internal/registry"
	"github.com/mselser95/polymarket-arb/internal/statemachine"
	"github.com/mselser95/polymarket-arb/internal/storage"
	"github.com/mselser95/polymarket-arb/internal/supervisor"
	"github.com/mselser95/polymarket-arb/pkg/cache"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/httpserver"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// New constructs every component wired to cfg, but starts nothing.
func New(cfg *config.Config, logger *zap.Logger, _ *Options) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	walletClient, err := wallet.NewClient(cfg.RPCURL, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create wallet client: %w", err)
	}

	metadataCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}
	cachedMetadata := markets.NewCachedMetadataClient(markets.NewMetadataClient(), metadataCache)

	gw, err := gateway.New(gateway.Config{
		APIKey:              cfg.ExchangeAPIKey,
		Secret:              cfg.ExchangeSecret,
		Passphrase:          cfg.ExchangePassphrase,
		PrivateKey:          cfg.PrivateKey,
		Address:             "",
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
		cancel()
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	discoveryClient := discovery.NewClient(cfg.ExchangeGammaURL, cfg.SeriesID, logger)
	discoverySvc := discovery.New(discovery.Config{
		Client:       discoveryClient,
		PollInterval: cfg.DiscoveryPollInterval,
		Logger:       logger,
	})

	wsManager := websocket.New(websocket.Config{
		URL:                   cfg.ExchangeWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		MessageBufferSize:     cfg.WSMessageBufferSize,
		Logger:                logger,
	})

	book := bookcache.New(bookcache.Config{
		Logger:         logger,
		MessageChannel: wsManager.MessageChan(),
	})

	reg := registry.New(logger)

	subs := newSubscriptionAdapter(discoverySvc, wsManager, logger)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		BookCache:     book,
		Registry:      reg,
	})

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	app := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		gw:            gw,
		walletClient:  walletClient,
		discoverySvc:  discoverySvc,
		wsManager:     wsManager,
		book:          book,
		reg:           reg,
		subs:          subs,
		store:         store,
		ctx:           ctx,
		cancel:        cancel,
	}

	app.smConfig = statemachine.DefaultConfig(
		decimal.NewFromFloat(cfg.SharesPerOrder),
		decimal.NewFromFloat(cfg.RequoteDeltaThreshold),
		cfg.VolatilityThreshold,
		time.Duration(cfg.RequoteIntervalMS)*time.Millisecond,
	)
	app.smConfig.ExpiryCutoff = time.Duration(cfg.ExpiryCutoffSeconds) * time.Second

	switch cfg.Mode {
	case "market-maker":
		app.marketMaker = supervisor.New(supervisor.Config{
			Discovery:          subs,
			Registry:           reg,
			Gateway:            gw,
			BookCache:          book,
			StateMachineConfig: app.smConfig,
			Logger:             logger,
			OnSettled:          app.persistSettled,
		})
	case "arbitrage-taker":
		arbCfg := arbexecutor.DefaultConfig()
		arbCfg.MinEdge = decimal.NewFromFloat(cfg.MinEdge)
		arbCfg.ExpiryCutoff = time.Duration(cfg.ExpiryCutoffSeconds) * time.Second
		arbCfg.ScanInterval = time.Duration(cfg.ScanIntervalMS) * time.Millisecond
		arbCfg.MaxShares = decimal.NewFromFloat(cfg.MaxSharesPerTrade)
		app.arbExecutor = arbexecutor.New(gw, book, arbCfg, logger)
		app.arbExecutor.SetOnSuccess(app.persistArbSuccess)
	}

	return app, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageMode {
	case "postgres":
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	case "console":
		return storage.NewConsoleStorage(logger), nil
	default:
		return storage.NewFilesStorage(cfg.DataDir, logger)
	}
}
