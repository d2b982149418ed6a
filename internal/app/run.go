package app

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts every component and blocks until a shutdown signal arrives.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("mode", a.cfg.Mode),
		zap.String("risk-profile", string(a.cfg.RiskProfile)),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	if err := a.wsManager.Start(); err != nil {
		return err
	}

	if err := a.book.Start(a.ctx); err != nil {
		return err
	}

	switch a.cfg.Mode {
	case "market-maker":
		a.wg.Add(1)
		go a.runMarketMaker()
	case "arbitrage-taker":
		a.wg.Add(1)
		go a.runDiscoveryOnly()
		a.wg.Add(1)
		go a.runArbExecutor()
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runMarketMaker() {
	defer a.wg.Done()
	if err := a.marketMaker.Run(a.ctx); err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("supervisor-error", zap.Error(err))
	}
}

// runDiscoveryOnly drives the subscription adapter (discovery + websocket
// subscribe) directly in arbitrage-taker mode, since there is no
// Supervisor consuming its output channel there — the executor scans the
// registry, which this loop populates via Admit.
func (a *App) runDiscoveryOnly() {
	defer a.wg.Done()
	go func() {
		for {
			select {
			case <-a.ctx.Done():
				return
			case market, ok := <-a.subs.NewMarketsChan():
				if !ok {
					return
				}
				a.reg.Admit(market)
			}
		}
	}()
	if err := a.subs.Run(a.ctx); err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("discovery-error", zap.Error(err))
	}
}

func (a *App) runArbExecutor() {
	defer a.wg.Done()
	if err := a.arbExecutor.Run(a.ctx, a.reg); err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("arbexecutor-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
