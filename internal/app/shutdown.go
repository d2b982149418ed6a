package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown cancels every component's context and waits for their
// goroutines to exit, in dependency order.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if err := a.book.Close(); err != nil {
		a.logger.Error("bookcache-close-error", zap.Error(err))
	}

	if err := a.wsManager.Close(); err != nil {
		a.logger.Error("websocket-manager-close-error", zap.Error(err))
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}
