package cmd

import (
	"fmt"

	"github.com/mselser95/polymarket-arb/internal/app"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the BTC up/down engine",
	Long: `Starts the engine in the mode selected by ENGINE_MODE, which will:
1. Discover new BTC up/down markets from the Gamma API
2. Subscribe to their orderbooks via WebSocket
3. Market-maker mode: quote both outcome tokens and manage fills per market
4. Arbitrage-taker mode: scan for and aggressively take crossing opportunities`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, &app.Options{})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
