package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mselser95/polymarket-arb/internal/bookcache"
	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var executeArbCmd = &cobra.Command{
	Use:   "execute-arb <market-slug>",
	Short: "Execute a paper arbitrage trade on a specific market",
	Long: `Connects to a BTC up/down market's UP and DOWN orderbooks and reports
a paper arbitrage trade if the crossing condition is met. Useful for testing
arbitrage detection without risking capital.

Example:
  polymarket-arb execute-arb 0x1234...`,
	Args: cobra.ExactArgs(1),
	RunE: runExecuteArb,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(executeArbCmd)
	executeArbCmd.Flags().Float64P("threshold", "t", 0.995, "Arbitrage threshold (price sum must be below this)")
	executeArbCmd.Flags().Float64P("size", "s", 100.0, "Trade size in USD")
	executeArbCmd.Flags().Float64P("fee", "f", 0.01, "Taker fee (0.01 = 1%)")
}

func runExecuteArb(cmd *cobra.Command, args []string) error {
	marketID := args[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	tradeSize, _ := cmd.Flags().GetFloat64("size")
	takerFee, _ := cmd.Flags().GetFloat64("fee")

	fmt.Printf("=== Arbitrage Executor (Paper Mode) ===\n\n")
	fmt.Printf("Market: %s\n", marketID)
	fmt.Printf("Threshold: %.3f\n", threshold)
	fmt.Printf("Trade Size: $%.2f\n", tradeSize)
	fmt.Printf("Taker Fee: %.2f%%\n\n", takerFee*100)

	discoveryClient := discovery.NewClient(cfg.ExchangeGammaURL, cfg.SeriesID, logger)
	candidates, err := discoveryClient.FetchCandidates(ctx)
	if err != nil {
		return fmt.Errorf("fetch candidates: %w", err)
	}

	var market *discovery.Candidate
	for i := range candidates {
		if candidates[i].ID == marketID {
			market = &candidates[i]
			break
		}
	}
	if market == nil {
		return fmt.Errorf("market %q not found among current candidates", marketID)
	}

	fmt.Printf("Question: %s\n", market.Question)
	fmt.Printf("UP Token: %s\n", market.UpToken)
	fmt.Printf("DOWN Token: %s\n\n", market.DownToken)

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

	if err := wsManager.Start(); err != nil {
		return fmt.Errorf("start websocket: %w", err)
	}
	defer wsManager.Close()

	book := bookcache.New(bookcache.Config{
		Logger:         logger,
		MessageChannel: wsManager.MessageChan(),
	})
	defer book.Close()

	if err := wsManager.Subscribe(ctx, []string{string(market.UpToken), string(market.DownToken)}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Println("Subscribed to orderbook. Waiting for prices...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	updates := book.UpdateChan()
	timeout := time.After(30 * time.Second)

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutdown requested")
			return nil

		case <-timeout:
			return fmt.Errorf("timeout waiting for orderbook data")

		case ob, ok := <-updates:
			if !ok {
				return fmt.Errorf("book update channel closed")
			}

			fmt.Printf("[%s] %s update\n", time.Now().Format("15:04:05"), ob.TokenID)

			askUp, okUp := book.BestAsk(types.Token(market.UpToken))
			askDown, okDown := book.BestAsk(types.Token(market.DownToken))
			if !okUp || !okDown {
				continue
			}

			reportArbitrage(askUp.Price, askDown.Price, decimal.NewFromFloat(threshold), decimal.NewFromFloat(tradeSize), decimal.NewFromFloat(takerFee))
			return nil
		}
	}
}

// reportArbitrage prints the crossing check and, if profitable, the paper
// trade breakdown for buying equal UP/DOWN exposure at the current asks.
func reportArbitrage(upAsk, downAsk, threshold, tradeSize, takerFee decimal.Decimal) {
	priceSum := upAsk.Add(downAsk)

	fmt.Println("\n=== Arbitrage Analysis ===")
	fmt.Printf("UP Ask:   %s (you buy at this price)\n", upAsk.StringFixed(4))
	fmt.Printf("DOWN Ask: %s (you buy at this price)\n", downAsk.StringFixed(4))
	fmt.Printf("Price Sum: %s\n", priceSum.StringFixed(4))
	fmt.Printf("Threshold: %s\n\n", threshold.StringFixed(4))

	if priceSum.GreaterThanOrEqual(threshold) {
		fmt.Printf("❌ No arbitrage opportunity (price sum %s >= threshold %s)\n", priceSum.StringFixed(4), threshold.StringFixed(4))
		fmt.Println("\nTip: Try a market with more price inefficiency, or adjust --threshold")
		return
	}

	fmt.Printf("✅ Arbitrage opportunity detected!\n\n")

	shares := tradeSize.Div(priceSum)
	grossProfit := decimal.NewFromInt(1).Sub(priceSum).Mul(shares)
	fees := priceSum.Mul(shares).Mul(takerFee)
	netProfit := grossProfit.Sub(fees)

	fmt.Println("=== Trade Execution (Paper Mode) ===")
	fmt.Printf("Buy UP at Ask:   %s\n", upAsk.StringFixed(4))
	fmt.Printf("Buy DOWN at Ask: %s\n", downAsk.StringFixed(4))
	fmt.Printf("Trade Size: $%s\n\n", tradeSize.StringFixed(2))

	fmt.Println("=== Profit Calculation ===")
	fmt.Printf("Gross Profit: $%s\n", grossProfit.StringFixed(4))
	fmt.Printf("Total Fees:   $%s\n", fees.StringFixed(4))
	fmt.Printf("Net Profit:   $%s\n\n", netProfit.StringFixed(4))

	if netProfit.IsPositive() {
		fmt.Printf("✅ Profitable trade! Net profit: $%s\n\n", netProfit.StringFixed(4))
	} else {
		fmt.Printf("⚠️  WARNING: Net profit is negative after fees!\n")
		fmt.Printf("   This trade would lose money. The market spread is too narrow.\n\n")
	}
}
