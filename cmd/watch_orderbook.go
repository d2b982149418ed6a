package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchOrderbookCmd = &cobra.Command{
	Use:   "watch-orderbook <market-id>",
	Short: "Watch orderbook updates for a specific market",
	Long: `Connects to the exchange WebSocket and displays real-time orderbook updates
for a specific BTC up/down market's UP and DOWN tokens. Useful for debugging
and understanding market dynamics.

Example:
  polymarket-arb watch-orderbook 0x1234...`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchOrderbook,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchOrderbookCmd)
	watchOrderbookCmd.Flags().BoolP("json", "j", false, "Output raw JSON messages")
}

func runWatchOrderbook(cmd *cobra.Command, args []string) error {
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

	jsonOutput, _ := cmd.Flags().GetBool("json")

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

	fmt.Printf("Market: %s\n", market.Question)
	fmt.Printf("ID: %s\n\n", market.ID)
	fmt.Printf("UP Token ID: %s\n", market.UpToken)
	fmt.Printf("DOWN Token ID: %s\n\n", market.DownToken)

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

	if err := wsManager.Subscribe(ctx, []string{market.UpToken, market.DownToken}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Println("Subscribed! Watching for orderbook updates...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	msgChan := wsManager.MessageChan()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		case msg, ok := <-msgChan:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			if jsonOutput {
				jsonBytes, _ := json.MarshalIndent(msg, "", "  ")
				fmt.Println(string(jsonBytes))
			} else {
				printFormattedMessage(w, msg, market.UpToken, market.DownToken)
			}
		}
	}
}

func printFormattedMessage(w *tabwriter.Writer, msg *types.OrderbookMessage, upTokenID, downTokenID string) {
	regime := "UNKNOWN"
	if msg.AssetID == upTokenID {
		regime = "UP"
	} else if msg.AssetID == downTokenID {
		regime = "DOWN"
	}

	fmt.Fprintf(w, "[%s] %s\t%s\t", time.Now().Format("15:04:05"), regime, msg.EventType)

	if msg.EventType == "book" || msg.EventType == "price_change" {
		bestBid := "N/A"
		bestAsk := "N/A"

		if len(msg.Bids) > 0 {
			bestBid = fmt.Sprintf("%s@%s", msg.Bids[0].Price, msg.Bids[0].Size)
		}

		if len(msg.Asks) > 0 {
			bestAsk = fmt.Sprintf("%s@%s", msg.Asks[0].Price, msg.Asks[0].Size)
		}

		fmt.Fprintf(w, "Bid: %s\tAsk: %s\n", bestBid, bestAsk)
	} else {
		fmt.Fprintf(w, "\n")
	}

	w.Flush()
}
