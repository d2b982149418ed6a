package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var placeOrdersCmd = &cobra.Command{
	Use:   "place-orders <market-id>",
	Short: "Place a UP + DOWN limit buy pair for a market",
	Long: `Places both UP and DOWN limit buy orders simultaneously through the
Gateway, the same EIP-712 signing and tick-grid snapping path the engine's
own quoting and recovery logic uses.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlaceOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	upPrice   float64
	downPrice float64
	orderSize float64
	dryRun    bool
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(placeOrdersCmd)

	placeOrdersCmd.Flags().Float64VarP(&upPrice, "up-price", "u", 0.50, "UP order price")
	placeOrdersCmd.Flags().Float64VarP(&downPrice, "down-price", "n", 0.50, "DOWN order price")
	placeOrdersCmd.Flags().Float64VarP(&orderSize, "size", "s", 1.0, "Order size in shares")
	placeOrdersCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "Resolve the market and print what would be sent without submitting")
}

func runPlaceOrders(cmd *cobra.Command, args []string) error {
	marketID := args[0]

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: .env file not found\n")
	}

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

	fmt.Printf("=== UP/DOWN Order Placement ===\n\n")
	fmt.Printf("Market: %s\n", marketID)
	fmt.Printf("Order Size: %.2f shares\n", orderSize)
	fmt.Printf("UP Price: %.4f\n", upPrice)
	fmt.Printf("DOWN Price: %.4f\n", downPrice)
	fmt.Printf("Mode: %s\n\n", map[bool]string{true: "DRY RUN", false: "LIVE"}[dryRun])

	fmt.Printf("Fetching market details...\n")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

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

	fmt.Printf("\nQuestion: %s\n", market.Question)
	fmt.Printf("UP Token: %s\n", market.UpToken)
	fmt.Printf("DOWN Token: %s\n\n", market.DownToken)

	size := decimal.NewFromFloat(orderSize)
	up := decimal.NewFromFloat(upPrice)
	down := decimal.NewFromFloat(downPrice)

	if dryRun {
		fmt.Printf("=== DRY RUN ===\n\n")
		fmt.Printf("Would place UP buy:   %s shares @ %s\n", size.String(), up.StringFixed(4))
		fmt.Printf("Would place DOWN buy: %s shares @ %s\n", size.String(), down.StringFixed(4))
		fmt.Printf("\nRe-run without --dry-run to submit via the Gateway.\n")
		return nil
	}

	gw, _, err := buildGateway(cfg, logger)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	fmt.Printf("=== Submitting UP Order ===\n\n")
	upQuote, err := gw.PlaceLimitBuy(ctx, types.Token(market.UpToken), up, size)
	if err != nil {
		fmt.Printf("❌ UP order failed: %v\n\n", err)
	} else {
		fmt.Printf("✅ UP order placed: %s @ %s (%s shares)\n\n", upQuote.OrderID, upQuote.Price.StringFixed(4), upQuote.Size.String())
	}

	fmt.Printf("=== Submitting DOWN Order ===\n\n")
	downQuote, err := gw.PlaceLimitBuy(ctx, types.Token(market.DownToken), down, size)
	if err != nil {
		fmt.Printf("❌ DOWN order failed: %v\n\n", err)
	} else {
		fmt.Printf("✅ DOWN order placed: %s @ %s (%s shares)\n\n", downQuote.OrderID, downQuote.Price.StringFixed(4), downQuote.Size.String())
	}

	return nil
}
