package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelOrdersCmd = &cobra.Command{
	Use:   "cancel-orders",
	Short: "Cancel all open orders on Polymarket",
	Long: `Cancel all open orders atomically using the Gateway's /cancel-all endpoint.

Use --dry-run to preview orders without canceling.

Examples:
  # Preview orders without canceling
  go run . cancel-orders --dry-run

  # Cancel all orders immediately
  go run . cancel-orders`,
	Args: cobra.NoArgs,
	RunE: runCancelOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var dryRunFlag bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelOrdersCmd)
	cancelOrdersCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview orders without canceling")
}

func runCancelOrders(cmd *cobra.Command, args []string) error {
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

	gw, _, err := buildGateway(cfg, logger)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders, err := gw.ListOpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	if len(orders) == 0 {
		fmt.Println("No open orders found.")
		return nil
	}

	displayCancelOrdersTable(orders)
	displayCancelOrdersSummary(orders)

	if dryRunFlag {
		fmt.Println("\n[DRY RUN] No orders were canceled.")
		return nil
	}

	fmt.Println("\nCanceling all orders...")
	if err := gw.CancelAll(ctx); err != nil {
		return fmt.Errorf("cancel orders: %w", err)
	}

	fmt.Printf("✅ Canceled %d orders\n", len(orders))
	return nil
}

func displayCancelOrdersTable(orders []types.OpenOrder) {
	fmt.Println("\n========================================")
	fmt.Println("Open Orders")
	fmt.Println("========================================")
	fmt.Printf("%-12s %-16s %-6s %-10s %-10s\n",
		"Order ID", "Token", "Side", "Price", "Size")
	fmt.Println("----------------------------------------")

	for _, order := range orders {
		shortID := order.OrderID
		if len(shortID) > 8 {
			shortID = shortID[:8] + "..."
		}

		token := string(order.Token)
		if len(token) > 16 {
			token = token[:13] + "..."
		}

		fmt.Printf("%-12s %-16s %-6s $%-9s %-10s\n",
			shortID, token, order.Side, order.Price.StringFixed(4), order.OriginalSize.Sub(order.SizeFilled).String())
	}
}

func displayCancelOrdersSummary(orders []types.OpenOrder) {
	fmt.Printf("\nTotal: %d orders, $%s locked\n", len(orders), calculateCancelOrdersValue(orders).StringFixed(2))
}

func calculateCancelOrdersValue(orders []types.OpenOrder) decimal.Decimal {
	total := decimal.Zero
	for _, order := range orders {
		remaining := order.OriginalSize.Sub(order.SizeFilled)
		total = total.Add(order.Price.Mul(remaining))
	}
	return total
}
