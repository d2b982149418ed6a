package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listOrdersCmd = &cobra.Command{
	Use:   "list-orders",
	Short: "List all open orders on Polymarket",
	Long: `List all open orders for the authenticated account.

Shows order details including token, side, price, and size.

Examples:
  # List all open orders
  go run . list-orders`,
	Args: cobra.NoArgs,
	RunE: runListOrders,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listOrdersCmd)
}

func runListOrders(cmd *cobra.Command, args []string) error {
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

	displayListOrdersTable(orders)
	displayListOrdersSummary(orders)

	return nil
}

func displayListOrdersTable(orders []types.OpenOrder) {
	fmt.Println("\n========================================")
	fmt.Println("Open Orders")
	fmt.Println("========================================")
	fmt.Printf("%-14s %-16s %-6s %-10s %-10s\n",
		"Order ID", "Token", "Side", "Price", "Size")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, order := range orders {
		shortID := order.OrderID
		if len(shortID) > 10 {
			shortID = shortID[:10] + "..."
		}

		token := string(order.Token)
		if len(token) > 16 {
			token = token[:13] + "..."
		}

		fmt.Printf("%-14s %-16s %-6s $%-9s %-10s\n",
			shortID, token, order.Side, order.Price.StringFixed(4), order.OriginalSize.Sub(order.SizeFilled).String())
	}
}

func displayListOrdersSummary(orders []types.OpenOrder) {
	buyCount, sellCount := 0, 0
	for _, order := range orders {
		if order.Side == types.Buy {
			buyCount++
		} else {
			sellCount++
		}
	}

	fmt.Println("\n========================================")
	fmt.Println("Summary")
	fmt.Println("========================================")
	fmt.Printf("Total Orders:   %d\n", len(orders))
	fmt.Printf("  BUY:          %d\n", buyCount)
	fmt.Printf("  SELL:         %d\n", sellCount)
	fmt.Printf("Total Locked:   $%s\n", calculateCancelOrdersValue(orders).StringFixed(2))
}
