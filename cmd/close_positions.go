package cmd

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/mselser95/polymarket-arb/internal/gateway"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var closePositionsCmd = &cobra.Command{
	Use:   "close-positions",
	Short: "Close all open positions by selling at the current best bid",
	Long: `Fetches all open positions and places aggressive SELL orders to close them.

This command will:
1. Fetch all your open positions from the Data API
2. Read the current best bid for each position's token via the Gateway
3. Show a summary and ask for confirmation
4. Place SELL orders at the best bid
5. Report results with execution details

Example:
  close-positions              # Close all positions with confirmation
  close-positions --yes        # Skip confirmation (use with caution!)
`,
	RunE: runClosePositions,
}

//nolint:gochecknoglobals // Cobra boilerplate
var skipConfirmation bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(closePositionsCmd)
	closePositionsCmd.Flags().BoolVar(&skipConfirmation, "yes", false, "Skip confirmation prompt")
}

// positionToClose is a wallet position paired with the best-bid sell price
// read from the Gateway.
type positionToClose struct {
	Position  wallet.Position
	SellPrice decimal.Decimal
}

// closeResult is the outcome of closing a single position.
type closeResult struct {
	Position    wallet.Position
	Success     bool
	OrderID     string
	USDReceived decimal.Decimal
	Error       error
}

func runClosePositions(cmd *cobra.Command, args []string) error {
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

	address, err := deriveAddress(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("derive address: %w", err)
	}

	gw, walletClient, err := buildGateway(cfg, logger)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Printf("\n=== Close All Positions ===\n\n")

	fmt.Printf("Fetching open positions...\n")
	positions, err := fetchPositionsToClose(ctx, gw, walletClient, address)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	if len(positions) == 0 {
		fmt.Printf("✅ No open positions to close.\n")
		return nil
	}

	if !skipConfirmation {
		confirmed, err := showConfirmationPrompt(positions)
		if err != nil {
			return fmt.Errorf("confirmation prompt: %w", err)
		}
		if !confirmed {
			fmt.Printf("\n❌ Operation cancelled by user.\n")
			return nil
		}
	}

	fmt.Printf("\n=== Submitting Orders ===\n\n")
	results := submitCloseOrders(ctx, gw, positions)

	reportResults(results)

	return nil
}

// deriveAddress parses a hex private key and returns the EOA address it
// signs for, the same derivation the Gateway performs internally.
func deriveAddress(privateKeyHex string) (string, error) {
	if privateKeyHex == "" {
		return "", errors.New("POLYMARKET_PRIVATE_KEY not set")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return "", errors.New("derive public key from private key")
	}

	return crypto.PubkeyToAddress(*publicKeyECDSA).Hex(), nil
}

// fetchPositionsToClose pulls the account's live positions and reads a
// current sell price for each from the Gateway, skipping any that carry no
// resting bid.
func fetchPositionsToClose(
	ctx context.Context,
	gw *gateway.Gateway,
	walletClient *wallet.Client,
	address string,
) ([]positionToClose, error) {
	positions, err := walletClient.GetPositions(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	toClose := make([]positionToClose, 0, len(positions))
	for _, pos := range positions {
		if pos.TokenID == "" || pos.Size <= 0 {
			continue
		}

		price, err := gw.FetchPrice(ctx, types.Token(pos.TokenID), types.Sell)
		if err != nil || price.IsZero() {
			fmt.Printf("⚠️  Warning: Skipping %s (%s): no sell price available\n", pos.MarketSlug, pos.Outcome)
			continue
		}

		toClose = append(toClose, positionToClose{Position: pos, SellPrice: price})
	}

	return toClose, nil
}

func showConfirmationPrompt(positions []positionToClose) (bool, error) {
	fmt.Printf("Positions to close:\n\n")

	totalProceeds := decimal.Zero
	for i, ptc := range positions {
		proceeds := decimal.NewFromFloat(ptc.Position.Size).Mul(ptc.SellPrice)
		totalProceeds = totalProceeds.Add(proceeds)

		fmt.Printf("[%d] %s (%s)\n", i+1, ptc.Position.MarketSlug, ptc.Position.Outcome)
		fmt.Printf("    %.2f tokens @ $%s = $%s\n",
			ptc.Position.Size, ptc.SellPrice.StringFixed(4), proceeds.StringFixed(2))
	}

	fmt.Printf("\nTotal positions: %d\n", len(positions))
	fmt.Printf("Total estimated proceeds: $%s USDC\n", totalProceeds.StringFixed(2))
	fmt.Printf("\n⚠️  This will place aggressive sell orders. Proceed? [y/N]: ")

	var response string
	_, err := fmt.Scanln(&response)
	if err != nil && err.Error() != "unexpected newline" {
		return false, fmt.Errorf("read input: %w", err)
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}

func submitCloseOrders(ctx context.Context, gw *gateway.Gateway, positions []positionToClose) []closeResult {
	results := make([]closeResult, 0, len(positions))

	for i, ptc := range positions {
		fmt.Printf("[%d/%d] Closing %s (%s)...\n",
			i+1, len(positions), ptc.Position.MarketSlug, ptc.Position.Outcome)

		result := submitSingleCloseOrder(ctx, gw, ptc)
		results = append(results, result)

		if result.Success {
			fmt.Printf("  ✅ Order placed: %s\n", result.OrderID)
		} else {
			fmt.Printf("  ❌ Failed: %v\n", result.Error)
		}
	}

	return results
}

func submitSingleCloseOrder(ctx context.Context, gw *gateway.Gateway, ptc positionToClose) closeResult {
	size := decimal.NewFromFloat(ptc.Position.Size)

	quote, err := gw.PlaceMarketSell(ctx, types.Token(ptc.Position.TokenID), ptc.SellPrice, size)
	if err != nil {
		return closeResult{Position: ptc.Position, Success: false, Error: err}
	}

	return closeResult{
		Position:    ptc.Position,
		Success:     true,
		OrderID:     quote.OrderID,
		USDReceived: quote.Price.Mul(quote.Size),
	}
}

func reportResults(results []closeResult) {
	fmt.Printf("\n=== Execution Summary ===\n\n")

	successCount := 0
	totalUSD := decimal.Zero

	fmt.Printf("Successfully closed:\n")
	for _, r := range results {
		if r.Success {
			successCount++
			totalUSD = totalUSD.Add(r.USDReceived)
			fmt.Printf("✅ %s (%s) - %.2f tokens sold ≈ $%s received\n",
				r.Position.MarketSlug, r.Position.Outcome, r.Position.Size, r.USDReceived.StringFixed(2))
		}
	}

	if successCount < len(results) {
		fmt.Printf("\nFailed:\n")
		for _, r := range results {
			if !r.Success {
				fmt.Printf("❌ %s (%s) - Error: %v\n",
					r.Position.MarketSlug, r.Position.Outcome, r.Error)
			}
		}
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("- Closed: %d/%d positions\n", successCount, len(results))
	fmt.Printf("- Total USDC received: $%s\n", totalUSD.StringFixed(2))

	if successCount < len(results) {
		fmt.Printf("- Errors: %d\n", len(results)-successCount)
	}
}
