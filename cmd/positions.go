package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Display current wallet positions with a value-based win/loss status",
	Long: `Fetches positions from the Data API and classifies each one by its
value-to-size ratio: near size means WIN, near zero means LOSS, anywhere
in between is still ACTIVE.

Examples:
  go run . positions
  go run . positions --format json
  go run . positions --sort-by-pnl`,
	RunE: runPositions,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	positionsFormat    string
	positionsSortByPnL bool
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().StringVar(&positionsFormat, "format", "table", "Output format: table, json, csv")
	positionsCmd.Flags().BoolVar(&positionsSortByPnL, "sort-by-pnl", false, "Sort positions by P&L (highest first)")
}

// classifiedPosition is a wallet.Position plus the value-ratio status
// classification this command derives from it.
type classifiedPosition struct {
	wallet.Position
	Status string // "ACTIVE", "WIN", "LOSS", "UNKNOWN"
}

func runPositions(cmd *cobra.Command, args []string) error {
	validFormats := map[string]bool{"table": true, "json": true, "csv": true}
	if !validFormats[positionsFormat] {
		return fmt.Errorf("invalid format: %s (valid: table, json, csv)", positionsFormat)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		return fmt.Errorf("POLYMARKET_PRIVATE_KEY not set in environment")
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	walletClient, err := wallet.NewClient("https://polygon-rpc.com", logger)
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	positions, err := walletClient.GetPositions(context.Background(), address.Hex())
	if err != nil {
		return fmt.Errorf("get positions: %w", err)
	}
	if len(positions) == 0 {
		fmt.Println("No positions found")
		return nil
	}

	classified := make([]classifiedPosition, len(positions))
	for i, p := range positions {
		classified[i] = classifiedPosition{Position: p, Status: classifyPosition(p)}
	}

	if positionsSortByPnL {
		sort.Slice(classified, func(i, j int) bool {
			return classified[i].CashPnL > classified[j].CashPnL
		})
	} else {
		sort.Slice(classified, func(i, j int) bool {
			return classified[i].MarketSlug < classified[j].MarketSlug
		})
	}

	switch positionsFormat {
	case "json":
		return printPositionsJSON(classified)
	case "csv":
		return printPositionsCSV(classified)
	default:
		printPositionsTable(classified)
		return nil
	}
}

func classifyPosition(p wallet.Position) string {
	if p.Size == 0 {
		return "UNKNOWN"
	}
	ratio := p.Value / p.Size
	switch {
	case ratio >= 0.95:
		return "WIN"
	case ratio <= 0.05:
		return "LOSS"
	default:
		return "ACTIVE"
	}
}

func printPositionsTable(positions []classifiedPosition) {
	var totalValue, totalCost, totalPnL float64

	fmt.Printf("Positions (%d)\n", len(positions))
	fmt.Println("--------------------------------------------------------------------------------")
	for _, p := range positions {
		fmt.Printf("[%s] %s (%s)\n", p.Status, p.MarketSlug, p.Outcome)
		fmt.Printf("   Size: %.2f  Value: $%.2f  Cost: $%.2f  P&L: $%.2f (%.1f%%)\n",
			p.Size, p.Value, p.InitialValue, p.CashPnL, p.PercentPnL)
		totalValue += p.Value
		totalCost += p.InitialValue
		totalPnL += p.CashPnL
	}
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Printf("Total: Value $%.2f  Cost $%.2f  P&L $%.2f\n", totalValue, totalCost, totalPnL)
}

func printPositionsJSON(positions []classifiedPosition) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(positions); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func printPositionsCSV(positions []classifiedPosition) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"status", "market_slug", "outcome", "token_id", "size", "value", "cost", "pnl", "pnl_pct"}); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, p := range positions {
		row := []string{
			p.Status, p.MarketSlug, p.Outcome, p.TokenID,
			fmt.Sprintf("%.2f", p.Size),
			fmt.Sprintf("%.2f", p.Value),
			fmt.Sprintf("%.2f", p.InitialValue),
			fmt.Sprintf("%.2f", p.CashPnL),
			fmt.Sprintf("%.2f", p.PercentPnL),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	return nil
}
