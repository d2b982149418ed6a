package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check your wallet balances and positions",
	Long: `Display your current holdings including:
- MATIC balance (for gas)
- USDC balance (for trading)
- USDC allowance (approved to CTF Exchange)
- Active positions (UP/DOWN outcome tokens you hold)`,
	RunE: runBalance,
}

var (
	showPositions bool
	balanceRPC    string
)

func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().BoolVarP(&showPositions, "positions", "p", true, "Show active positions")
	balanceCmd.Flags().StringVarP(&balanceRPC, "rpc", "r", "https://polygon-rpc.com", "Polygon RPC endpoint")
}

func runBalance(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("=== Wallet Balance Sheet ===\n\n")
	fmt.Printf("Address: %s\n\n", address)

	walletClient, err := wallet.NewClient(balanceRPC, logger)
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balances, err := walletClient.GetBalances(ctx, common.HexToAddress(address))
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	maticFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.MATIC), big.NewFloat(1e18))
	fmt.Printf("MATIC Balance: %s MATIC\n", maticFloat.Text('f', 6))

	usdcFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.USDC), big.NewFloat(1e6))
	fmt.Printf("USDC Balance: %s USDC\n", usdcFloat.Text('f', 2))

	allowanceFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.USDCAllowance), big.NewFloat(1e6))
	if balances.USDCAllowance.Cmp(big.NewInt(0).SetUint64(1e18)) > 0 {
		fmt.Printf("USDC Allowance: Unlimited ✅\n")
	} else {
		fmt.Printf("USDC Allowance: %s USDC\n", allowanceFloat.Text('f', 2))
	}

	if showPositions {
		fmt.Printf("\n=== Active Positions ===\n\n")
		positions, err := walletClient.GetPositions(ctx, address)
		if err != nil {
			fmt.Printf("Error fetching positions: %v\n", err)
		} else if len(positions) == 0 {
			fmt.Printf("No active positions\n")
		} else {
			totalValue := 0.0
			for _, pos := range positions {
				fmt.Printf("Market: %s\n", pos.MarketSlug)
				fmt.Printf("  Outcome: %s\n", pos.Outcome)
				fmt.Printf("  Size: %.2f tokens\n", pos.Size)
				fmt.Printf("  Value: $%.2f\n\n", pos.Value)
				totalValue += pos.Value
			}
			fmt.Printf("Total Position Value: $%.2f\n", totalValue)
		}
	}

	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Ready to trade: ")
	if balances.USDC.Cmp(big.NewInt(1000000)) >= 0 && balances.USDCAllowance.Cmp(big.NewInt(0)) > 0 {
		fmt.Printf("✅ YES\n")
		fmt.Printf("\nYou can place orders:\n")
		fmt.Printf("  go run . place-orders <market-id> --size 1.0 --up-price 0.50 --down-price 0.50\n")
	} else {
		fmt.Printf("❌ NO\n")
		if balances.USDC.Cmp(big.NewInt(1000000)) < 0 {
			fmt.Printf("  - Need more USDC (minimum $1.00)\n")
		}
		if balances.USDCAllowance.Cmp(big.NewInt(0)) == 0 {
			fmt.Printf("  - Need to approve USDC spending: go run . approve\n")
		}
	}

	return nil
}
