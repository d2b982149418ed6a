package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listMarketsCmd = &cobra.Command{
	Use:   "list-markets",
	Short: "List candidate BTC up/down markets from the Gamma API",
	Long:  `Fetches and displays the BTC up/down candidates the Discovery Adapter currently sees, for debugging purposes.`,
	RunE:  runListMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listMarketsCmd)
	listMarketsCmd.Flags().BoolP("verbose", "v", false, "Show UP/DOWN token ids and regime classification")
}

func runListMarkets(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	verbose, _ := cmd.Flags().GetBool("verbose")

	client := discovery.NewClient(cfg.ExchangeGammaURL, cfg.SeriesID, logger)

	fmt.Println("Fetching BTC up/down candidates from the Gamma event series...")

	candidates, err := client.FetchCandidates(ctx)
	if err != nil {
		return fmt.Errorf("fetch candidates: %w", err)
	}

	if len(candidates) == 0 {
		fmt.Println("No BTC up/down candidates found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tQUESTION\tEXPIRY\tREGIME\n")
	fmt.Fprintf(w, "--\t--------\t------\t------\n")

	now := time.Now()
	for _, c := range candidates {
		question := c.Question
		if len(question) > 60 {
			question = question[:57] + "..."
		}

		regime := types.ClassifyRegime(c.Expiry.Sub(now))
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, question, c.Expiry.Format(time.RFC3339), regime)

		if verbose {
			fmt.Fprintf(w, "\tUP Token: %s\n", c.UpToken)
			fmt.Fprintf(w, "\tDOWN Token: %s\n", c.DownToken)
			fmt.Fprintf(w, "\n")
		}
	}

	w.Flush()

	fmt.Printf("\nTotal: %d candidates\n", len(candidates))

	return nil
}
