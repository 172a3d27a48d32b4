package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"biosonar/internal/client"
	"biosonar/internal/config"
	"biosonar/internal/dashboard"
	"biosonar/internal/handlers"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "biosonar",
		Short: "BenesBörsenBiosonar - technical screening from the terminal",
		Long: `biosonar asks the analysis backend to score a list of tickers and prints
the results as a table, the same way the dashboard shows them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().String("backend", "", "Analysis backend URL (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Request timeout, 0 waits indefinitely (overrides BACKEND_TIMEOUT)")

	return rootCmd
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [SYMBOLS]",
		Short: "Score a comma separated list of tickers",
		Long: `Score a comma separated list of tickers. Without an argument the default
watch list is used.
Example: biosonar analyze "AAPL,MSFT,BTC-USD"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			symbols := dashboard.DefaultSymbols
			if len(args) == 1 {
				symbols = args[0]
			}
			return runAnalyzeCommand(cmd.Context(), cfg, symbols, cmd)
		},
	}
}

// loadConfig reads the environment and applies the command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if url, _ := cmd.Flags().GetString("backend"); url != "" {
		cfg.BackendURL = url
	}
	if cmd.Flags().Changed("timeout") {
		cfg.BackendTimeout, _ = cmd.Flags().GetDuration("timeout")
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", dashboard.Title, handlers.Version)
		},
	}
}

func runAnalyzeCommand(ctx context.Context, cfg *config.Config, symbols string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	policy, err := dashboard.ParsePolicy(cfg.RacePolicy)
	if err != nil {
		return err
	}

	backend := client.NewBackend(cfg.BackendURL, cfg.BackendTimeout)
	board := dashboard.New(backend, dashboard.WithPolicy(policy), dashboard.WithSymbols(symbols))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, DisplayLoading(board.Snapshot()))

	started := time.Now()
	if err := board.RunAnalysis(ctx); err != nil {
		return fmt.Errorf("analysis request to %s failed: %w", backend.BaseURL(), err)
	}

	fmt.Fprintln(out, RenderTable(board.Snapshot(), time.Local))
	fmt.Fprintln(out, DisplayInfo(fmt.Sprintf("%s (%s)", dashboard.Hint, time.Since(started).Round(time.Millisecond))))
	return nil
}
