package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/config"
	"github.com/costlens/costlens-cli/internal/debug"
	"github.com/costlens/costlens-cli/internal/dryrun"
	"github.com/costlens/costlens-cli/internal/outfmt"
)

// rootFlags holds global CLI flags
type rootFlags struct {
	Output  string
	JSON    bool
	Query   string
	Debug   bool
	Timeout time.Duration
	APIURL  string
	DryRun  bool
}

// flags holds the global command flags. This is package-level mutable state
// that MUST be reset at the start of every Execute() call. Tests depend on
// this reset to get clean state; any code that reads flags outside of a
// command's RunE is reading stale data from the previous Execute() call.
var flags = rootFlags{Output: defaultOutput()}

// logger is rebuilt by PersistentPreRunE from --debug.
var logger = zerolog.Nop()

func defaultOutput() string {
	value := strings.TrimSpace(os.Getenv(config.EnvOutput))
	if value != "" {
		return strings.ToLower(value)
	}
	return "text"
}

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	// Load <config dir>/.env before the flag reset so env-driven defaults
	// such as COSTLENS_OUTPUT see its values.
	config.LoadEnvFile()

	flags = rootFlags{Output: defaultOutput()}
	logger = zerolog.Nop()

	root := &cobra.Command{
		Use:           "costlens",
		Short:         "CLI for the CostLens LLM cost-tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if flags.JSON {
				if flagOrAliasChanged(cmd, "output") && flags.Output != "json" {
					return fmt.Errorf("--json conflicts with --output %s", flags.Output)
				}
				flags.Output = "json"
			}

			mode, err := outfmt.Parse(flags.Output)
			if err != nil {
				return err
			}
			if flags.Query != "" && mode == outfmt.Text {
				if flagOrAliasChanged(cmd, "output") {
					return fmt.Errorf("--query requires --output json or jsonl (or --json)")
				}
				mode = outfmt.JSON
			}
			ctx = outfmt.WithMode(ctx, mode)
			if flags.Query != "" {
				ctx = outfmt.WithQuery(ctx, flags.Query)
			}

			if flags.Timeout < 0 {
				return fmt.Errorf("--timeout must be >= 0")
			}

			logger = debug.SetupLogger(flags.Debug)
			ctx = debug.WithDebug(ctx, flags.Debug)
			ctx = dryrun.WithDryRun(ctx, flags.DryRun)

			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)
	root.PersistentFlags().StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json|jsonl (env COSTLENS_OUTPUT)")
	root.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	root.PersistentFlags().StringVarP(&flags.Query, "query", "q", "", "JQ expression to filter JSON output")
	root.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().DurationVar(&flags.Timeout, "timeout", 0, "HTTP request timeout (e.g., 30s, 2m; env COSTLENS_TIMEOUT)")
	root.PersistentFlags().StringVar(&flags.APIURL, "api-url", "", "API base URL (env COSTLENS_API_URL)")
	root.PersistentFlags().BoolVar(&flags.DryRun, "dry-run", false, "Preview create and delete requests without sending them")

	flagAlias(root.PersistentFlags(), "output", "out")
	flagAlias(root.PersistentFlags(), "query", "jq")
	flagAlias(root.PersistentFlags(), "debug", "dbg")
	flagAlias(root.PersistentFlags(), "timeout", "to")

	root.AddCommand(newAuthCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newDashboardCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newLogsCmd())
	root.AddCommand(newTagsCmd())
	root.AddCommand(newBudgetsCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newWebhooksCmd())
	root.AddCommand(newAnomaliesCmd())
	root.AddCommand(newRecommendationsCmd())
	root.AddCommand(newHeatmapCmd())
	root.AddCommand(newCompareCmd())
	root.AddCommand(newForecastCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newVersionCmd())

	if _, err := root.ExecuteC(); err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), err)
		}
		return err
	}
	return nil
}
