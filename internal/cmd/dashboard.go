package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/outfmt"
	"github.com/costlens/costlens-cli/internal/poll"
)

const defaultWatchInterval = 30 * time.Second

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash", "db"},
		Short:   "Show stats, budgets and anomalies together",
		Long:    "Loads stats, budgets and anomalies in parallel. A section that fails to load is shown empty with a warning; the rest still render.",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			dash, err := client.LoadDashboard(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, dashboardPayload(dash))
			}
			writeDashboard(cmd, dash)
			return nil
		}),
	}
}

// dashboardPayload adds the names of failed sections to the JSON form.
func dashboardPayload(d *api.Dashboard) map[string]any {
	unavailable := make([]string, 0, len(d.Errors))
	for name := range d.Errors {
		unavailable = append(unavailable, name)
	}
	sort.Strings(unavailable)
	return map[string]any{
		"stats":       d.Stats,
		"budgets":     d.Budgets,
		"anomalies":   d.Anomalies,
		"unavailable": unavailable,
	}
}

func writeDashboard(cmd *cobra.Command, d *api.Dashboard) {
	out := cmd.OutOrStdout()
	warnIfFailed(out, d, "stats")
	writeStats(out, &d.Stats)
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprintln(out, outfmt.Title("Budgets"))
	warnIfFailed(out, d, "budgets")
	writeBudgetBars(out, d.Budgets)
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprintln(out, outfmt.Title("Anomalies"))
	warnIfFailed(out, d, "anomalies")
	if len(d.Anomalies) == 0 {
		_, _ = fmt.Fprintln(out, "None detected.")
		return
	}
	writeAnomalies(cmd, d.Anomalies)
}

func warnIfFailed(w io.Writer, d *api.Dashboard, section string) {
	if err, ok := d.Errors[section]; ok {
		_, _ = fmt.Fprintln(w, outfmt.Warn(fmt.Sprintf("! %s unavailable: %s", section, api.UserMessage(err))))
	}
}

func writeBudgetBars(w io.Writer, budgets []api.Budget) {
	if len(budgets) == 0 {
		_, _ = fmt.Fprintln(w, "No budgets configured.")
		return
	}
	for _, b := range budgets {
		_, _ = fmt.Fprintf(w, "%-20s %s  %s / %s\n",
			b.Name,
			outfmt.UsageBar(b.UsedPercent(), 20),
			outfmt.USD(b.SpentUSD),
			outfmt.USD(b.LimitUSD),
		)
	}
}

func newWatchCmd() *cobra.Command {
	var (
		interval time.Duration
		count    int
	)

	cmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"w"},
		Short:   "Refresh the dashboard on an interval",
		Long:    "Polls the dashboard at a fixed interval until interrupted. Failed refreshes are logged and polling continues. If the session expires the watch stops.",
		Example: `  costlens watch
  costlens watch --interval 10s
  costlens watch --json --count 3`,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be greater than 0")
			}
			if count < 0 {
				return fmt.Errorf("--count must be >= 0")
			}

			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			var expired atomic.Bool
			errOut := cmd.ErrOrStderr()
			client.Session.OnClear(func() {
				expired.Store(true)
				_, _ = fmt.Fprintln(errOut, "Signed out. Run 'costlens auth login' to sign in again.")
				cancel()
			})

			if !isJSON(cmd) {
				_, _ = fmt.Fprintf(errOut, "Watching dashboard (interval: %s, press Ctrl+C to stop)...\n\n", interval)
			}

			refreshes := 0
			poller := poll.New(poll.WithLogger(logger))
			err = poll.Watch(ctx, poller, interval, client.LoadDashboard, func(d *api.Dashboard) {
				renderWatchFrame(cmd, d)
				refreshes++
				if count > 0 && refreshes >= count {
					cancel()
				}
			})
			if err != nil {
				return err
			}

			<-ctx.Done()
			poller.Wait()
			poller.Stop()

			if expired.Load() {
				return &api.SessionExpiredError{}
			}
			if !isJSON(cmd) && (count == 0 || refreshes < count) {
				_, _ = fmt.Fprintln(errOut, "\nStopped watching.")
			}
			return nil
		}),
	}

	cmd.Flags().DurationVar(&interval, "interval", defaultWatchInterval, "Polling interval (e.g. 30s, 1m)")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many refreshes (0 = until interrupted)")
	flagAlias(cmd.Flags(), "interval", "iv")

	return cmd
}

// renderWatchFrame prints one refresh. JSON modes print one compact line per
// refresh so the stream can be piped.
func renderWatchFrame(cmd *cobra.Command, d *api.Dashboard) {
	if isJSON(cmd) {
		payload := dashboardPayload(d)
		payload["timestamp"] = time.Now().UTC().Format(time.RFC3339)
		filtered, err := outfmt.ApplyQuery(payload, outfmt.GetQuery(cmdContext(cmd)))
		if err != nil {
			logger.Warn().Err(err).Msg("query failed")
			return
		}
		_ = outfmt.WriteJSON(cmd.OutOrStdout(), filtered, true)
		return
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "-- %s --\n", time.Now().Format("15:04:05"))
	writeDashboard(cmd, d)
	_, _ = fmt.Fprintln(cmd.OutOrStdout())
}
