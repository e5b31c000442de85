package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/outfmt"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "stats",
		Aliases: []string{"st"},
		Short:   "Show spend totals",
		Example: "  costlens stats\n  costlens stats --query .month_usd",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			stats, err := client.Reports().Stats(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, stats)
			}
			writeStats(cmd.OutOrStdout(), stats)
			return nil
		}),
	}
}

func writeStats(w io.Writer, stats *api.Stats) {
	_, _ = fmt.Fprintln(w, outfmt.Title("Spend"))
	_, _ = fmt.Fprintln(w, outfmt.KeyValue("Today", fmt.Sprintf("%s (%d requests)", outfmt.USD(stats.TodayUSD), stats.RequestsToday)))
	_, _ = fmt.Fprintln(w, outfmt.KeyValue("This month", fmt.Sprintf("%s (%d requests)", outfmt.USD(stats.MonthUSD), stats.RequestsMonth)))
	_, _ = fmt.Fprintln(w, outfmt.KeyValue("All time", outfmt.USD(stats.AllTimeUSD)))
}

// rangeFlags binds --days and optionally --provider.
func rangeFlags(cmd *cobra.Command, filter *api.RangeFilter, withProvider bool) {
	cmd.Flags().IntVar(&filter.Days, "days", 0, "Look back this many days (server default when unset)")
	if withProvider {
		cmd.Flags().StringVar(&filter.Provider, "provider", "", "Only this provider (e.g. openai, anthropic)")
	}
}

func validateRange(filter api.RangeFilter) error {
	if filter.Days < 0 {
		return fmt.Errorf("--days must be >= 0")
	}
	return nil
}

func newAnomaliesCmd() *cobra.Command {
	var filter api.RangeFilter

	cmd := &cobra.Command{
		Use:     "anomalies",
		Aliases: []string{"anomaly", "an"},
		Short:   "List detected cost anomalies",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if err := validateRange(filter); err != nil {
				return err
			}
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			anomalies, err := client.Reports().Anomalies(cmdContext(cmd), filter)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, anomalies)
			}
			writeAnomalies(cmd, anomalies)
			return nil
		}),
	}
	rangeFlags(cmd, &filter, false)

	return cmd
}

func writeAnomalies(cmd *cobra.Command, anomalies []api.Anomaly) {
	f := newFormatter(cmd)
	if len(anomalies) == 0 {
		f.Empty("No anomalies detected.")
		return
	}
	f.StartTable([]string{"DETECTED", "SEVERITY", "PROVIDER", "MODEL", "COST", "EXPECTED"})
	for _, a := range anomalies {
		f.Row(
			formatTime(a.DetectedAt),
			outfmt.Severity(a.Severity),
			a.Provider,
			orDash(a.Model),
			outfmt.USD(a.CostUSD),
			outfmt.USD(a.ExpectedUSD),
		)
	}
	_ = f.EndTable()
}

func newRecommendationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "recommendations",
		Aliases: []string{"recs", "rec"},
		Short:   "Show cost-saving recommendations",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			recs, err := client.Reports().Recommendations(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, recs)
			}

			f := newFormatter(cmd)
			if len(recs) == 0 {
				f.Empty("No recommendations right now.")
				return nil
			}
			f.StartTable([]string{"SAVINGS", "TITLE", "MODEL"})
			var total float64
			for _, r := range recs {
				total += r.EstimatedSavingsUSD
				f.Row(outfmt.USD(r.EstimatedSavingsUSD), r.Title, orDash(r.Model))
			}
			if err := f.EndTable(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nEstimated savings: %s\n", outfmt.USD(total))
			return nil
		}),
	}
}

func newHeatmapCmd() *cobra.Command {
	var filter api.RangeFilter

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Show spend by weekday and hour",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if err := validateRange(filter); err != nil {
				return err
			}
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			cells, err := client.Reports().Heatmap(cmdContext(cmd), filter)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, cells)
			}
			writeHeatmap(cmd, cells)
			return nil
		}),
	}
	rangeFlags(cmd, &filter, true)

	return cmd
}

// writeHeatmap prints one row per weekday with the busiest hour and the total.
func writeHeatmap(cmd *cobra.Command, cells []api.HeatmapCell) {
	f := newFormatter(cmd)
	if len(cells) == 0 {
		f.Empty("No spend recorded in this range.")
		return
	}

	type day struct {
		total    float64
		requests int
		peakHour int
		peakCost float64
	}
	days := make(map[int]*day)
	for _, c := range cells {
		d, ok := days[c.Weekday]
		if !ok {
			d = &day{peakHour: c.Hour, peakCost: c.CostUSD}
			days[c.Weekday] = d
		}
		d.total += c.CostUSD
		d.requests += c.Requests
		if c.CostUSD > d.peakCost {
			d.peakHour, d.peakCost = c.Hour, c.CostUSD
		}
	}
	weekdays := make([]int, 0, len(days))
	for wd := range days {
		weekdays = append(weekdays, wd)
	}
	sort.Ints(weekdays)

	f.StartTable([]string{"DAY", "COST", "REQUESTS", "PEAK HOUR", "PEAK COST"})
	for _, wd := range weekdays {
		d := days[wd]
		f.Row(
			weekdayName(wd),
			outfmt.USD(d.total),
			strconv.Itoa(d.requests),
			fmt.Sprintf("%02d:00", d.peakHour),
			outfmt.USD(d.peakCost),
		)
	}
	_ = f.EndTable()
}

func weekdayName(wd int) string {
	if wd < 0 || wd > 6 {
		return strconv.Itoa(wd)
	}
	return time.Weekday(wd).String()[:3]
}

func newCompareCmd() *cobra.Command {
	var filter api.RangeFilter

	cmd := &cobra.Command{
		Use:     "compare",
		Aliases: []string{"comparison", "cmp"},
		Short:   "Compare spend across providers and models",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if err := validateRange(filter); err != nil {
				return err
			}
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			entries, err := client.Reports().Comparison(cmdContext(cmd), filter)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, entries)
			}

			f := newFormatter(cmd)
			if len(entries) == 0 {
				f.Empty("No spend recorded in this range.")
				return nil
			}
			f.StartTable([]string{"PROVIDER", "MODEL", "COST", "REQUESTS", "AVG/REQUEST"})
			for _, e := range entries {
				f.Row(e.Provider, e.Model, outfmt.USD(e.CostUSD), strconv.Itoa(e.Requests), outfmt.USD(e.AvgCostPerRequest))
			}
			return f.EndTable()
		}),
	}
	rangeFlags(cmd, &filter, true)

	return cmd
}

func newForecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "forecast",
		Aliases: []string{"fc"},
		Short:   "Project this month's spend",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			forecast, err := client.Reports().Forecast(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, forecast)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, outfmt.Title("Forecast"))
			_, _ = fmt.Fprintln(out, outfmt.KeyValue("Projected", outfmt.USD(forecast.ProjectedMonthUSD)))
			_, _ = fmt.Fprintln(out, outfmt.KeyValue("Daily avg", outfmt.USD(forecast.DailyAverageUSD)))
			_, _ = fmt.Fprintln(out, outfmt.KeyValue("Days left", strconv.Itoa(forecast.DaysRemaining)))
			if len(forecast.Points) > 0 {
				points := make([]string, 0, len(forecast.Points))
				for _, p := range forecast.Points {
					points = append(points, fmt.Sprintf("%s %s", p.Date, outfmt.USD(p.CostUSD)))
				}
				_, _ = fmt.Fprintln(out)
				_, _ = fmt.Fprintln(out, strings.Join(points, "\n"))
			}
			return nil
		}),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
