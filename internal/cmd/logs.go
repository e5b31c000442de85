package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/dates"
	"github.com/costlens/costlens-cli/internal/outfmt"
	"github.com/costlens/costlens-cli/internal/query"
)

// now is swapped in tests that resolve relative dates.
var now = time.Now

// logFilterFlags are the filters shared by logs and export.
type logFilterFlags struct {
	provider string
	model    string
	tag      string
	start    string
	end      string
	minCost  float64
}

func (f *logFilterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "Only this provider (e.g. openai, anthropic)")
	cmd.Flags().StringVar(&f.model, "model", "", "Only this model")
	cmd.Flags().StringVar(&f.tag, "tag", "", "Only requests with this tag")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date: YYYY-MM-DD, today, yesterday, monday, 7d, 2w, 1mo")
	cmd.Flags().StringVar(&f.end, "end", "", "End date (same forms as --start)")
	cmd.Flags().Float64Var(&f.minCost, "min-cost", 0, "Only requests costing at least this many USD")
	flagAlias(cmd.Flags(), "start", "since")
	flagAlias(cmd.Flags(), "end", "until")
}

// filter resolves the flags into a LogFilter. min_cost is sent only when the
// flag was given, so --min-cost 0 is distinct from no filter.
func (f *logFilterFlags) filter(cmd *cobra.Command) (api.LogFilter, error) {
	out := api.LogFilter{
		Provider: strings.TrimSpace(f.provider),
		Model:    strings.TrimSpace(f.model),
		Tag:      strings.TrimSpace(f.tag),
	}

	ref := now()
	if f.start != "" {
		d, err := dates.Parse(f.start, ref)
		if err != nil {
			return api.LogFilter{}, fmt.Errorf("invalid --start: %w", err)
		}
		out.StartDate = d
	}
	if f.end != "" {
		d, err := dates.Parse(f.end, ref)
		if err != nil {
			return api.LogFilter{}, fmt.Errorf("invalid --end: %w", err)
		}
		out.EndDate = d
	}
	if out.StartDate != "" && out.EndDate != "" && out.StartDate > out.EndDate {
		return api.LogFilter{}, fmt.Errorf("--start must be before --end")
	}

	if flagOrAliasChanged(cmd, "min-cost") {
		if f.minCost < 0 {
			return api.LogFilter{}, fmt.Errorf("--min-cost must be >= 0")
		}
		minCost := f.minCost
		out.MinCost = &minCost
	}
	return out, nil
}

// params is the filter as an ad-hoc mapping for endpoints without a typed
// filter. Empty values are dropped when encoded.
func (f *logFilterFlags) params(cmd *cobra.Command) (query.Params, error) {
	filter, err := f.filter(cmd)
	if err != nil {
		return nil, err
	}
	return query.Params{
		"provider":   filter.Provider,
		"model":      filter.Model,
		"tag":        filter.Tag,
		"start_date": filter.StartDate,
		"end_date":   filter.EndDate,
		"min_cost":   filter.MinCost,
	}, nil
}

func newLogsCmd() *cobra.Command {
	var (
		filters  logFilterFlags
		page     int
		pageSize int
		sortBy   string
		order    string
	)

	cmd := &cobra.Command{
		Use:     "logs",
		Aliases: []string{"log", "requests"},
		Short:   "List tracked LLM requests",
		Example: `  costlens logs
  costlens logs --provider openai --start 7d --sort-by cost_usd --order desc
  costlens logs --tag prod --min-cost 0.10 --page 2 --json`,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter(cmd)
			if err != nil {
				return err
			}
			if page < 0 {
				return fmt.Errorf("--page must be >= 1")
			}
			if pageSize < 0 {
				return fmt.Errorf("--page-size must be >= 1")
			}
			order = strings.ToLower(strings.TrimSpace(order))
			if order != "" && order != "asc" && order != "desc" {
				return fmt.Errorf("--order must be asc or desc")
			}
			filter.Page = page
			filter.PageSize = pageSize
			filter.SortBy = strings.TrimSpace(sortBy)
			filter.SortOrder = order

			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			result, err := client.Logs().List(cmdContext(cmd), filter)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				if outfmt.ModeFromContext(cmdContext(cmd)) == outfmt.JSONL {
					return printJSON(cmd, result.Items)
				}
				return printJSON(cmd, result)
			}

			f := newFormatter(cmd)
			if len(result.Items) == 0 {
				f.Empty("No requests found.")
				return nil
			}
			f.StartTable([]string{"TIME", "PROVIDER", "MODEL", "TOKENS IN/OUT", "COST", "LATENCY", "STATUS"})
			for _, e := range result.Items {
				f.Row(
					formatTime(e.Timestamp),
					e.Provider,
					e.Model,
					fmt.Sprintf("%d/%d", e.InputTokens, e.OutputTokens),
					outfmt.USD(e.CostUSD),
					fmt.Sprintf("%dms", e.LatencyMS),
					strconv.Itoa(e.StatusCode),
				)
			}
			if err := f.EndTable(); err != nil {
				return err
			}

			out := cmd.ErrOrStderr()
			_, _ = fmt.Fprintf(out, "\nPage %d, showing %d of %d\n", result.Page, len(result.Items), result.Total)
			if result.HasMore {
				_, _ = fmt.Fprintf(out, "More results: --page %d\n", result.Page+1)
			}
			return nil
		}),
	}

	filters.bind(cmd)
	cmd.Flags().IntVar(&page, "page", 0, "Page number (server default when unset)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Results per page")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "Sort field (e.g. timestamp, cost_usd, latency_ms)")
	cmd.Flags().StringVar(&order, "order", "", "Sort order: asc or desc")
	flagAlias(cmd.Flags(), "page-size", "limit")

	return cmd
}
