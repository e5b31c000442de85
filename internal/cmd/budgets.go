package cmd

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/outfmt"
	"github.com/costlens/costlens-cli/internal/dryrun"
	"github.com/costlens/costlens-cli/internal/resolve"
	"github.com/costlens/costlens-cli/internal/validation"
)

var budgetPeriods = []string{"daily", "weekly", "monthly"}

func newBudgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"budget", "bg"},
		Short:   "Manage spend budgets",
	}

	cmd.AddCommand(newBudgetsListCmd())
	cmd.AddCommand(newBudgetsCreateCmd())
	cmd.AddCommand(newBudgetsDeleteCmd())

	return cmd
}

func newBudgetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List budgets and how much of each is used",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			budgets, err := client.Budgets().List(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, budgets)
			}

			f := newFormatter(cmd)
			if len(budgets) == 0 {
				f.Empty("No budgets configured.")
				return nil
			}
			f.StartTable([]string{"ID", "NAME", "PERIOD", "PROVIDER", "SPENT", "LIMIT", "USED"})
			for _, b := range budgets {
				f.Row(
					b.ID,
					b.Name,
					orDash(b.Period),
					orDash(b.Provider),
					outfmt.USD(b.SpentUSD),
					outfmt.USD(b.LimitUSD),
					outfmt.UsageBar(b.UsedPercent(), 10),
				)
			}
			return f.EndTable()
		}),
	}
}

func newBudgetsCreateCmd() *cobra.Command {
	var (
		limit    float64
		period   string
		provider string
	)

	cmd := &cobra.Command{
		Use:     "create <name>",
		Aliases: []string{"mk", "add"},
		Short:   "Create a budget",
		Example: "  costlens budgets create team-ml --limit 500 --period monthly --provider openai",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := validation.ValidateName(name); err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be greater than 0")
			}
			period = strings.ToLower(strings.TrimSpace(period))
			if !slices.Contains(budgetPeriods, period) {
				return fmt.Errorf("--period must be one of: %s", strings.Join(budgetPeriods, ", "))
			}
			provider = strings.TrimSpace(provider)

			preview := dryrun.New(http.MethodPost, "/api/budgets", "budget")
			preview.Body = map[string]any{"name": name, "limit_usd": limit, "period": period}
			if provider != "" {
				preview.Body["provider"] = provider
			}
			if done, err := previewMutation(cmd, preview); done {
				return err
			}

			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			budget, err := client.Budgets().Create(cmdContext(cmd), api.CreateBudgetRequest{
				Name:     name,
				LimitUSD: limit,
				Period:   period,
				Provider: provider,
			})
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, budget)
			}
			printAction(cmd, "Created", "budget", budget.ID, budget.Name)
			return nil
		}),
	}

	cmd.Flags().Float64Var(&limit, "limit", 0, "Spend limit in USD (required)")
	cmd.Flags().StringVar(&period, "period", "monthly", "Budget period: daily, weekly, monthly")
	cmd.Flags().StringVar(&provider, "provider", "", "Only count spend for this provider")
	_ = cmd.MarkFlagRequired("limit")

	return cmd
}

func newBudgetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a budget",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			budgets, err := client.Budgets().List(ctx)
			if err != nil {
				return err
			}
			items := make([]resolve.Named, len(budgets))
			for i, b := range budgets {
				items[i] = resolve.Named{ID: b.ID, Name: b.Name}
			}
			id, err := resolveRef("budget", args[0], items)
			if err != nil {
				return err
			}

			preview := dryrun.New(http.MethodDelete, "/api/budgets/"+id, "budget")
			preview.Target = args[0]
			if done, err := previewMutation(cmd, preview); done {
				return err
			}

			if err := client.Budgets().Delete(ctx, id); err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"deleted": true, "id": id})
			}
			printAction(cmd, "Deleted", "budget", id, "")
			return nil
		}),
	}
}
