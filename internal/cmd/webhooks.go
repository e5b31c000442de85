package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/dryrun"
	"github.com/costlens/costlens-cli/internal/resolve"
	"github.com/costlens/costlens-cli/internal/validation"
)

func newWebhooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "webhooks",
		Aliases: []string{"webhook", "wh"},
		Short:   "Manage webhooks",
		Long:    "Manage webhook subscriptions for budget and anomaly notifications",
	}

	cmd.AddCommand(newWebhooksListCmd())
	cmd.AddCommand(newWebhooksCreateCmd())
	cmd.AddCommand(newWebhooksDeleteCmd())

	return cmd
}

func newWebhooksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all webhooks",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			webhooks, err := client.Webhooks().List(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, webhooks)
			}

			f := newFormatter(cmd)
			if len(webhooks) == 0 {
				f.Empty("No webhooks.")
				return nil
			}
			f.StartTable([]string{"ID", "URL", "EVENTS"})
			for _, wh := range webhooks {
				f.Row(wh.ID, wh.URL, strings.Join(wh.Events, ", "))
			}
			return f.EndTable()
		}),
	}
}

func newWebhooksCreateCmd() *cobra.Command {
	var events []string

	cmd := &cobra.Command{
		Use:     "create <url>",
		Aliases: []string{"mk", "add"},
		Short:   "Create a webhook",
		Long: fmt.Sprintf(`Create a webhook subscription.

Available events:
  - %s`, strings.Join(api.WebhookEvents, "\n  - ")),
		Example: `  costlens webhooks create https://example.com/hook --event budget.exceeded --event anomaly.detected
  costlens webhooks create https://example.com/hook --event budget.exceeded,budget.warning`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if err := validation.ValidateWebhookURL(url); err != nil {
				return fmt.Errorf("invalid webhook URL: %w", err)
			}
			events = normalizeEvents(events)
			if err := validation.ValidateEvents(events, api.WebhookEvents); err != nil {
				return fmt.Errorf("invalid --event value: %w", err)
			}

			preview := dryrun.New(http.MethodPost, "/api/webhooks", "webhook")
			preview.Body = map[string]any{"url": url, "events": strings.Join(events, ",")}
			if done, err := previewMutation(cmd, preview); done {
				return err
			}

			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			webhook, err := client.Webhooks().Create(cmdContext(cmd), api.CreateWebhookRequest{URL: url, Events: events})
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, webhook)
			}
			printAction(cmd, "Created", "webhook", webhook.ID, webhook.URL)
			return nil
		}),
	}

	cmd.Flags().StringSliceVar(&events, "event", nil, "Event to subscribe to (repeatable or comma-separated)")
	flagAlias(cmd.Flags(), "event", "events")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

// normalizeEvents trims, lowercases and de-duplicates event names.
func normalizeEvents(events []string) []string {
	seen := make(map[string]bool, len(events))
	out := make([]string, 0, len(events))
	for _, e := range events {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func newWebhooksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <url|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a webhook",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			webhooks, err := client.Webhooks().List(ctx)
			if err != nil {
				return err
			}
			items := make([]resolve.Named, len(webhooks))
			for i, wh := range webhooks {
				items[i] = resolve.Named{ID: wh.ID, Name: wh.URL}
			}
			id, err := resolveRef("webhook", args[0], items)
			if err != nil {
				return err
			}

			preview := dryrun.New(http.MethodDelete, "/api/webhooks/"+id, "webhook")
			preview.Target = args[0]
			if done, err := previewMutation(cmd, preview); done {
				return err
			}

			if err := client.Webhooks().Delete(ctx, id); err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"deleted": true, "id": id})
			}
			printAction(cmd, "Deleted", "webhook", id, "")
			return nil
		}),
	}
}
