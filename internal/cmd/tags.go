package cmd

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/outfmt"
	"github.com/costlens/costlens-cli/internal/dryrun"
	"github.com/costlens/costlens-cli/internal/resolve"
	"github.com/costlens/costlens-cli/internal/validation"
)

func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"tag", "tg"},
		Short:   "Manage cost tags",
	}

	cmd.AddCommand(newTagsListCmd())
	cmd.AddCommand(newTagsCreateCmd())
	cmd.AddCommand(newTagsDeleteCmd())

	return cmd
}

func newTagsListCmd() *cobra.Command {
	var filter api.TagFilter

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tags with their spend",
		Example: "  costlens tags list\n  costlens tags list --search prod --page-size 20",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if filter.Page < 0 || filter.PageSize < 0 {
				return fmt.Errorf("--page and --page-size must be >= 1")
			}
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			page, err := client.Tags().List(cmdContext(cmd), filter)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				if outfmt.ModeFromContext(cmdContext(cmd)) == outfmt.JSONL {
					return printJSON(cmd, page.Items)
				}
				return printJSON(cmd, page)
			}

			f := newFormatter(cmd)
			if len(page.Items) == 0 {
				f.Empty("No tags found.")
				return nil
			}
			f.StartTable([]string{"ID", "NAME", "COLOR", "SPEND", "REQUESTS"})
			for _, t := range page.Items {
				f.Row(t.ID, t.Name, orDash(t.Color), outfmt.USD(t.TotalCostUSD), strconv.Itoa(t.RequestCount))
			}
			if err := f.EndTable(); err != nil {
				return err
			}
			if page.HasMore {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\nMore results: --page %d\n", page.Page+1)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&filter.Search, "search", "", "Only tags whose name contains this text")
	cmd.Flags().IntVar(&filter.Page, "page", 0, "Page number")
	cmd.Flags().IntVar(&filter.PageSize, "page-size", 0, "Results per page")
	flagAlias(cmd.Flags(), "page-size", "limit")

	return cmd
}

func newTagsCreateCmd() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:     "create <name>",
		Aliases: []string{"mk", "add"},
		Short:   "Create a tag",
		Example: "  costlens tags create prod --color '#16a34a'",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := validation.ValidateName(name); err != nil {
				return err
			}
			if err := validation.ValidateColor(color); err != nil {
				return err
			}

			preview := dryrun.New(http.MethodPost, "/api/tags", "tag")
			preview.Body = map[string]any{"name": name}
			if color != "" {
				preview.Body["color"] = color
			}
			if done, err := previewMutation(cmd, preview); done {
				return err
			}

			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			tag, err := client.Tags().Create(cmdContext(cmd), api.CreateTagRequest{Name: name, Color: color})
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, tag)
			}
			printAction(cmd, "Created", "tag", tag.ID, tag.Name)
			return nil
		}),
	}

	cmd.Flags().StringVar(&color, "color", "", "Hex color, e.g. #4f46e5")

	return cmd
}

func newTagsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a tag",
		Long:    "Delete a tag by ID or name. Names are matched fuzzily; an ambiguous name lists the candidates instead of deleting.",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			tags, err := client.Tags().All(ctx)
			if err != nil {
				return err
			}
			items := make([]resolve.Named, len(tags))
			for i, t := range tags {
				items[i] = resolve.Named{ID: t.ID, Name: t.Name}
			}
			id, err := resolveRef("tag", args[0], items)
			if err != nil {
				return err
			}

			preview := dryrun.New(http.MethodDelete, "/api/tags/"+id, "tag")
			preview.Target = args[0]
			if done, err := previewMutation(cmd, preview); done {
				return err
			}

			if err := client.Tags().Delete(ctx, id); err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"deleted": true, "id": id})
			}
			printAction(cmd, "Deleted", "tag", id, "")
			return nil
		}),
	}
}
