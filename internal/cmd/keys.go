package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/dryrun"
	"github.com/costlens/costlens-cli/internal/resolve"
	"github.com/costlens/costlens-cli/internal/validation"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"key", "api-keys"},
		Short:   "Manage proxy API keys",
	}

	cmd.AddCommand(newKeysListCmd())
	cmd.AddCommand(newKeysCreateCmd())
	cmd.AddCommand(newKeysDeleteCmd())

	return cmd
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List proxy keys",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			keys, err := client.Keys().List(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, keys)
			}

			f := newFormatter(cmd)
			if len(keys) == 0 {
				f.Empty("No API keys.")
				return nil
			}
			f.StartTable([]string{"ID", "NAME", "PREFIX", "CREATED", "LAST USED"})
			for _, k := range keys {
				lastUsed := "never"
				if k.LastUsedAt != nil {
					lastUsed = formatTime(*k.LastUsedAt)
				}
				f.Row(k.ID, k.Name, k.Prefix+"...", formatTime(k.CreatedAt), lastUsed)
			}
			return f.EndTable()
		}),
	}
}

func newKeysCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "create <name>",
		Aliases: []string{"mk", "add"},
		Short:   "Create a proxy key",
		Long:    "Create a proxy key. The secret is printed once and cannot be retrieved again.",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateName(args[0]); err != nil {
				return err
			}

			preview := dryrun.New(http.MethodPost, "/api/keys", "key")
			preview.Body = map[string]any{"name": args[0]}
			if done, err := previewMutation(cmd, preview); done {
				return err
			}

			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}

			key, err := client.Keys().Create(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, key)
			}
			printAction(cmd, "Created", "key", key.ID, key.Name)
			if key.Key != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n  %s\n\n", key.Key)
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Store this key now. It will not be shown again.")
			}
			return nil
		}),
	}
}

func newKeysDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name|id>",
		Aliases: []string{"rm", "revoke"},
		Short:   "Revoke a proxy key",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			keys, err := client.Keys().List(ctx)
			if err != nil {
				return err
			}
			items := make([]resolve.Named, len(keys))
			for i, k := range keys {
				items[i] = resolve.Named{ID: k.ID, Name: k.Name}
			}
			id, err := resolveRef("key", args[0], items)
			if err != nil {
				return err
			}

			preview := dryrun.New(http.MethodDelete, "/api/keys/"+id, "key")
			preview.Target = args[0]
			preview.Warnings = []string{"Clients using this key will start failing"}
			if done, err := previewMutation(cmd, preview); done {
				return err
			}

			if err := client.Keys().Delete(ctx, id); err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"deleted": true, "id": id})
			}
			printAction(cmd, "Revoked", "key", id, "")
			return nil
		}),
	}
}
