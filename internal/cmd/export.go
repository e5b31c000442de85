package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		filters  logFilterFlags
		format   string
		dir      string
		toStdout bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download request logs as CSV or JSON",
		Long: `Download request logs as CSV or JSON.

The file is saved under --dir (default: COSTLENS_EXPORT_DIR or the current
directory) using the name suggested by the server. An existing file is never
overwritten; a numeric suffix is added instead. A failed download leaves no
file behind.`,
		Example: `  costlens export --format csv
  costlens export --format json --provider openai --start 30d --dir ./exports
  costlens export --format csv --stdout > spend.csv`,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if toStdout && cmd.Flags().Changed("dir") {
				return fmt.Errorf("--dir and --stdout cannot be used together")
			}
			params, err := filters.params(cmd)
			if err != nil {
				return err
			}

			client, settings, err := newClientFactory(cmd).client()
			if err != nil {
				return err
			}
			if err := client.RequireSession(); err != nil {
				return err
			}

			var saver export.Saver = export.DirSaver{Dir: settings.ExportDir}
			if toStdout {
				saver = export.WriterSaver{W: cmd.OutOrStdout()}
			} else if cmd.Flags().Changed("dir") {
				saver = export.DirSaver{Dir: dir}
			}

			dl := &export.Downloader{Client: client, Saver: saver}
			result, err := dl.Download(cmdContext(cmd), export.Request{Format: f, Filters: params})
			if err != nil {
				return err
			}

			if toStdout {
				// stdout carries the payload
				if isJSON(cmd) {
					return printJSONErr(cmd, result)
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d bytes\n", result.Bytes)
				return nil
			}
			if isJSON(cmd) {
				return printJSON(cmd, result)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%d bytes)\n", result.Location, result.Bytes)
			return nil
		}),
	}

	filters.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "", "Export format: csv or json (required)")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to save into")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the export to stdout instead of a file")
	flagAlias(cmd.Flags(), "format", "fmt")
	_ = cmd.MarkFlagRequired("format")

	return cmd
}
