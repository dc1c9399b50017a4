package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"otb/internal/bundle"
	"otb/internal/config"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "verify <bundle.zip>",
		Short: "Check a bundle's index, tours, and content-addressed assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			report, err := bundle.VerifyFile(path, cfg.Export.MetadataSuffix)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(report.Index.Tours))
			for _, entry := range report.Index.Tours {
				thumbnail := "-"
				if entry.Thumbnail != nil {
					thumbnail = entry.Thumbnail.String()
				}
				rows = append(rows, []string{entry.Name, entry.Content.String(), thumbnail})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Tour", "Entry", "Thumbnail"}, rows, nil))
			}
			fmt.Fprintln(out, renderKeyValues([][2]string{
				{"Tours", fmt.Sprint(report.Tours)},
				{"Assets", fmt.Sprint(report.Assets)},
				{"Sidecars", fmt.Sprint(report.Sidecars)},
				{"Entries", fmt.Sprint(report.Entries)},
				{"Bytes", fmt.Sprint(report.Bytes)},
			}))
			for _, orphan := range report.Orphans {
				fmt.Fprintf(out, "Unreferenced entry: %s\n", orphan)
			}
			fmt.Fprintln(out, "Bundle OK")
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the report as JSON")
	return cmd
}
