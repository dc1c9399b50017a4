package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"otb/internal/bundle"
	"otb/internal/config"
	"otb/internal/fileutil"
)

func newAssetCommand(ctx *commandContext) *cobra.Command {
	assetCmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage project assets",
	}
	assetCmd.AddCommand(newAssetListCommand(ctx))
	assetCmd.AddCommand(newAssetImportCommand(ctx))
	assetCmd.AddCommand(newAssetMetaCommand(ctx))
	return assetCmd
}

type assetRow struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	HasMetadata bool   `json:"has_metadata"`
	ArchiveName string `json:"archive_name,omitempty"`
}

func newAssetListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var digests bool
	cmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List assets in a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.projectStore()
			if err != nil {
				return err
			}
			assets, err := store.ListAssets(args[0])
			if err != nil {
				return err
			}
			dir, err := store.AssetsDir(args[0])
			if err != nil {
				return err
			}
			rows := make([]assetRow, 0, len(assets))
			for _, a := range assets {
				row := assetRow{Name: a.Name, Size: a.Size, HasMetadata: a.HasMetadata}
				if digests {
					digest, _, err := fileutil.HashFile(filepath.Join(dir, a.Name))
					if err != nil {
						return err
					}
					row.ArchiveName = bundle.ArchiveName(digest, a.Name)
				}
				rows = append(rows, row)
			}
			if asJSON {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No assets in project %s\n", args[0])
				return nil
			}
			headers := []string{"Name", "Size", "Metadata"}
			aligns := []columnAlignment{alignLeft, alignRight, alignLeft}
			if digests {
				headers = append(headers, "Bundle entry")
				aligns = append(aligns, alignLeft)
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				line := []string{r.Name, fmt.Sprint(r.Size), yesNo(r.HasMetadata)}
				if digests {
					line = append(line, r.ArchiveName)
				}
				table = append(table, line)
			}
			fmt.Fprintln(out, renderTable(headers, table, aligns))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&digests, "digest", false, "Hash each asset and show its bundle entry name")
	return cmd
}

func newAssetImportCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <project> <file>",
		Short: "Copy a file into a project's assets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.projectStore()
			if err != nil {
				return err
			}
			src, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			unlock, err := store.Lock(args[0])
			if err != nil {
				return err
			}
			defer ctx.releaseLock(cmd, unlock)
			info, err := store.ImportAsset(args[0], src, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d bytes)\n", info.Name, info.Size)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Asset name (derived from the file name when empty)")
	return cmd
}

func newAssetMetaCommand(ctx *commandContext) *cobra.Command {
	var alt, attrib string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "meta <project> <asset>",
		Short: "Show or edit an asset's alt text and attribution",
		Long: "Without flags, meta prints the asset's sidecar. --alt and --attrib replace\n" +
			"the corresponding field; an empty value clears it. Fields not named keep\n" +
			"their current value.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.projectStore()
			if err != nil {
				return err
			}
			projectName, asset := args[0], args[1]
			meta, _, err := store.GetAssetMeta(projectName, asset)
			if err != nil {
				return err
			}

			altSet, attribSet := cmd.Flags().Changed("alt"), cmd.Flags().Changed("attrib")
			if altSet || attribSet {
				if altSet {
					meta.Alt = optionalText(alt)
				}
				if attribSet {
					meta.Attrib = optionalText(attrib)
				}
				unlock, err := store.Lock(projectName)
				if err != nil {
					return err
				}
				defer ctx.releaseLock(cmd, unlock)
				if err := store.PutAssetMeta(projectName, asset, meta); err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd, meta)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
				{"Asset", asset},
				{"Alt", textOrDash(meta.Alt)},
				{"Attribution", textOrDash(meta.Attrib)},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&alt, "alt", "", "Alternative text for the asset")
	cmd.Flags().StringVar(&attrib, "attrib", "", "Attribution text for the asset")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the metadata as JSON")
	return cmd
}

func optionalText(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func textOrDash(value *string) string {
	if value == nil {
		return "-"
	}
	return *value
}
