package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"otb/internal/bundle"
	"otb/internal/config"
	"otb/internal/logging"
	"otb/internal/preflight"
	"otb/internal/services"
	"otb/internal/textutil"
)

type exportFlags struct {
	output    string
	tours     []string
	parallel  int
	overwrite bool
	asJSON    bool
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Export a project's tours and assets into a bundle",
		Long: "Export writes every tour of the project (or only the tours named with --tour)\n" +
			"into a zip bundle together with the assets they reference. Assets are stored\n" +
			"under content-addressed names so identical files are written once.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, ctx, args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Bundle file path (defaults to a timestamped file in paths.export_dir)")
	cmd.Flags().StringArrayVar(&flags.tours, "tour", nil, "Tour id to export (repeatable; defaults to all tours)")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 0, "Tours loaded concurrently (defaults to export.parallelism)")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Replace an existing bundle file")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print the export summary as JSON")
	return cmd
}

func runExport(cmd *cobra.Command, ctx *commandContext, projectName string, flags exportFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ctx.projectStore()
	if err != nil {
		return err
	}
	logger := ctx.loggerValue()

	unlock, err := store.Lock(projectName)
	if err != nil {
		return err
	}
	defer ctx.releaseLock(cmd, unlock)

	tourPaths, err := store.TourPaths(projectName, flags.tours)
	if err != nil {
		return err
	}
	assetsDir, err := store.AssetsDir(projectName)
	if err != nil {
		return err
	}

	output, err := exportTarget(cfg, projectName, flags.output, time.Now())
	if err != nil {
		return err
	}
	if check := preflight.CheckDirectoryAccess("Export directory", filepath.Dir(output)); !check.Passed {
		return services.Wrap(services.ErrIO, "export", "check destination", check.Detail, nil)
	}

	parallel := flags.parallel
	if parallel <= 0 {
		parallel = cfg.Export.Parallelism
	}

	runCtx := services.WithProject(cmd.Context(), projectName)
	runCtx = services.WithRequestID(runCtx, uuid.NewString())

	summary, err := writeBundle(runCtx, output, flags.overwrite, bundle.Options{
		AssetsDir:      assetsDir,
		MetadataSuffix: cfg.Export.MetadataSuffix,
		Parallelism:    parallel,
		Logger:         logger,
	}, tourPaths)
	if err != nil {
		return err
	}

	if flags.asJSON {
		return writeJSON(cmd, map[string]any{
			"path":     output,
			"tours":    summary.Tours,
			"assets":   summary.Assets,
			"sidecars": summary.Sidecars,
			"entries":  summary.Entries,
			"bytes":    summary.Bytes,
			"index":    summary.Index,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderKeyValues([][2]string{
		{"Tours", fmt.Sprint(summary.Tours)},
		{"Assets", fmt.Sprint(summary.Assets)},
		{"Sidecars", fmt.Sprint(summary.Sidecars)},
		{"Entries", fmt.Sprint(summary.Entries)},
		{"Bytes", fmt.Sprint(summary.Bytes)},
		{"Duration", summary.Duration.Round(time.Millisecond).String()},
	}))
	fmt.Fprintf(out, "Bundle written to %s\n", output)
	return nil
}

// exportTarget resolves the bundle path. Without an explicit output the
// bundle goes to the export directory as <prefix>-<project slug>-<timestamp>.zip.
func exportTarget(cfg *config.Config, projectName, output string, now time.Time) (string, error) {
	if output != "" {
		expanded, err := config.ExpandPath(output)
		if err != nil {
			return "", services.Wrap(services.ErrValidation, "export", "resolve output", output, err)
		}
		return expanded, nil
	}
	if err := os.MkdirAll(cfg.Paths.ExportDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrIO, "export", "create export directory", cfg.Paths.ExportDir, err)
	}
	name := fmt.Sprintf("%s-%s-%s.zip", cfg.Export.FilenamePrefix, textutil.Slug(projectName), now.Format("2006-01-02-15-04-05"))
	return filepath.Join(cfg.Paths.ExportDir, name), nil
}

// writeBundle exports into a temporary file next to path and moves it into
// place once the bundle is complete. A failed export leaves any existing
// bundle at path untouched.
func writeBundle(ctx context.Context, path string, overwrite bool, opts bundle.Options, tourPaths []string) (summary bundle.Summary, err error) {
	if !overwrite {
		if _, statErr := os.Lstat(path); statErr == nil {
			return bundle.Summary{}, bundleExists(path, os.ErrExist)
		}
	}
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return bundle.Summary{}, services.Wrap(services.ErrIO, "export", "create bundle", path, err)
	}
	tmpPath := file.Name()
	defer func() {
		if err == nil {
			return
		}
		_ = file.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.WarnWithContext(ctx, opts.Logger, "partial bundle not removed", "cleanup_failed",
				logging.String("path", tmpPath),
				logging.Error(rmErr),
			)
		}
	}()

	summary, err = bundle.Export(ctx, opts, tourPaths, file)
	if err != nil {
		return bundle.Summary{}, err
	}
	if err = file.Chmod(0o644); err != nil {
		return bundle.Summary{}, services.Wrap(services.ErrIO, "export", "chmod bundle", tmpPath, err)
	}
	if err = file.Sync(); err != nil {
		return bundle.Summary{}, services.Wrap(services.ErrIO, "export", "sync bundle", tmpPath, err)
	}
	if err = file.Close(); err != nil {
		return bundle.Summary{}, services.Wrap(services.ErrIO, "export", "close bundle", tmpPath, err)
	}
	if err = publishBundle(tmpPath, path, overwrite); err != nil {
		return bundle.Summary{}, err
	}
	return summary, nil
}

// publishBundle moves the finished temp file to path. Without overwrite the
// move goes through a hard link so a bundle created in the meantime is never
// replaced.
func publishBundle(tmpPath, path string, overwrite bool) error {
	if overwrite {
		if err := os.Rename(tmpPath, path); err != nil {
			return services.Wrap(services.ErrIO, "export", "rename bundle", path, err)
		}
		return nil
	}
	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return bundleExists(path, err)
		}
		return services.Wrap(services.ErrIO, "export", "link bundle", path, err)
	}
	// The bundle is in place; a leftover temp name is harmless.
	_ = os.Remove(tmpPath)
	return nil
}

func bundleExists(path string, err error) error {
	return services.Wrap(services.ErrValidation, "export", "create bundle", fmt.Sprintf("%s already exists (use --overwrite to replace it)", path), err)
}
