package bundle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"otb/internal/logging"
	"otb/internal/services"
	"otb/internal/tour"
)

// Options configures an Exporter.
type Options struct {
	// AssetsDir is the flat directory holding source assets. Ignored when
	// Assets is set.
	AssetsDir string
	// Assets overrides the asset source.
	Assets fs.FS
	// MetadataSuffix names sidecars. Defaults to DefaultMetadataSuffix.
	MetadataSuffix string
	// Parallelism bounds how many tours are loaded and rewritten at once.
	// Values below 2 select the sequential protocol.
	Parallelism int
	Logger      *slog.Logger
}

// Summary describes a completed export.
type Summary struct {
	Tours    int
	Assets   int
	Sidecars int
	Entries  int
	Bytes    int64
	Index    tour.Index
	Duration time.Duration
}

// Exporter drives one two-phase export. It is single-use.
type Exporter struct {
	assets      fs.FS
	suffix      string
	parallelism int
	logger      *slog.Logger

	used   atomic.Bool
	store  *Store
	writer *Writer
	index  tour.Index
	tours  map[string]struct{}

	// sidecars holds the names of sidecar entries already written.
	sidecars map[string]struct{}
}

// preparedTour is a rewritten, serialized tour ready to be written.
type preparedTour struct {
	path      string
	name      string
	thumbnail *tour.AssetName
	entry     string
	data      []byte
}

// NewExporter validates opts and returns a fresh Exporter.
func NewExporter(opts Options) (*Exporter, error) {
	assets := opts.Assets
	if assets == nil {
		if strings.TrimSpace(opts.AssetsDir) == "" {
			return nil, services.Wrap(services.ErrValidation, "exporter", "configure", "assets directory is required", nil)
		}
		assets = os.DirFS(opts.AssetsDir)
	}
	suffix := opts.MetadataSuffix
	if suffix == "" {
		suffix = DefaultMetadataSuffix
	}
	if strings.ContainsAny(suffix, "/\\") {
		return nil, services.Wrap(services.ErrValidation, "exporter", "configure", fmt.Sprintf("metadata suffix %q contains a path separator", suffix), nil)
	}
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	logger := logging.NewComponentLogger(opts.Logger, "exporter")
	return &Exporter{
		assets:      assets,
		suffix:      suffix,
		parallelism: parallelism,
		logger:      logger,
		store:       NewStore(assets, opts.Logger),
		index:       tour.Index{Tours: []tour.IndexEntry{}},
		tours:       make(map[string]struct{}),
		sidecars:    make(map[string]struct{}),
	}, nil
}

// Export is a convenience wrapper running a fresh Exporter once.
func Export(ctx context.Context, opts Options, tourPaths []string, w io.Writer) (Summary, error) {
	e, err := NewExporter(opts)
	if err != nil {
		return Summary{}, err
	}
	return e.Run(ctx, tourPaths, w)
}

// Run exports the tours at tourPaths into a bundle written to w. The index
// lists tours in the order given. On error w holds a partial archive that the
// caller must discard.
func (e *Exporter) Run(ctx context.Context, tourPaths []string, w io.Writer) (Summary, error) {
	if !e.used.CompareAndSwap(false, true) {
		return Summary{}, services.Wrap(services.ErrArchiveProtocol, "exporter", "run", "exporter already used", nil)
	}
	start := time.Now()
	e.writer = NewWriter(w)
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("export started", logging.Int("tours", len(tourPaths)), logging.Int("parallelism", e.parallelism))

	var err error
	if e.parallelism > 1 && len(tourPaths) > 1 {
		err = e.phaseOneParallel(ctx, tourPaths)
	} else {
		err = e.phaseOne(ctx, tourPaths)
	}
	if err != nil {
		return Summary{}, err
	}

	summary, err := e.phaseTwo(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary.Duration = time.Since(start)
	logger.Info("export finished",
		logging.Int("tours", summary.Tours),
		logging.Int("assets", summary.Assets),
		logging.Int("sidecars", summary.Sidecars),
		logging.Int64("bytes", summary.Bytes),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (e *Exporter) phaseOne(ctx context.Context, tourPaths []string) error {
	for _, path := range tourPaths {
		p, err := e.prepare(ctx, path)
		if err != nil {
			return err
		}
		if err := e.emit(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// phaseOneParallel loads and rewrites tours concurrently while writing them
// strictly in input order.
func (e *Exporter) phaseOneParallel(ctx context.Context, tourPaths []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prepared := make([]*preparedTour, len(tourPaths))
	ready := make([]chan struct{}, len(tourPaths))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	done := make(chan error, 1)
	go func() {
		for i, path := range tourPaths {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				p, err := e.prepare(gctx, path)
				if err != nil {
					return err
				}
				prepared[i] = p
				close(ready[i])
				return nil
			})
		}
		done <- g.Wait()
	}()

	finished := false
	emitErr := func() error {
		for i := range tourPaths {
			if !finished {
				select {
				case <-ready[i]:
				case err := <-done:
					finished = true
					if err != nil {
						return err
					}
					if ctx.Err() != nil {
						return ctx.Err()
					}
				}
			}
			<-ready[i]
			if err := e.emit(ctx, prepared[i]); err != nil {
				return err
			}
		}
		return nil
	}()
	if !finished {
		cancel()
		if err := <-done; err != nil && emitErr == nil {
			emitErr = err
		}
	}
	return emitErr
}

// prepare loads, rewrites, serializes and hashes one tour.
func (e *Exporter) prepare(ctx context.Context, path string) (*preparedTour, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = services.WithTourID(ctx, path)
	t, err := tour.Load(path)
	if err != nil {
		return nil, err
	}
	name := t.Name
	if err := Rewrite(ctx, e.store, t); err != nil {
		return nil, fmt.Errorf("rewrite %s: %w", path, err)
	}
	data, err := tour.Encode(t)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	p := &preparedTour{
		path:      path,
		name:      name,
		thumbnail: t.Thumbnail(),
		entry:     TourEntryName(hex.EncodeToString(sum[:])),
		data:      data,
	}
	logging.WithContext(ctx, e.logger).Debug("tour prepared", logging.String(logging.FieldEntry, p.entry))
	return p, nil
}

// emit writes the tour entry and appends its index entry. Identical
// documents share one entry.
func (e *Exporter) emit(ctx context.Context, p *preparedTour) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, seen := e.tours[p.entry]; !seen {
		if err := e.writer.AddBytes(p.entry, p.data); err != nil {
			return err
		}
		e.tours[p.entry] = struct{}{}
	}
	e.index.Tours = append(e.index.Tours, tour.IndexEntry{
		Name:      p.name,
		Thumbnail: p.thumbnail,
		Content:   tour.AssetName(p.entry),
	})
	return nil
}

// phaseTwo flushes distinct assets and sidecars, writes the index and seals
// the archive.
func (e *Exporter) phaseTwo(ctx context.Context) (Summary, error) {
	summary := Summary{Tours: len(e.index.Tours)}
	for _, entry := range e.store.Entries() {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if e.writer.Has(entry.ArchiveName) {
			// Asset and tour names are content-derived, so such an entry
			// already holds these bytes. Sidecar names are not.
			if _, sidecar := e.sidecars[entry.ArchiveName]; sidecar {
				return Summary{}, services.Wrap(services.ErrArchiveProtocol, "exporter", "copy asset",
					fmt.Sprintf("asset %q collides with sidecar entry %q", entry.Source, entry.ArchiveName), nil)
			}
			continue
		}
		if err := e.copyAsset(entry); err != nil {
			return Summary{}, err
		}
		summary.Assets++

		copied, err := e.copySidecar(entry)
		if err != nil {
			return Summary{}, err
		}
		if copied {
			summary.Sidecars++
		}
	}

	data, err := tour.EncodeIndex(e.index)
	if err != nil {
		return Summary{}, err
	}
	if err := e.writer.AddBytes(IndexName, data); err != nil {
		return Summary{}, err
	}
	if err := e.writer.Finish(); err != nil {
		return Summary{}, err
	}
	summary.Entries = e.writer.Len()
	summary.Bytes = e.writer.Bytes()
	summary.Index = e.index
	return summary, nil
}

func (e *Exporter) copyAsset(entry Entry) error {
	f, err := e.assets.Open(entry.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "exporter", "copy asset", fmt.Sprintf("asset %q", entry.Source), err)
		}
		return services.Wrap(services.ErrIO, "exporter", "copy asset", fmt.Sprintf("open asset %q", entry.Source), err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := e.writer.AddEntry(entry.ArchiveName, io.TeeReader(f, h)); err != nil {
		return err
	}
	if digest, _, ok := SplitArchiveName(entry.ArchiveName); !ok || digest != hex.EncodeToString(h.Sum(nil)) {
		return services.Wrap(services.ErrIO, "exporter", "copy asset", fmt.Sprintf("asset %q changed during export", entry.Source), nil)
	}
	return nil
}

// copySidecar copies the first sidecar found among the entry's sources,
// checked in sorted order.
func (e *Exporter) copySidecar(entry Entry) (bool, error) {
	for _, source := range entry.Sources {
		copied, err := e.copySidecarFrom(entry.ArchiveName, source)
		if err != nil || copied {
			return copied, err
		}
	}
	return false, nil
}

func (e *Exporter) copySidecarFrom(archiveName, source string) (bool, error) {
	f, err := e.assets.Open(source + e.suffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrIO, "exporter", "copy sidecar", fmt.Sprintf("open sidecar for %q", source), err)
	}
	defer f.Close()
	name := archiveName + e.suffix
	if _, err := e.writer.AddEntry(name, f); err != nil {
		return false, err
	}
	e.sidecars[name] = struct{}{}
	return true, nil
}

// Store exposes the content memo, mainly for inspection after Run.
func (e *Exporter) Store() *Store {
	return e.store
}
