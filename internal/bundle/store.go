package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"otb/internal/fileutil"
	"otb/internal/logging"
	"otb/internal/services"
)

// Entry is one distinct archive name held by a Store. Source is the file its
// bytes are copied from, the smallest of Sources, which lists every source
// name that resolved to ArchiveName in sorted order.
type Entry struct {
	ArchiveName string
	Source      string
	Sources     []string
}

// Store maps source asset names to content-derived archive names. Each source
// name is hashed at most once; later lookups are served from the memo.
// A Store is safe for concurrent use and lives for a single export.
type Store struct {
	assets fs.FS
	logger *slog.Logger

	mu       sync.Mutex
	memo     map[string]string
	sources  map[string][]string
	inflight map[string]*pendingHash
	hashed   int
}

type pendingHash struct {
	done chan struct{}
	name string
	err  error
}

// NewStore returns an empty Store reading assets from the flat directory
// exposed by assets.
func NewStore(assets fs.FS, logger *slog.Logger) *Store {
	return &Store{
		assets:   assets,
		logger:   logging.NewComponentLogger(logger, "asset-store"),
		memo:     make(map[string]string),
		sources:  make(map[string][]string),
		inflight: make(map[string]*pendingHash),
	}
}

// Resolve returns the archive name for source, hashing the file on first
// sight. Concurrent callers resolving the same source share one hash pass.
func (s *Store) Resolve(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateSourceName(source); err != nil {
		return "", services.Wrap(services.ErrMalformedInput, "asset store", "resolve", fmt.Sprintf("asset %q", source), err)
	}

	s.mu.Lock()
	if name, ok := s.memo[source]; ok {
		s.mu.Unlock()
		return name, nil
	}
	if p, ok := s.inflight[source]; ok {
		s.mu.Unlock()
		select {
		case <-p.done:
			return p.name, p.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	p := &pendingHash{done: make(chan struct{})}
	s.inflight[source] = p
	s.hashed++
	s.mu.Unlock()

	name, err := s.hash(source)

	s.mu.Lock()
	delete(s.inflight, source)
	if err == nil {
		s.memo[source] = name
		s.sources[name] = append(s.sources[name], source)
	}
	s.mu.Unlock()

	p.name, p.err = name, err
	close(p.done)
	if err == nil {
		s.logger.Debug("asset resolved", logging.String("source", source), logging.String(logging.FieldEntry, name))
	}
	return name, err
}

func (s *Store) hash(source string) (string, error) {
	f, err := s.assets.Open(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "asset store", "resolve", fmt.Sprintf("asset %q", source), err)
		}
		return "", services.Wrap(services.ErrIO, "asset store", "resolve", fmt.Sprintf("open asset %q", source), err)
	}
	defer f.Close()

	digest, _, err := fileutil.HashReader(f)
	if err != nil {
		return "", services.Wrap(services.ErrIO, "asset store", "resolve", fmt.Sprintf("hash asset %q", source), err)
	}
	return ArchiveName(digest, source), nil
}

// Entries returns each distinct archive name once, sorted by archive name.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]Entry, 0, len(s.sources))
	for name, sources := range s.sources {
		sorted := slices.Clone(sources)
		slices.Sort(sorted)
		entries = append(entries, Entry{ArchiveName: name, Source: sorted[0], Sources: sorted})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.ArchiveName, b.ArchiveName) })
	return entries
}

// Len reports how many source names have been resolved.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memo)
}

// Hashed reports how many hash passes the Store has started.
func (s *Store) Hashed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashed
}

// validateSourceName accepts only plain file names inside the flat assets
// directory.
func validateSourceName(source string) error {
	switch {
	case source == "":
		return errors.New("empty asset name")
	case source == "." || source == "..":
		return errors.New("asset name is a directory reference")
	case strings.ContainsAny(source, "/\\\x00"):
		return errors.New("asset name contains a path separator")
	case !fs.ValidPath(source):
		return errors.New("asset name is not a valid path element")
	}
	return nil
}
