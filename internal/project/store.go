package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"otb/internal/fileutil"
	"otb/internal/logging"
	"otb/internal/services"
	"otb/internal/textutil"
	"otb/internal/tour"
)

const (
	manifestName = "project.json"
	assetsDir    = "assets"
	lockName     = ".otb.lock"
	tourExt      = ".otb.json"

	defaultMetadataSuffix = ".meta.json"
)

// TourSummary identifies a stored tour.
type TourSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AssetInfo describes one file in a project's assets directory.
type AssetInfo struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	HasMetadata bool   `json:"has_metadata"`
}

// Store manages projects below a single root directory.
type Store struct {
	root           string
	metadataSuffix string
	logger         *slog.Logger
}

// New returns a Store rooted at root. An empty metadataSuffix selects
// ".meta.json".
func New(root, metadataSuffix string, logger *slog.Logger) *Store {
	if metadataSuffix == "" {
		metadataSuffix = defaultMetadataSuffix
	}
	return &Store{
		root:           root,
		metadataSuffix: metadataSuffix,
		logger:         logging.NewComponentLogger(logger, "project-store"),
	}
}

// Root returns the projects directory.
func (s *Store) Root() string {
	return s.root
}

// ListProjects returns the names of all project directories, sorted.
func (s *Store) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, services.Wrap(services.ErrIO, "project store", "list projects", s.root, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && ValidProjectName(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// CreateProject initialises a new project directory. It fails if the project
// already exists.
func (s *Store) CreateProject(name string) error {
	if !ValidProjectName(name) {
		return invalidProject(name)
	}
	dir := filepath.Join(s.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrIO, "project store", "create project", name, err)
	}
	manifest, err := os.OpenFile(filepath.Join(dir, manifestName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return services.Wrap(services.ErrValidation, "project store", "create project", fmt.Sprintf("project %q already exists", name), nil)
		}
		return services.Wrap(services.ErrIO, "project store", "create project", name, err)
	}
	if _, err := manifest.WriteString(`{"tours":[]}`); err != nil {
		manifest.Close()
		return services.Wrap(services.ErrIO, "project store", "create project", name, err)
	}
	if err := manifest.Close(); err != nil {
		return services.Wrap(services.ErrIO, "project store", "create project", name, err)
	}
	if err := os.Mkdir(filepath.Join(dir, assetsDir), 0o755); err != nil {
		return services.Wrap(services.ErrIO, "project store", "create project", name, err)
	}
	s.logger.Info("project created", logging.String(logging.FieldProject, name))
	return nil
}

// ProjectDir returns the directory of an existing project.
func (s *Store) ProjectDir(name string) (string, error) {
	if !ValidProjectName(name) {
		return "", invalidProject(name)
	}
	dir := filepath.Join(s.root, name)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "project store", "open project", name, err)
		}
		return "", services.Wrap(services.ErrIO, "project store", "open project", name, err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrNotFound, "project store", "open project", fmt.Sprintf("%s is not a directory", dir), nil)
	}
	return dir, nil
}

// AssetsDir returns the flat assets directory of an existing project.
func (s *Store) AssetsDir(project string) (string, error) {
	dir, err := s.ProjectDir(project)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, assetsDir), nil
}

// TourPath returns the document path for a tour id. The tour need not exist.
func (s *Store) TourPath(project, id string) (string, error) {
	if !ValidTourID(id) {
		return "", services.Wrap(services.ErrValidation, "project store", "tour path", fmt.Sprintf("invalid tour id %q", id), nil)
	}
	dir, err := s.ProjectDir(project)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+tourExt), nil
}

// ListTours returns the id and display name of every tour in project, sorted
// by id. Only the name field is read from each document.
func (s *Store) ListTours(project string) ([]TourSummary, error) {
	dir, err := s.ProjectDir(project)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "project store", "list tours", project, err)
	}
	tours := make([]TourSummary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, tourExt) {
			continue
		}
		id := strings.TrimSuffix(name, tourExt)
		if !ValidTourID(id) {
			continue
		}
		display, err := readTourName(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		tours = append(tours, TourSummary{ID: id, Name: display})
	}
	slices.SortFunc(tours, func(a, b TourSummary) int { return strings.Compare(a.ID, b.ID) })
	return tours, nil
}

func readTourName(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrIO, "project store", "read tour", path, err)
	}
	var doc struct {
		Name *string `json:"name"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", services.Wrap(services.ErrMalformedInput, "project store", "read tour", path, err)
	}
	if doc.Name == nil {
		return "", services.Wrap(services.ErrMalformedInput, "project store", "read tour", fmt.Sprintf("%s: missing name", path), nil)
	}
	return *doc.Name, nil
}

// TourPaths resolves ids to document paths in the given order. With no ids
// every tour in the project is returned, sorted by id.
func (s *Store) TourPaths(project string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		tours, err := s.ListTours(project)
		if err != nil {
			return nil, err
		}
		for _, t := range tours {
			ids = append(ids, t.ID)
		}
	}
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		path, err := s.TourPath(project, id)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, services.Wrap(services.ErrNotFound, "project store", "tour path", fmt.Sprintf("tour %q in project %q", id, project), err)
			}
			return nil, services.Wrap(services.ErrIO, "project store", "tour path", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// CreateTour stores t under a new random id and returns the id.
func (s *Store) CreateTour(project string, t *tour.Tour) (string, error) {
	id := uuid.NewString()
	if err := s.PutTour(project, id, t); err != nil {
		return "", err
	}
	s.logger.Info("tour created", logging.String(logging.FieldProject, project), logging.String(logging.FieldTourID, id))
	return id, nil
}

// GetTour loads a tour document.
func (s *Store) GetTour(project, id string) (*tour.Tour, error) {
	path, err := s.TourPath(project, id)
	if err != nil {
		return nil, err
	}
	return tour.Load(path)
}

// PutTour writes t, replacing any existing document with the same id.
func (s *Store) PutTour(project, id string, t *tour.Tour) error {
	path, err := s.TourPath(project, id)
	if err != nil {
		return err
	}
	data, err := tour.Encode(t)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return services.Wrap(services.ErrIO, "project store", "put tour", path, err)
	}
	return nil
}

// DeleteTour removes a tour document.
func (s *Store) DeleteTour(project, id string) error {
	path, err := s.TourPath(project, id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "project store", "delete tour", fmt.Sprintf("tour %q in project %q", id, project), err)
		}
		return services.Wrap(services.ErrIO, "project store", "delete tour", path, err)
	}
	s.logger.Info("tour deleted", logging.String(logging.FieldProject, project), logging.String(logging.FieldTourID, id))
	return nil
}

// ListAssets returns the regular files in the project's assets directory,
// following symlinks and leaving out sidecar files.
func (s *Store) ListAssets(project string) ([]AssetInfo, error) {
	dir, err := s.AssetsDir(project)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []AssetInfo{}, nil
		}
		return nil, services.Wrap(services.ErrIO, "project store", "list assets", dir, err)
	}
	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = struct{}{}
	}
	assets := make([]AssetInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, s.metadataSuffix) {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "project store", "list assets", name, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		_, hasMeta := present[name+s.metadataSuffix]
		assets = append(assets, AssetInfo{Name: name, Size: info.Size(), HasMetadata: hasMeta})
	}
	slices.SortFunc(assets, func(a, b AssetInfo) int { return strings.Compare(a.Name, b.Name) })
	return assets, nil
}

// ImportAsset copies the file at src into the project's assets directory.
// An empty name derives one from the source filename. Existing assets with
// the same name are replaced.
func (s *Store) ImportAsset(project, src, name string) (AssetInfo, error) {
	if name == "" {
		name = textutil.SanitizeAssetName(filepath.Base(src))
	}
	if !ValidAssetName(name) {
		return AssetInfo{}, services.Wrap(services.ErrValidation, "project store", "import asset", fmt.Sprintf("invalid asset name %q", name), nil)
	}
	dir, err := s.AssetsDir(project)
	if err != nil {
		return AssetInfo{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return AssetInfo{}, services.Wrap(services.ErrIO, "project store", "import asset", dir, err)
	}
	digest, err := fileutil.CopyFileVerified(src, filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return AssetInfo{}, services.Wrap(services.ErrNotFound, "project store", "import asset", src, err)
		}
		return AssetInfo{}, services.Wrap(services.ErrIO, "project store", "import asset", src, err)
	}
	info, err := os.Stat(filepath.Join(dir, name))
	if err != nil {
		return AssetInfo{}, services.Wrap(services.ErrIO, "project store", "import asset", name, err)
	}
	_, metaErr := os.Stat(filepath.Join(dir, name+s.metadataSuffix))
	s.logger.Info("asset imported",
		logging.String(logging.FieldProject, project),
		logging.String("asset", name),
		logging.String("sha256", digest),
		logging.Int64("size", info.Size()),
	)
	return AssetInfo{Name: name, Size: info.Size(), HasMetadata: metaErr == nil}, nil
}

// GetAssetMeta reads the sidecar of an existing asset. The boolean is false
// when the asset has no sidecar.
func (s *Store) GetAssetMeta(project, asset string) (tour.AssetMeta, bool, error) {
	path, err := s.sidecarPath(project, asset, "get asset meta")
	if err != nil {
		return tour.AssetMeta{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tour.AssetMeta{}, false, nil
		}
		return tour.AssetMeta{}, false, services.Wrap(services.ErrIO, "project store", "get asset meta", path, err)
	}
	meta, err := tour.DecodeAssetMeta(data)
	if err != nil {
		return tour.AssetMeta{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return meta, true, nil
}

// PutAssetMeta writes the sidecar of an existing asset, replacing any
// previous one.
func (s *Store) PutAssetMeta(project, asset string, meta tour.AssetMeta) error {
	path, err := s.sidecarPath(project, asset, "put asset meta")
	if err != nil {
		return err
	}
	data, err := tour.EncodeAssetMeta(meta)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return services.Wrap(services.ErrIO, "project store", "put asset meta", path, err)
	}
	s.logger.Info("asset metadata written",
		logging.String(logging.FieldProject, project),
		logging.String("asset", asset),
	)
	return nil
}

// sidecarPath validates that asset names an existing regular file in the
// project and returns the path of its sidecar.
func (s *Store) sidecarPath(project, asset, operation string) (string, error) {
	if !ValidAssetName(asset) || strings.HasSuffix(asset, s.metadataSuffix) {
		return "", services.Wrap(services.ErrValidation, "project store", operation, fmt.Sprintf("invalid asset name %q", asset), nil)
	}
	dir, err := s.AssetsDir(project)
	if err != nil {
		return "", err
	}
	assetPath := filepath.Join(dir, asset)
	info, err := os.Stat(assetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "project store", operation, fmt.Sprintf("asset %q in project %q", asset, project), err)
		}
		return "", services.Wrap(services.ErrIO, "project store", operation, assetPath, err)
	}
	if !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrValidation, "project store", operation, fmt.Sprintf("asset %q is not a regular file", asset), nil)
	}
	return assetPath + s.metadataSuffix, nil
}

// Lock takes an exclusive advisory lock on the project so concurrent otb
// processes do not import or export at the same time. The returned function
// releases it.
func (s *Store) Lock(project string) (func() error, error) {
	dir, err := s.ProjectDir(project)
	if err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "project store", "lock", project, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBusy, "project store", "lock", fmt.Sprintf("project %q is in use by another otb process", project), nil)
	}
	return lock.Unlock, nil
}

func invalidProject(name string) error {
	return services.Wrap(services.ErrValidation, "project store", "", fmt.Sprintf("invalid project name %q", name), nil)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
