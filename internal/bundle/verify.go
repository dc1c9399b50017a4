package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/klauspost/compress/zip"

	"otb/internal/fileutil"
	"otb/internal/services"
	"otb/internal/tour"
)

// Report summarises a verified bundle.
type Report struct {
	Index    tour.Index `json:"index"`
	Tours    int        `json:"tours"`
	Assets   int        `json:"assets"`
	Sidecars int        `json:"sidecars"`
	Entries  int        `json:"entries"`
	Bytes    int64      `json:"bytes"`
	// Orphans lists entries that nothing in the bundle refers to.
	Orphans []string `json:"orphans"`
}

// VerifyFile opens the bundle at path and verifies it.
func VerifyFile(path string, metadataSuffix string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Report{}, services.Wrap(services.ErrNotFound, "verify", "open", path, err)
		}
		return Report{}, services.Wrap(services.ErrIO, "verify", "open", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Report{}, services.Wrap(services.ErrIO, "verify", "stat", path, err)
	}
	return Verify(f, info.Size(), metadataSuffix)
}

type verifier struct {
	files    map[string]*zip.File
	suffix   string
	used     map[string]struct{}
	assets   map[string]struct{}
	sidecars int
	bytes    int64
}

// Verify reads a bundle back and checks that the index decodes, every tour
// document hashes to its entry name and decodes, and every asset slot names a
// present entry whose bytes hash to the digest in its name. Sidecars, when
// present, must decode.
func Verify(r io.ReaderAt, size int64, metadataSuffix string) (Report, error) {
	if metadataSuffix == "" {
		metadataSuffix = DefaultMetadataSuffix
	}
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Report{}, services.Wrap(services.ErrMalformedInput, "verify", "open archive", "", err)
	}
	v := &verifier{
		files:  make(map[string]*zip.File, len(zr.File)),
		suffix: metadataSuffix,
		used:   make(map[string]struct{}),
		assets: make(map[string]struct{}),
	}
	for _, f := range zr.File {
		if _, dup := v.files[f.Name]; dup {
			return Report{}, services.Wrap(services.ErrArchiveProtocol, "verify", "scan", fmt.Sprintf("duplicate entry %q", f.Name), nil)
		}
		v.files[f.Name] = f
	}

	indexData, err := v.read(IndexName)
	if err != nil {
		return Report{}, err
	}
	idx, err := tour.DecodeIndex(indexData)
	if err != nil {
		return Report{}, err
	}

	tours := make(map[string]struct{})
	for i, entry := range idx.Tours {
		if err := v.verifyTour(entry); err != nil {
			return Report{}, fmt.Errorf("index entry %d (%s): %w", i, entry.Name, err)
		}
		tours[string(entry.Content)] = struct{}{}
	}

	report := Report{
		Index:    idx,
		Tours:    len(tours),
		Assets:   len(v.assets),
		Sidecars: v.sidecars,
		Entries:  len(v.files),
		Bytes:    v.bytes,
	}
	for name := range v.files {
		if _, ok := v.used[name]; !ok {
			report.Orphans = append(report.Orphans, name)
		}
	}
	slices.Sort(report.Orphans)
	return report, nil
}

func (v *verifier) verifyTour(entry tour.IndexEntry) error {
	content := string(entry.Content)
	digest, suffix, ok := SplitArchiveName(content)
	if !ok || "."+suffix != TourExt {
		return services.Wrap(services.ErrMalformedInput, "verify", "tour", fmt.Sprintf("content name %q is not a tour entry", content), nil)
	}
	if _, seen := v.used[content]; seen {
		return nil
	}
	data, err := v.read(content)
	if err != nil {
		return err
	}
	if err := checkDigest(content, digest, bytes.NewReader(data)); err != nil {
		return err
	}
	t, err := tour.Decode(data)
	if err != nil {
		return err
	}
	if entry.Name != t.Name {
		return services.Wrap(services.ErrMalformedInput, "verify", "tour", fmt.Sprintf("index name %q does not match document name %q", entry.Name, t.Name), nil)
	}
	if thumb := t.Thumbnail(); !equalAssetPtr(thumb, entry.Thumbnail) {
		return services.Wrap(services.ErrMalformedInput, "verify", "tour", "index thumbnail does not match first gallery entry", nil)
	}
	return t.VisitAssets(func(slot *tour.AssetName) error {
		return v.verifyAsset(slot.String())
	})
}

func (v *verifier) verifyAsset(name string) error {
	if _, seen := v.assets[name]; seen {
		return nil
	}
	digest, _, ok := SplitArchiveName(name)
	if !ok {
		return services.Wrap(services.ErrMalformedInput, "verify", "asset", fmt.Sprintf("reference %q is not content-addressed", name), nil)
	}
	f, ok := v.files[name]
	if !ok {
		return services.Wrap(services.ErrNotFound, "verify", "asset", fmt.Sprintf("entry %q", name), nil)
	}
	v.used[name] = struct{}{}
	rc, err := f.Open()
	if err != nil {
		return services.Wrap(services.ErrIO, "verify", "asset", name, err)
	}
	defer rc.Close()
	n, err := checkDigestCount(name, digest, rc)
	if err != nil {
		return err
	}
	if uint64(n) != f.UncompressedSize64 {
		return services.Wrap(services.ErrMalformedInput, "verify", "asset", fmt.Sprintf("%s: read %d bytes, header says %d", name, n, f.UncompressedSize64), nil)
	}
	v.bytes += n
	v.assets[name] = struct{}{}

	sidecar := name + v.suffix
	if _, ok := v.files[sidecar]; !ok {
		return nil
	}
	data, err := v.read(sidecar)
	if err != nil {
		return err
	}
	if _, err := tour.DecodeAssetMeta(data); err != nil {
		return fmt.Errorf("sidecar %s: %w", sidecar, err)
	}
	v.sidecars++
	return nil
}

func (v *verifier) read(name string) ([]byte, error) {
	f, ok := v.files[name]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "verify", "read", fmt.Sprintf("entry %q", name), nil)
	}
	v.used[name] = struct{}{}
	rc, err := f.Open()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "verify", "read", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "verify", "read", name, err)
	}
	v.bytes += int64(len(data))
	return data, nil
}

func checkDigest(name, digest string, r io.Reader) error {
	_, err := checkDigestCount(name, digest, r)
	return err
}

func checkDigestCount(name, digest string, r io.Reader) (int64, error) {
	got, n, err := fileutil.HashReader(r)
	if err != nil {
		return n, services.Wrap(services.ErrIO, "verify", "hash", name, err)
	}
	if got != digest {
		return n, services.Wrap(services.ErrMalformedInput, "verify", "hash", fmt.Sprintf("%s: content hashes to %s", name, got), nil)
	}
	return n, nil
}

func equalAssetPtr(a, b *tour.AssetName) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
