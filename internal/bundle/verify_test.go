package bundle_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"otb/internal/bundle"
	"otb/internal/services"
	"otb/internal/testsupport"
	"otb/internal/tour"
)

func TestVerifyExportedBundle(t *testing.T) {
	f := newFixture(t)
	f.asset("cover.jpg", "cover")
	f.asset("cover.jpg.meta.json", `{"alt":"Cover","attrib":"CC-BY"}`)
	f.asset("narration.mp3", "narration")
	f.asset("poi.png", "poi")
	a := testsupport.NewTour("A", "cover.jpg")
	testsupport.AddStop(a, "s", "narration.mp3", "")
	testsupport.AddControl(a)
	b := testsupport.NewTour("B")
	testsupport.AddPOI(b, "p", "poi.png", "cover.jpg")

	summary, data, err := f.export(bundle.Options{}, f.tour("a", a), f.tour("b", b))
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	report, err := bundle.Verify(bytes.NewReader(data), int64(len(data)), "")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if report.Tours != 2 || report.Assets != 3 || report.Sidecars != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Entries != summary.Entries {
		t.Fatalf("report entries %d, summary entries %d", report.Entries, summary.Entries)
	}
	if len(report.Orphans) != 0 {
		t.Fatalf("unexpected orphans %v", report.Orphans)
	}
	if report.Index.Tours[0].Name != "A" || report.Index.Tours[1].Name != "B" {
		t.Fatalf("unexpected index %+v", report.Index)
	}
}

func TestVerifyFile(t *testing.T) {
	f := newFixture(t)
	f.asset("a.jpg", "A")
	_, data, err := f.export(bundle.Options{}, f.tour("t", testsupport.NewTour("T", "a.jpg")))
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := bundle.VerifyFile(path, ""); err != nil {
		t.Fatalf("VerifyFile returned error: %v", err)
	}
	if _, err := bundle.VerifyFile(filepath.Join(t.TempDir(), "missing.zip"), ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// handBuilt assembles a bundle directly so tests can inject inconsistencies.
func handBuilt(t *testing.T, build func(w *bundle.Writer)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := bundle.NewWriter(&buf)
	build(w)
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	return buf.Bytes()
}

func addTour(t *testing.T, w *bundle.Writer, tr *tour.Tour) tour.IndexEntry {
	t.Helper()
	data, err := tour.Encode(tr)
	if err != nil {
		t.Fatalf("encode tour: %v", err)
	}
	name := bundle.TourEntryName(testsupport.SHA256(string(data)))
	if err := w.AddBytes(name, data); err != nil {
		t.Fatalf("add tour: %v", err)
	}
	return tour.IndexEntry{Name: tr.Name, Thumbnail: tr.Thumbnail(), Content: tour.AssetName(name)}
}

func addIndex(t *testing.T, w *bundle.Writer, entries ...tour.IndexEntry) {
	t.Helper()
	data, err := tour.EncodeIndex(tour.Index{Tours: entries})
	if err != nil {
		t.Fatalf("encode index: %v", err)
	}
	if err := w.AddBytes(bundle.IndexName, data); err != nil {
		t.Fatalf("add index: %v", err)
	}
}

func TestVerifyDetectsInconsistencies(t *testing.T) {
	assetName := testsupport.SHA256("A") + ".jpg"

	tests := []struct {
		name   string
		build  func(t *testing.T, w *bundle.Writer)
		marker error
	}{
		{
			name:   "missing index",
			build:  func(t *testing.T, w *bundle.Writer) {},
			marker: services.ErrNotFound,
		},
		{
			name: "missing asset",
			build: func(t *testing.T, w *bundle.Writer) {
				addIndex(t, w, addTour(t, w, testsupport.NewTour("T", assetName)))
			},
			marker: services.ErrNotFound,
		},
		{
			name: "asset hash mismatch",
			build: func(t *testing.T, w *bundle.Writer) {
				entry := addTour(t, w, testsupport.NewTour("T", assetName))
				if err := w.AddBytes(assetName, []byte("not A")); err != nil {
					t.Fatal(err)
				}
				addIndex(t, w, entry)
			},
			marker: services.ErrMalformedInput,
		},
		{
			name: "uncontent-addressed reference",
			build: func(t *testing.T, w *bundle.Writer) {
				entry := addTour(t, w, testsupport.NewTour("T", "photo.jpg"))
				if err := w.AddBytes("photo.jpg", []byte("A")); err != nil {
					t.Fatal(err)
				}
				addIndex(t, w, entry)
			},
			marker: services.ErrMalformedInput,
		},
		{
			name: "tour hash mismatch",
			build: func(t *testing.T, w *bundle.Writer) {
				data, err := tour.Encode(testsupport.NewTour("T"))
				if err != nil {
					t.Fatal(err)
				}
				name := bundle.TourEntryName(testsupport.SHA256("something else"))
				if err := w.AddBytes(name, data); err != nil {
					t.Fatal(err)
				}
				addIndex(t, w, tour.IndexEntry{Name: "T", Content: tour.AssetName(name)})
			},
			marker: services.ErrMalformedInput,
		},
		{
			name: "index name mismatch",
			build: func(t *testing.T, w *bundle.Writer) {
				entry := addTour(t, w, testsupport.NewTour("T"))
				entry.Name = "Other"
				addIndex(t, w, entry)
			},
			marker: services.ErrMalformedInput,
		},
		{
			name: "bad sidecar",
			build: func(t *testing.T, w *bundle.Writer) {
				entry := addTour(t, w, testsupport.NewTour("T", assetName))
				if err := w.AddBytes(assetName, []byte("A")); err != nil {
					t.Fatal(err)
				}
				if err := w.AddBytes(assetName+".meta.json", []byte("[1,2]")); err != nil {
					t.Fatal(err)
				}
				addIndex(t, w, entry)
			},
			marker: services.ErrMalformedInput,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := handBuilt(t, func(w *bundle.Writer) { tc.build(t, w) })
			_, err := bundle.Verify(bytes.NewReader(data), int64(len(data)), "")
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestVerifyReportsOrphans(t *testing.T) {
	data := handBuilt(t, func(w *bundle.Writer) {
		entry := addTour(t, w, testsupport.NewTour("T"))
		if err := w.AddBytes("stray.bin", []byte("x")); err != nil {
			t.Fatal(err)
		}
		addIndex(t, w, entry)
	})
	report, err := bundle.Verify(bytes.NewReader(data), int64(len(data)), "")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if len(report.Orphans) != 1 || report.Orphans[0] != "stray.bin" {
		t.Fatalf("orphans = %v", report.Orphans)
	}
}

func TestVerifyRejectsNonZip(t *testing.T) {
	data := []byte("definitely not a zip archive")
	if _, err := bundle.Verify(bytes.NewReader(data), int64(len(data)), ""); !errors.Is(err, services.ErrMalformedInput) {
		t.Fatalf("expected malformed input, got %v", err)
	}
}
