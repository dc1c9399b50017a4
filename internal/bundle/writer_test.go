package bundle_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"otb/internal/bundle"
	"otb/internal/services"
)

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if f.Method != zip.Store {
			t.Fatalf("entry %s uses method %d, want stored", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		if _, dup := out[f.Name]; dup {
			t.Fatalf("duplicate entry %s", f.Name)
		}
		out[f.Name] = content
	}
	return out
}

func TestWriterStoresEntriesUncompressed(t *testing.T) {
	var buf bytes.Buffer
	w := bundle.NewWriter(&buf)
	payload := strings.Repeat("compressible ", 100)
	if err := w.AddBytes("a.txt", []byte(payload)); err != nil {
		t.Fatalf("AddBytes returned error: %v", err)
	}
	n, err := w.AddEntry("b.bin", strings.NewReader("bee"))
	if err != nil {
		t.Fatalf("AddEntry returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("AddEntry wrote %d bytes, want 3", n)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if w.Len() != 2 || w.Bytes() != int64(len(payload)+3) {
		t.Fatalf("unexpected counters len=%d bytes=%d", w.Len(), w.Bytes())
	}

	entries := readZip(t, buf.Bytes())
	if string(entries["a.txt"]) != payload || string(entries["b.bin"]) != "bee" {
		t.Fatalf("unexpected entries %v", entries)
	}
	if buf.Len() < len(payload) {
		t.Fatalf("archive smaller than payload, entries were compressed")
	}
}

func TestWriterRejectsDuplicateEntry(t *testing.T) {
	var buf bytes.Buffer
	w := bundle.NewWriter(&buf)
	if err := w.AddBytes("x", []byte("1")); err != nil {
		t.Fatalf("AddBytes returned error: %v", err)
	}
	err := w.AddBytes("x", []byte("2"))
	if !errors.Is(err, services.ErrArchiveProtocol) {
		t.Fatalf("expected archive protocol violation, got %v", err)
	}
	if !w.Has("x") || w.Len() != 1 {
		t.Fatal("duplicate must not add a second entry")
	}
}

func TestWriterRejectsWritesAfterFinish(t *testing.T) {
	var buf bytes.Buffer
	w := bundle.NewWriter(&buf)
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if err := w.AddBytes("late", nil); !errors.Is(err, services.ErrArchiveProtocol) {
		t.Fatalf("expected archive protocol violation, got %v", err)
	}
	if err := w.Finish(); !errors.Is(err, services.ErrArchiveProtocol) {
		t.Fatalf("expected archive protocol violation on second Finish, got %v", err)
	}
	if len(readZip(t, buf.Bytes())) != 0 {
		t.Fatal("expected empty archive")
	}
}

func TestWriterRejectsUnsafeNames(t *testing.T) {
	var buf bytes.Buffer
	w := bundle.NewWriter(&buf)
	for _, name := range []string{"", "/abs", "../escape", "a/../../b", `win\path`} {
		if err := w.AddBytes(name, []byte("x")); !errors.Is(err, services.ErrArchiveProtocol) {
			t.Fatalf("AddBytes(%q): expected archive protocol violation, got %v", name, err)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterIOErrorIsSticky(t *testing.T) {
	w := bundle.NewWriter(failingWriter{})
	err := w.AddBytes("a", bytes.Repeat([]byte("x"), 1<<20))
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io failure, got %v", err)
	}
	if err := w.AddBytes("b", []byte("y")); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected sticky io failure, got %v", err)
	}
	if err := w.Finish(); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected Finish to report the io failure, got %v", err)
	}
}
