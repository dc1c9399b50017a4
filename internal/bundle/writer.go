package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"otb/internal/services"
)

// Writer is a sequential zip sink. Entries are stored uncompressed: assets
// are usually compressed media already and tour documents are small. Entry
// names must be unique and nothing may be written after Finish.
type Writer struct {
	zw       *zip.Writer
	names    map[string]struct{}
	bytes    int64
	finished bool
	err      error
}

// NewWriter starts a new archive on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		zw:    zip.NewWriter(w),
		names: make(map[string]struct{}),
	}
}

// AddEntry copies r into a new entry called name and returns the number of
// bytes written.
func (w *Writer) AddEntry(name string, r io.Reader) (int64, error) {
	if err := w.checkWritable(name); err != nil {
		return 0, err
	}
	dst, err := w.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		w.err = services.Wrap(services.ErrIO, "bundle writer", "add entry", name, err)
		return 0, w.err
	}
	w.names[name] = struct{}{}
	n, err := io.Copy(dst, r)
	w.bytes += n
	if err != nil {
		w.err = services.Wrap(services.ErrIO, "bundle writer", "add entry", name, err)
		return n, w.err
	}
	return n, nil
}

// AddBytes stores data under name.
func (w *Writer) AddBytes(name string, data []byte) error {
	_, err := w.AddEntry(name, bytes.NewReader(data))
	return err
}

// Has reports whether an entry called name has been written.
func (w *Writer) Has(name string) bool {
	_, ok := w.names[name]
	return ok
}

// Len returns the number of entries written so far.
func (w *Writer) Len() int {
	return len(w.names)
}

// Bytes returns the total payload bytes written so far.
func (w *Writer) Bytes() int64 {
	return w.bytes
}

// Finish writes the central directory and seals the archive. It does not
// close the underlying writer.
func (w *Writer) Finish() error {
	if w.finished {
		return services.Wrap(services.ErrArchiveProtocol, "bundle writer", "finish", "archive already sealed", nil)
	}
	if w.err != nil {
		return w.err
	}
	w.finished = true
	if err := w.zw.Close(); err != nil {
		w.err = services.Wrap(services.ErrIO, "bundle writer", "finish", "", err)
		return w.err
	}
	return nil
}

func (w *Writer) checkWritable(name string) error {
	if w.finished {
		return services.Wrap(services.ErrArchiveProtocol, "bundle writer", "add entry", fmt.Sprintf("%s: archive already sealed", name), nil)
	}
	if w.err != nil {
		return w.err
	}
	if err := validateEntryName(name); err != nil {
		return services.Wrap(services.ErrArchiveProtocol, "bundle writer", "add entry", fmt.Sprintf("%q", name), err)
	}
	if _, dup := w.names[name]; dup {
		return services.Wrap(services.ErrArchiveProtocol, "bundle writer", "add entry", fmt.Sprintf("duplicate entry %q", name), nil)
	}
	return nil
}

func validateEntryName(name string) error {
	switch {
	case name == "":
		return errors.New("empty entry name")
	case strings.HasPrefix(name, "/"):
		return errors.New("absolute entry name")
	case strings.Contains(name, "\\"):
		return errors.New("entry name contains a backslash")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return errors.New("entry name escapes the archive root")
		}
	}
	return nil
}
