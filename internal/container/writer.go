package container

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Writer streams entries into a new container.
type Writer struct {
	zw     *zip.Writer
	method Method
	names  map[string]struct{}
}

// NewWriter returns a Writer that writes a container to w, compressing new
// entries with method.
func NewWriter(w io.Writer, method Method) *Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	return &Writer{
		zw:     zw,
		method: method,
		names:  make(map[string]struct{}),
	}
}

// Has reports whether an entry named name has already been written.
func (w *Writer) Has(name string) bool {
	_, ok := w.names[name]
	return ok
}

// Create adds an entry and returns a writer for its content. The content
// must be written before the next call to Create, CopyRaw or Close.
func (w *Writer) Create(name string, modified time.Time, mode fs.FileMode) (io.Writer, error) {
	if w.Has(name) {
		return nil, fmt.Errorf("duplicate container entry %q", name)
	}
	fh := &zip.FileHeader{
		Name:     name,
		Method:   w.method.zipMethod(),
		Modified: modified,
	}
	if mode != 0 {
		fh.SetMode(mode.Perm())
	}
	ew, err := w.zw.CreateHeader(fh)
	if err != nil {
		return nil, fmt.Errorf("creating entry %s: %w", name, err)
	}
	w.names[name] = struct{}{}
	return ew, nil
}

// WriteFile adds an entry holding data.
func (w *Writer) WriteFile(name string, data []byte, modified time.Time) error {
	ew, err := w.Create(name, modified, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(ew, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing entry %s: %w", name, err)
	}
	return nil
}

// CopyRaw copies e into the container without recompressing it. Header,
// compressed bytes and checksum are carried over verbatim.
func (w *Writer) CopyRaw(e Entry) error {
	if w.Has(e.Name()) {
		return fmt.Errorf("duplicate container entry %q", e.Name())
	}
	if err := w.zw.Copy(e.file); err != nil {
		return fmt.Errorf("copying entry %s: %w", e.Name(), err)
	}
	w.names[e.Name()] = struct{}{}
	return nil
}

// Close writes the central directory. It does not close the underlying
// io.Writer.
func (w *Writer) Close() error {
	return w.zw.Close()
}
