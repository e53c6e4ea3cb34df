package container

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// ErrEntryNotFound is returned by Reader.Open and Reader.ReadFile when the
// container has no entry with the requested name.
var ErrEntryNotFound = errors.New("container entry not found")

// Entry is a single stored item of a container.
type Entry struct {
	file *zip.File
}

// Name returns the entry's full name inside the container.
func (e Entry) Name() string {
	return e.file.Name
}

// IsDir reports whether the entry is a directory marker. Directory entries
// carry no content and are informational only.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.file.Name, "/")
}

// Size returns the uncompressed size of the entry.
func (e Entry) Size() int64 {
	return int64(e.file.UncompressedSize64)
}

// Modified returns the entry's modification time.
func (e Entry) Modified() time.Time {
	return e.file.Modified
}

// Mode returns the permission bits recorded for the entry, or 0 when the
// writer recorded none.
func (e Entry) Mode() fs.FileMode {
	return e.file.Mode().Perm()
}

// Open returns a reader for the decompressed entry content.
func (e Entry) Open() (io.ReadCloser, error) {
	return e.file.Open()
}

// Reader is an open container.
type Reader struct {
	rc      *zip.ReadCloser
	entries []Entry
	index   map[string]int
}

// Open opens the container at path for reading.
func Open(path string) (*Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening container %s: %w", path, err)
	}
	rc.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	r := &Reader{
		rc:      rc,
		entries: make([]Entry, 0, len(rc.File)),
		index:   make(map[string]int, len(rc.File)),
	}
	for _, f := range rc.File {
		// The last entry with a given name wins, matching how zip readers
		// resolve duplicates on extraction.
		r.index[f.Name] = len(r.entries)
		r.entries = append(r.entries, Entry{file: f})
	}
	return r, nil
}

// Entries returns every entry in archive order, directory markers included.
func (r *Reader) Entries() []Entry {
	return r.entries
}

// Lookup returns the entry with the given name.
func (r *Reader) Lookup(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Prefixed returns the non-directory entries whose name starts with prefix,
// in archive order.
func (r *Reader) Prefixed(prefix string) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Open opens the named entry for reading.
func (r *Reader) Open(name string) (io.ReadCloser, error) {
	e, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return e.Open()
}

// ReadFile returns the full decompressed content of the named entry.
func (r *Reader) ReadFile(name string) (data []byte, err error) {
	rc, err := r.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()
	return io.ReadAll(rc)
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.rc.Close()
}
