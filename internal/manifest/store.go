package manifest

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fyrsmithlabs/codex/internal/container"
)

// Load opens the container at path and returns its decoded manifest. Every
// failure is an *ArchiveError matching ErrInvalidArchive.
func Load(path string) (*Vault, error) {
	r, err := container.Open(path)
	if err != nil {
		return nil, &ArchiveError{Name: filepath.Base(path), Err: err}
	}
	defer r.Close()

	v, err := Read(r)
	if err != nil {
		return nil, &ArchiveError{Name: filepath.Base(path), Err: err}
	}
	return v, nil
}

// Read decodes the manifest entry of an already open container.
func Read(r *container.Reader) (*Vault, error) {
	if _, ok := r.Lookup(EntryName); !ok {
		return nil, errNoManifest
	}
	rc, err := r.Open(EntryName)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	v, err := Decode(rc)
	if closeErr := rc.Close(); closeErr != nil {
		// A checksum mismatch surfaces on Close.
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
