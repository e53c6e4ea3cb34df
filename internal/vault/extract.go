package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codex/internal/container"
	"github.com/fyrsmithlabs/codex/internal/logging"
	"github.com/fyrsmithlabs/codex/internal/manifest"
	"github.com/fyrsmithlabs/codex/internal/sanitize"
)

// Extraction is the result of materializing a project in its scratch
// directory.
type Extraction struct {
	// Dir is the scratch directory holding the project files.
	Dir string `json:"dir"`

	// EntryPoint is the project's configured entry point, relative to Dir.
	// It is not checked for existence.
	EntryPoint string `json:"entryPoint"`
}

// ScratchDir returns the scratch directory for a project id. The path is
// stable for an id, distinct across ids and always strictly inside the
// scratch root.
func (v *Vault) ScratchDir(id string) (string, error) {
	if err := sanitize.ValidateSegment(id); err != nil {
		return "", fmt.Errorf("%w: project id %q: %v", ErrInvalidArchive, id, err)
	}
	return sanitize.JoinWithin(v.opts.ScratchRoot, id)
}

// ExtractToScratch replaces the project's scratch directory with a fresh
// copy of its files. Anything previously in that directory is deleted, but
// only once the container has been opened.
func (v *Vault) ExtractToScratch(ctx context.Context, id string) (Extraction, error) {
	ctx, span := v.tracer.Start(ctx, "vault.extract")
	defer span.End()
	span.SetAttributes(attribute.String("project_id", id))
	ctx = logging.WithProjectID(logging.WithOperation(ctx, "extract"), id)

	p, err := v.Project(id)
	if err != nil {
		return Extraction{}, recordError(span, err)
	}
	dir, err := v.ScratchDir(p.ID)
	if err != nil {
		return Extraction{}, recordError(span, err)
	}

	n, err := v.withReader(func(r *container.Reader) (int, error) {
		if err := os.RemoveAll(dir); err != nil {
			return 0, ioErr("remove", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, ioErr("mkdir", dir, err)
		}
		return v.copyOut(ctx, r, p, dir)
	})
	if err != nil {
		return Extraction{}, recordError(span, err)
	}

	v.countFiles(ctx, "extract", n)
	v.logger.Debug(ctx, "project extracted", zap.String("dir", dir), zap.Int("files", n))
	return Extraction{Dir: dir, EntryPoint: p.EntryPoint}, nil
}

// withReader opens the container for the duration of fn.
func (v *Vault) withReader(fn func(r *container.Reader) (int, error)) (int, error) {
	r, err := container.Open(v.path)
	if err != nil {
		return 0, &ArchiveError{Name: filepath.Base(v.path), Err: err}
	}
	n, err := fn(r)
	if closeErr := r.Close(); closeErr != nil && err == nil {
		err = ioErr("close", v.path, closeErr)
	}
	return n, err
}

// copyOut writes every file of p into dest with the namespace prefix
// stripped, overwriting existing files. Entry names that would land outside
// dest make the container invalid.
func (v *Vault) copyOut(ctx context.Context, r *container.Reader, p manifest.Project, dest string) (int, error) {
	n := 0
	for _, e := range r.Prefixed(p.NamespacePrefix) {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		rel := strings.TrimPrefix(e.Name(), p.NamespacePrefix)
		target, err := sanitize.JoinWithin(dest, rel)
		if err != nil {
			return n, &ArchiveError{Name: filepath.Base(v.path), Err: err}
		}
		if err := writeEntry(e, target); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// writeEntry copies one entry to target, creating parent directories.
func writeEntry(e container.Entry, target string) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return ioErr("mkdir", filepath.Dir(target), err)
	}

	mode := e.Mode()
	if mode == 0 {
		mode = 0o644
	}

	in, err := e.Open()
	if err != nil {
		return ioErr("read entry", e.Name(), err)
	}
	defer func() {
		// Checksum mismatches surface on Close.
		if closeErr := in.Close(); closeErr != nil && err == nil {
			err = ioErr("read entry", e.Name(), closeErr)
		}
	}()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return ioErr("create", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		return ioErr("write", target, errors.Join(err, out.Close()))
	}
	if err := out.Close(); err != nil {
		return ioErr("write", target, err)
	}

	if mod := e.Modified(); !mod.IsZero() {
		if err := os.Chtimes(target, mod, mod); err != nil {
			return ioErr("chtimes", target, err)
		}
	}
	return nil
}
