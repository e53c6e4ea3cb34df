package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codex/internal/container"
	"github.com/fyrsmithlabs/codex/internal/manifest"
)

// stageFunc writes new entries into the replacement container before the
// existing entries are copied.
type stageFunc func(w *container.Writer) error

// rewrite replaces the container with one holding next, the entries staged
// by add, and every existing entry that still belongs to a project in next,
// except those under excludePrefix. Callers must hold writeMu.
func (v *Vault) rewrite(ctx context.Context, next *manifest.Vault, excludePrefix string, add stageFunc) error {
	src, err := container.Open(v.path)
	if err != nil {
		return ioErr("open", v.path, err)
	}
	defer src.Close()

	return v.commit(ctx, next, src, excludePrefix, add)
}

// commit writes the replacement container and renames it over the original.
// src may be nil when no container exists yet. The original file is never
// modified before the rename, and the rename is the commit point.
func (v *Vault) commit(ctx context.Context, next *manifest.Vault, src *container.Reader, excludePrefix string, add stageFunc) (err error) {
	ctx, span := v.tracer.Start(ctx, "vault.rewrite")
	defer span.End()
	span.SetAttributes(
		attribute.Int("project_count", len(next.Projects)),
		attribute.String("exclude_prefix", excludePrefix),
	)

	data, err := manifest.Encode(next)
	if err != nil {
		return recordError(span, err)
	}

	dir := filepath.Dir(v.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(v.path)+".*.tmp")
	if err != nil {
		return recordError(span, ioErr("create temp", dir, err))
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tmp.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			v.logger.Warn(ctx, "failed to remove temp container",
				zap.String("path", tmpPath), zap.Error(rmErr))
		}
	}()

	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(v.path); statErr == nil {
		mode = fi.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		return recordError(span, ioErr("chmod", tmpPath, err))
	}

	w := container.NewWriter(tmp, v.opts.Compression)
	if err := w.WriteFile(manifest.EntryName, data, time.Now()); err != nil {
		return recordError(span, ioErr("write", tmpPath, err))
	}

	if add != nil {
		if err := add(w); err != nil {
			return recordError(span, err)
		}
	}

	copied, pruned := 0, 0
	if src != nil {
		copied, pruned, err = copyRetained(w, src, next, excludePrefix)
		if err != nil {
			return recordError(span, ioErr("copy", v.path, err))
		}
	}

	if err := w.Close(); err != nil {
		return recordError(span, ioErr("write", tmpPath, err))
	}
	if err := tmp.Sync(); err != nil {
		return recordError(span, ioErr("sync", tmpPath, err))
	}
	if err := tmp.Close(); err != nil {
		return recordError(span, ioErr("close", tmpPath, err))
	}

	// Last chance to abandon the mutation. Past the rename it is committed.
	if err := ctx.Err(); err != nil {
		return recordError(span, err)
	}
	if v.beforeCommit != nil {
		if err := v.beforeCommit(tmpPath); err != nil {
			return recordError(span, err)
		}
	}

	if err := os.Rename(tmpPath, v.path); err != nil {
		return recordError(span, ioErr("rename", v.path, err))
	}
	committed = true

	if err := syncDir(dir); err != nil {
		v.logger.Warn(ctx, "failed to sync vault directory", zap.String("dir", dir), zap.Error(err))
	}

	v.mu.Lock()
	v.manifest = next
	v.mu.Unlock()

	if v.mutations != nil {
		v.mutations.Add(ctx, 1)
	}
	span.SetAttributes(attribute.Int("entries_copied", copied), attribute.Int("entries_pruned", pruned))
	v.logger.Debug(ctx, "vault rewritten",
		zap.Int("entries_copied", copied),
		zap.Int("entries_pruned", pruned))
	return nil
}

// copyRetained copies existing entries into w without recompression. The
// manifest, entries under excludePrefix, entries outside every project
// namespace of next and names already written are skipped. Duplicate names
// in src resolve to the last occurrence.
func copyRetained(w *container.Writer, src *container.Reader, next *manifest.Vault, excludePrefix string) (copied, pruned int, err error) {
	keep := make(map[string]struct{}, len(next.Projects))
	for _, prefix := range next.Prefixes() {
		keep[prefix] = struct{}{}
	}

	for _, e := range src.Entries() {
		name := e.Name()
		switch {
		case name == manifest.EntryName:
			continue
		case excludePrefix != "" && strings.HasPrefix(name, excludePrefix):
			pruned++
			continue
		case !retained(name, keep):
			pruned++
			continue
		case w.Has(name):
			continue
		}

		last, _ := src.Lookup(name)
		if err := w.CopyRaw(last); err != nil {
			return copied, pruned, err
		}
		copied++
	}
	return copied, pruned, nil
}

// retained reports whether name lives under one of the namespace prefixes.
func retained(name string, keep map[string]struct{}) bool {
	top, _, found := strings.Cut(name, "/")
	if !found {
		return false
	}
	_, ok := keep[top+"/"]
	return ok
}

// syncDir flushes directory metadata so a completed rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	return errors.Join(d.Sync(), d.Close())
}

// countFiles records n project files moved in or out of the container.
func (v *Vault) countFiles(ctx context.Context, op string, n int) {
	if v.filesWritten == nil || n == 0 {
		return
	}
	v.filesWritten.Add(ctx, int64(n), metric.WithAttributes(attribute.String("operation", op)))
}
