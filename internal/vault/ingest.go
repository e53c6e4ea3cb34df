package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codex/internal/container"
	"github.com/fyrsmithlabs/codex/internal/ignore"
	"github.com/fyrsmithlabs/codex/internal/logging"
	"github.com/fyrsmithlabs/codex/internal/manifest"
	"github.com/fyrsmithlabs/codex/internal/sanitize"
	"github.com/fyrsmithlabs/codex/pkg/git"
)

// AddRequest describes a directory tree to ingest as a new project.
type AddRequest struct {
	// SourceDir is the root of the tree to ingest.
	SourceDir string

	// Name is the display name. Required; any text without NUL bytes up
	// to 255 bytes is accepted. ExportAll maps path separators in it to '_'
	// when it becomes a directory name.
	Name string

	Description string

	// EntryPoint is the script to run, relative to SourceDir. Not checked
	// against the ingested files.
	EntryPoint string
}

// sourceFile is a regular file found under the source root.
type sourceFile struct {
	path     string
	rel      string
	mode     fs.FileMode
	size     int64
	modified time.Time
}

// AddProject ingests req.SourceDir as a new project and returns its id.
//
// The files are streamed into the replacement container of a single
// rewrite. If any file cannot be read the operation fails with ErrIOFailure
// and the container on disk is unchanged.
func (v *Vault) AddProject(ctx context.Context, req AddRequest) (string, error) {
	ctx, span := v.tracer.Start(ctx, "vault.add_project")
	defer span.End()
	ctx = logging.WithOperation(ctx, "add")

	root, err := sanitize.ValidateSourceDir(req.SourceDir)
	if err != nil {
		return "", recordError(span, ioErr("stat", req.SourceDir, err))
	}

	name := strings.TrimSpace(req.Name)
	if err := sanitize.ValidateDisplayName(name); err != nil {
		return "", recordError(span, err)
	}

	entryPoint := filepath.ToSlash(strings.TrimSpace(req.EntryPoint))
	if entryPoint != "" {
		if err := sanitize.ValidateEntryPath(entryPoint); err != nil {
			return "", recordError(span, fmt.Errorf("entry point %q: %w", req.EntryPoint, err))
		}
	}

	files, err := v.collect(ctx, root)
	if err != nil {
		return "", recordError(span, err)
	}
	if err := v.scanSecrets(ctx, root, files); err != nil {
		return "", recordError(span, err)
	}

	id := uuid.New().String()
	ctx = logging.WithProjectID(ctx, id)
	span.SetAttributes(
		attribute.String("project_id", id),
		attribute.Int("file_count", len(files)),
	)

	p := manifest.Project{
		ID:              id,
		Name:            name,
		Description:     req.Description,
		EntryPoint:      entryPoint,
		NamespacePrefix: manifest.Prefix(id),
		CreatedAt:       time.Now().UTC(),
		Source:          v.describeSource(ctx, root),
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	next := v.snapshot().With(p)
	stage := func(w *container.Writer) error {
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := stageFile(w, p.NamespacePrefix, f); err != nil {
				return err
			}
		}
		return nil
	}
	if err := v.rewrite(ctx, next, "", stage); err != nil {
		return "", recordError(span, err)
	}

	v.countFiles(ctx, "add", len(files))
	v.logger.Info(ctx, "project added",
		zap.String("name", name),
		zap.Int("files", len(files)))
	return id, nil
}

// collect returns every regular file under root in lexical walk order.
// Symlinks to files are followed; symlinked directories are not descended.
func (v *Vault) collect(ctx context.Context, root string) ([]sourceFile, error) {
	var matcher *ignore.Matcher
	if v.opts.RespectIgnore {
		m, err := v.ignore.ParseProject(root)
		if err != nil {
			return nil, ioErr("read ignore files", root, err)
		}
		matcher = m
		v.logger.Debug(ctx, "ignore patterns loaded", zap.Int("patterns", m.Len()))
	}

	var files []sourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return ioErr("walk", path, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return ioErr("walk", path, err)
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		// Stat follows symlinks; Info on the entry would not.
		fi, err := os.Stat(path)
		if err != nil {
			return ioErr("stat", path, err)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		if matcher.Match(rel, false) {
			return nil
		}

		files = append(files, sourceFile{
			path:     path,
			rel:      rel,
			mode:     fi.Mode().Perm(),
			size:     fi.Size(),
			modified: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// stageFile streams one source file into w under prefix.
func stageFile(w *container.Writer, prefix string, f sourceFile) error {
	in, err := os.Open(f.path)
	if err != nil {
		return ioErr("open", f.path, err)
	}
	defer in.Close()

	out, err := w.Create(prefix+f.rel, f.modified, f.mode)
	if err != nil {
		return ioErr("stage", f.path, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		return ioErr("read", f.path, err)
	}
	return nil
}

// describeSource records where a project came from. Git metadata is added
// when root lies inside a work tree.
func (v *Vault) describeSource(ctx context.Context, root string) *manifest.Source {
	src := &manifest.Source{Path: root}

	info, err := git.Describe(root)
	if err != nil {
		if !errors.Is(err, git.ErrNotGitRepo) {
			v.logger.Debug(ctx, "skipping git metadata", zap.String("dir", root), zap.Error(err))
		}
		return src
	}
	src.Branch = info.Branch
	src.Commit = info.Commit
	return src
}
