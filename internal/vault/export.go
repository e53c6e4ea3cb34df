package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codex/internal/container"
	"github.com/fyrsmithlabs/codex/internal/logging"
	"github.com/fyrsmithlabs/codex/internal/sanitize"
)

// ExportProject copies the project's files into dest, creating it when
// needed. Existing files are overwritten; unrelated files are left alone.
func (v *Vault) ExportProject(ctx context.Context, id, dest string) error {
	ctx, span := v.tracer.Start(ctx, "vault.export_project")
	defer span.End()
	span.SetAttributes(attribute.String("project_id", id))
	ctx = logging.WithProjectID(logging.WithOperation(ctx, "export"), id)

	p, err := v.Project(id)
	if err != nil {
		return recordError(span, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return recordError(span, ioErr("mkdir", dest, err))
	}

	n, err := v.withReader(func(r *container.Reader) (int, error) {
		return v.copyOut(ctx, r, p, dest)
	})
	if err != nil {
		return recordError(span, err)
	}

	v.countFiles(ctx, "export", n)
	v.logger.Info(ctx, "project exported", zap.String("dest", dest), zap.Int("files", n))
	return nil
}

// ExportAll exports every project, in name order, into destRoot/<name>,
// with path separators in the name replaced by '_'. Projects sharing a
// directory name are exported into the same directory.
func (v *Vault) ExportAll(ctx context.Context, destRoot string) error {
	ctx, span := v.tracer.Start(ctx, "vault.export_all")
	defer span.End()
	ctx = logging.WithOperation(ctx, "export-all")

	projects := v.Projects()
	span.SetAttributes(attribute.Int("project_count", len(projects)))

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return recordError(span, ioErr("mkdir", destRoot, err))
	}

	n, err := v.withReader(func(r *container.Reader) (int, error) {
		total := 0
		for _, p := range projects {
			name, err := sanitize.DirName(p.Name)
			if err != nil {
				return total, fmt.Errorf("project %s: %w", p.ID, err)
			}
			dest := filepath.Join(destRoot, name)
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return total, ioErr("mkdir", dest, err)
			}
			n, err := v.copyOut(logging.WithProjectID(ctx, p.ID), r, p, dest)
			total += n
			if err != nil {
				return total, err
			}
		}
		return total, nil
	})
	if err != nil {
		return recordError(span, err)
	}

	v.countFiles(ctx, "export", n)
	v.logger.Info(ctx, "all projects exported",
		zap.String("dest", destRoot),
		zap.Int("projects", len(projects)),
		zap.Int("files", n))
	return nil
}
