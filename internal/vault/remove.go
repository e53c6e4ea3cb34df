package vault

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/codex/internal/logging"
	"github.com/fyrsmithlabs/codex/internal/manifest"
)

// RemoveProject drops the project and every file under its namespace in one
// rewrite.
func (v *Vault) RemoveProject(ctx context.Context, id string) error {
	ctx, span := v.tracer.Start(ctx, "vault.remove_project")
	defer span.End()
	span.SetAttributes(attribute.String("project_id", id))
	ctx = logging.WithProjectID(logging.WithOperation(ctx, "remove"), id)

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	next, ok := v.snapshot().Without(id)
	if !ok {
		return recordError(span, fmt.Errorf("%w: %s", ErrProjectNotFound, id))
	}
	if err := v.rewrite(ctx, next, manifest.Prefix(id), nil); err != nil {
		return recordError(span, err)
	}

	v.logger.Info(ctx, "project removed")
	return nil
}
