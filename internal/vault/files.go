package vault

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/fyrsmithlabs/codex/internal/container"
)

// FileInfo describes one stored file of a project.
type FileInfo struct {
	// Path is relative to the project root, slash-separated.
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Files lists the project's stored files ordered by path.
func (v *Vault) Files(ctx context.Context, id string) ([]FileInfo, error) {
	_, span := v.tracer.Start(ctx, "vault.files")
	defer span.End()

	p, err := v.Project(id)
	if err != nil {
		return nil, recordError(span, err)
	}

	var files []FileInfo
	_, err = v.withReader(func(r *container.Reader) (int, error) {
		for _, e := range r.Prefixed(p.NamespacePrefix) {
			rel := strings.TrimPrefix(e.Name(), p.NamespacePrefix)
			if rel == "" {
				continue
			}
			files = append(files, FileInfo{Path: rel, Size: e.Size(), Modified: e.Modified()})
		}
		return len(files), nil
	})
	if err != nil {
		return nil, recordError(span, err)
	}

	slices.SortFunc(files, func(a, b FileInfo) int {
		return strings.Compare(a.Path, b.Path)
	})
	return files, nil
}
