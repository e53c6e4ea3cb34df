package manifest

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fyrsmithlabs/codex/internal/sanitize"
)

const (
	// EntryName is the reserved container entry holding the manifest.
	EntryName = "manifest.json"

	// SchemaVersion is the schema written by this release.
	SchemaVersion = "2"

	// schemaV1 is the first .codex layout ({"version": "1.x", ...}).
	schemaV1 = "1"
)

// Vault is the manifest document.
type Vault struct {
	SchemaVersion string    `json:"schemaVersion"`
	Projects      []Project `json:"projects"`
}

// Project is one managed project.
type Project struct {
	// ID is the opaque identifier assigned at creation.
	ID string `json:"id"`

	// Name is the display name. Not unique.
	Name string `json:"name"`

	Description string `json:"description"`

	// EntryPoint is the script to execute, relative to the project root.
	// Advisory only: it is not checked against the stored files.
	EntryPoint string `json:"entryPoint"`

	// NamespacePrefix is always ID + "/".
	NamespacePrefix string `json:"namespacePrefix"`

	// CreatedAt is when the project was ingested. Zero for migrated projects.
	CreatedAt time.Time `json:"createdAt,omitzero"`

	// Source describes where the files were ingested from, when known.
	Source *Source `json:"source,omitempty"`
}

// Source records the origin of a project's files.
type Source struct {
	Path   string `json:"path"`
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
}

// New returns an empty vault in the current schema.
func New() *Vault {
	return &Vault{
		SchemaVersion: SchemaVersion,
		Projects:      []Project{},
	}
}

// Prefix returns the namespace prefix for a project id.
func Prefix(id string) string {
	return id + "/"
}

// Find returns the project with the given id.
func (v *Vault) Find(id string) (Project, bool) {
	for _, p := range v.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// Sorted returns the projects ordered by name, case-insensitively. Projects
// with equal names keep their manifest order.
func (v *Vault) Sorted() []Project {
	out := slices.Clone(v.Projects)
	slices.SortStableFunc(out, func(a, b Project) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

// Clone returns a deep copy of v.
func (v *Vault) Clone() *Vault {
	out := &Vault{
		SchemaVersion: v.SchemaVersion,
		Projects:      make([]Project, len(v.Projects)),
	}
	for i, p := range v.Projects {
		if p.Source != nil {
			src := *p.Source
			p.Source = &src
		}
		out.Projects[i] = p
	}
	return out
}

// With returns a copy of v with p appended.
func (v *Vault) With(p Project) *Vault {
	out := v.Clone()
	out.Projects = append(out.Projects, p)
	return out
}

// Without returns a copy of v with the project id removed. The boolean is
// false when no such project exists.
func (v *Vault) Without(id string) (*Vault, bool) {
	out := v.Clone()
	idx := slices.IndexFunc(out.Projects, func(p Project) bool { return p.ID == id })
	if idx < 0 {
		return out, false
	}
	out.Projects = slices.Delete(out.Projects, idx, idx+1)
	return out, true
}

// Prefixes returns the namespace prefixes of every project.
func (v *Vault) Prefixes() []string {
	out := make([]string, 0, len(v.Projects))
	for _, p := range v.Projects {
		out = append(out, p.NamespacePrefix)
	}
	return out
}

// Validate checks the document invariants: known schema, unique non-empty
// ids and prefixes equal to id + "/".
func (v *Vault) Validate() error {
	if v.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported schema version %q", v.SchemaVersion)
	}
	seen := make(map[string]struct{}, len(v.Projects))
	for i, p := range v.Projects {
		if p.ID == "" {
			return fmt.Errorf("project %d has no id", i)
		}
		if err := sanitize.ValidateSegment(p.ID); err != nil {
			return fmt.Errorf("project id %q: %w", p.ID, err)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate project id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.NamespacePrefix != Prefix(p.ID) {
			return fmt.Errorf("project %s: namespace prefix %q does not match id", p.ID, p.NamespacePrefix)
		}
	}
	return nil
}

var errNoManifest = errors.New("manifest entry " + EntryName + " is missing")
