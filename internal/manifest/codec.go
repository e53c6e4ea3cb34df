package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// document is the on-disk shape accepted by Decode. It carries the fields of
// every known schema so a single unmarshal can feed the migration step.
type document struct {
	SchemaVersion string       `json:"schemaVersion"`
	Version       string       `json:"version"`
	Projects      []rawProject `json:"projects"`
}

type rawProject struct {
	Project

	// Schema 1 field names.
	LegacyEntryPoint *string `json:"entry_point"`
	LegacyPrefix     *string `json:"source_path_in_zip"`
}

// Encode serializes v as indented JSON. The document is validated first so
// an inconsistent manifest is never written.
func Encode(v *Vault) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to encode manifest: %w", err)
	}
	doc := v
	if doc.Projects == nil {
		doc = v.Clone()
		doc.Projects = []Project{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}

// Decode parses a manifest document of any known schema, migrates it to the
// current schema and validates it.
func Decode(r io.Reader) (*Vault, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("manifest is empty")
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	v, err := migrate(&doc)
	if err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return v, nil
}

// migrate converts a decoded document to the current schema.
func migrate(doc *document) (*Vault, error) {
	schema := doc.SchemaVersion
	if schema == "" && doc.Version != "" {
		schema = schemaV1
	}

	switch schema {
	case SchemaVersion:
		return fromCurrent(doc), nil
	case schemaV1:
		return fromV1(doc), nil
	case "":
		return nil, errors.New("manifest has no schema version")
	default:
		return nil, fmt.Errorf("unsupported schema version %q", schema)
	}
}

func fromCurrent(doc *document) *Vault {
	v := New()
	for _, rp := range doc.Projects {
		v.Projects = append(v.Projects, rp.Project)
	}
	return v
}

// fromV1 upgrades the schema 1 layout: entry_point becomes entryPoint and
// source_path_in_zip becomes namespacePrefix.
func fromV1(doc *document) *Vault {
	v := New()
	for _, rp := range doc.Projects {
		p := rp.Project
		if rp.LegacyEntryPoint != nil {
			p.EntryPoint = *rp.LegacyEntryPoint
		}
		switch {
		case rp.LegacyPrefix != nil:
			p.NamespacePrefix = *rp.LegacyPrefix
		case p.NamespacePrefix == "":
			p.NamespacePrefix = Prefix(p.ID)
		}
		// Schema 1 wrote OS-specific separators on some platforms.
		p.NamespacePrefix = strings.ReplaceAll(p.NamespacePrefix, "\\", "/")
		v.Projects = append(v.Projects, p)
	}
	return v
}
