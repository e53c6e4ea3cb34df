// Package manifest defines the vault's metadata document and its storage
// inside a container.
//
// The manifest lives at the reserved entry EntryName of every valid
// container. It lists the vault's projects; each project's files live in the
// same container under the project's namespace prefix ("{id}/").
//
// Documents are versioned. Decode runs an explicit migration step once, so
// documents written by older releases (schema "1", the first .codex
// format) are upgraded in memory and written back in the current schema on
// the next mutation. Nothing outside this package fills in defaults.
package manifest
