package vault

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/codex/internal/manifest"
	"github.com/fyrsmithlabs/codex/internal/sanitize"
	"github.com/fyrsmithlabs/codex/pkg/secrets"
)

var (
	// ErrInvalidArchive indicates the container is unreadable or its
	// manifest is missing or malformed.
	ErrInvalidArchive = manifest.ErrInvalidArchive

	// ErrProjectNotFound indicates no project has the requested id.
	ErrProjectNotFound = errors.New("project not found")

	// ErrAmbiguousID indicates an id prefix matches more than one project.
	ErrAmbiguousID = errors.New("ambiguous project id")

	// ErrIOFailure indicates a filesystem read, write or rename failed.
	ErrIOFailure = errors.New("vault i/o failure")

	// ErrSecretsFound indicates a blocking secret scan flagged project files.
	ErrSecretsFound = errors.New("potential secrets found")

	// ErrInvalidName indicates a project name cannot be used as a directory name.
	ErrInvalidName = sanitize.ErrInvalidName
)

// ArchiveError carries the display name of an invalid container.
type ArchiveError = manifest.ArchiveError

// IOError records the operation and path of a filesystem failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is makes every IOError match ErrIOFailure.
func (e *IOError) Is(target error) bool {
	return target == ErrIOFailure
}

// ioErr wraps err as an *IOError unless it already is one.
func ioErr(op, path string, err error) error {
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// SecretsError lists the findings that blocked an ingestion.
type SecretsError struct {
	Findings []secrets.Finding
}

func (e *SecretsError) Error() string {
	return fmt.Sprintf("%d potential secret(s) found:\n%s", len(e.Findings), secrets.Summarize(e.Findings))
}

// Is makes every SecretsError match ErrSecretsFound.
func (e *SecretsError) Is(target error) bool {
	return target == ErrSecretsFound
}
