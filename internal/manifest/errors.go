package manifest

import (
	"errors"
	"fmt"
)

// ErrInvalidArchive marks a container that cannot be used as a vault: it is
// not a readable zip, has no manifest entry, or the manifest is malformed.
var ErrInvalidArchive = errors.New("invalid or corrupted vault file")

// ArchiveError reports why a container was rejected. Name is the container's
// display name (its base name), suitable for user-facing messages.
type ArchiveError struct {
	Name string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("'%s' is not a valid or is a corrupted vault file: %v", e.Name, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// Is makes every ArchiveError match ErrInvalidArchive.
func (e *ArchiveError) Is(target error) bool {
	return target == ErrInvalidArchive
}
