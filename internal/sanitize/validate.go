// Package sanitize validates the names that cross the boundary between a
// vault container and the local filesystem.
//
// Container entry names come from an archive that may have been produced by
// another tool, so they are treated as untrusted before being joined onto a
// destination directory. Project names become directory names on export.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Validation errors for security checks.
var (
	// ErrPathTraversal indicates a path contains directory traversal sequences.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrAbsolutePath indicates an absolute path was provided where relative was expected.
	ErrAbsolutePath = errors.New("absolute path not allowed")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrInvalidName indicates a project name cannot be used as a directory name.
	ErrInvalidName = errors.New("invalid project name")

	// ErrNotDirectory indicates a source path exists but is not a directory.
	ErrNotDirectory = errors.New("path must be a directory")
)

// maxNameLength bounds project names; most filesystems cap a path element at 255 bytes.
const maxNameLength = 255

// ValidateEntryPath checks a slash-separated path relative to a project root,
// as stored in a container after the namespace prefix is stripped.
func ValidateEntryPath(rel string) error {
	if rel == "" {
		return ErrEmptyPath
	}
	if strings.HasPrefix(rel, "/") || strings.Contains(rel, "\\") || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return fmt.Errorf("%w: %q", ErrAbsolutePath, rel)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q", ErrPathTraversal, rel)
		}
	}
	if path.Clean(rel) == "." {
		return fmt.Errorf("%w: %q", ErrEmptyPath, rel)
	}
	return nil
}

// JoinWithin joins a validated entry path onto root and confirms the result
// stays inside root.
func JoinWithin(root, rel string) (string, error) {
	if err := ValidateEntryPath(rel); err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(rel))

	back, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, rel)
	}
	if back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %s", ErrPathTraversal, rel, root)
	}
	return target, nil
}

// ValidateDisplayName checks a project display name. Any text is accepted
// except an empty or blank name, NUL bytes, and names over 255 bytes.
func ValidateDisplayName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: contains NUL", ErrInvalidName)
	case len(name) > maxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateProjectName checks that a project name is non-empty and usable as
// a single directory name.
func ValidateProjectName(name string) error {
	if err := ValidateDisplayName(name); err != nil {
		return err
	}
	if err := ValidateSegment(strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return nil
}

// DirName maps a display name onto a single directory name. Path
// separators become '_' and a name of only dots is replaced by underscores.
func DirName(name string) (string, error) {
	if err := ValidateDisplayName(name); err != nil {
		return "", err
	}
	dir := strings.NewReplacer("/", "_", `\`, "_").Replace(strings.TrimSpace(name))
	if dir == "." || dir == ".." {
		dir = strings.Repeat("_", len(dir))
	}
	if err := ValidateProjectName(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// ValidateSegment checks that s is one path element that cannot leave the
// directory it is joined onto.
func ValidateSegment(s string) error {
	switch {
	case s == "":
		return ErrEmptyPath
	case s == "." || s == "..":
		return fmt.Errorf("%w: %q", ErrPathTraversal, s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrPathTraversal, s)
	case strings.ContainsRune(s, 0):
		return fmt.Errorf("%w: contains NUL", ErrPathTraversal)
	case filepath.VolumeName(s) != "" || filepath.IsAbs(s):
		return fmt.Errorf("%w: %q", ErrAbsolutePath, s)
	}
	return nil
}

// ValidateSourceDir cleans path and checks that it names an existing directory.
func ValidateSourceDir(dir string) (string, error) {
	if dir == "" {
		return "", ErrEmptyPath
	}
	cleanPath, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", cleanPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, cleanPath)
	}
	return cleanPath, nil
}
