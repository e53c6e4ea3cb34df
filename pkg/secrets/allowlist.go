package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ProjectAllowlistFile is read from the root of a scanned source tree.
const ProjectAllowlistFile = ".gitleaks.toml"

// Allowlist holds patterns excluded from secret detection.
type Allowlist struct {
	// Paths are regexes matched against slash-separated file paths
	// relative to the source root.
	Paths []string

	// Regexes are matched against detected secrets and their lines.
	Regexes []string
}

// allowlistFile is the on-disk layout shared with Gitleaks.
type allowlistFile struct {
	Allowlist struct {
		Paths   []string `toml:"paths"`
		Regexes []string `toml:"regexes"`
	} `toml:"allowlist"`
}

// LoadAllowlists merges the project allowlist in sourceDir with the user
// allowlist at userPath. Either argument may be empty; missing files are
// skipped.
func LoadAllowlists(sourceDir, userPath string) (*Allowlist, error) {
	merged := &Allowlist{Paths: []string{}, Regexes: []string{}}

	var files []string
	if sourceDir != "" {
		files = append(files, filepath.Join(sourceDir, ProjectAllowlistFile))
	}
	if userPath != "" {
		files = append(files, userPath)
	}

	for _, path := range files {
		a, err := loadTOML(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merged.Paths = append(merged.Paths, a.Paths...)
		merged.Regexes = append(merged.Regexes, a.Regexes...)
	}
	return merged, nil
}

func loadTOML(path string) (*Allowlist, error) {
	var f allowlistFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	a := &Allowlist{Paths: f.Allowlist.Paths, Regexes: f.Allowlist.Regexes}
	if _, err := compileAll(a.Paths); err != nil {
		return nil, fmt.Errorf("%w: path pattern in %s", err, path)
	}
	if _, err := compileAll(a.Regexes); err != nil {
		return nil, fmt.Errorf("%w: content pattern in %s", err, path)
	}
	return a, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w '%s': %v", ErrInvalidRegex, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
