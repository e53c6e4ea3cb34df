// Package ignore provides gitignore-style filtering for project ingestion.
package ignore

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultIgnoreFiles are the ignore files honoured when none are configured.
var DefaultIgnoreFiles = []string{".gitignore", ".codexignore"}

// defaultSkipDirs are always skipped when filtering is enabled.
var defaultSkipDirs = map[string]bool{
	".git": true,
	".svn": true,
	".hg":  true,
}

// Parser reads and parses gitignore-style files.
type Parser struct {
	// IgnoreFiles is the list of ignore file names to look for in every directory.
	IgnoreFiles []string

	// FallbackPatterns apply at the root when no ignore files are found.
	FallbackPatterns []string
}

// NewParser creates a new ignore file parser with the given configuration.
func NewParser(ignoreFiles, fallbackPatterns []string) *Parser {
	if len(ignoreFiles) == 0 {
		ignoreFiles = DefaultIgnoreFiles
	}
	return &Parser{
		IgnoreFiles:      ignoreFiles,
		FallbackPatterns: fallbackPatterns,
	}
}

// Matcher decides whether a path relative to the project root is ignored.
type Matcher struct {
	m        gitignore.Matcher
	patterns int
}

// Match reports whether the slash-separated relative path is excluded.
func (m *Matcher) Match(rel string, isDir bool) bool {
	if m == nil {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if isDir && defaultSkipDirs[parts[len(parts)-1]] {
		return true
	}
	for _, part := range parts[:len(parts)-1] {
		if defaultSkipDirs[part] {
			return true
		}
	}
	return m.m.Match(parts, isDir)
}

// Len returns the number of loaded patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return m.patterns
}

// ParseProject reads every ignore file under projectRoot, scoping nested
// files to their directory the way git does, and returns a Matcher. If no
// ignore files are found, the fallback patterns apply at the root.
func (p *Parser) ParseProject(projectRoot string) (*Matcher, error) {
	var patterns []gitignore.Pattern

	err := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != projectRoot && defaultSkipDirs[d.Name()] {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return err
		}
		var domain []string
		if rel != "." {
			domain = strings.Split(filepath.ToSlash(rel), "/")
		}

		for _, name := range p.IgnoreFiles {
			lines, err := parseFile(filepath.Join(path, name))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return err
			}
			for _, line := range lines {
				patterns = append(patterns, gitignore.ParsePattern(line, domain))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(patterns) == 0 {
		for _, line := range p.FallbackPatterns {
			if line = parseLine(line); line != "" {
				patterns = append(patterns, gitignore.ParsePattern(line, nil))
			}
		}
	}

	return &Matcher{m: gitignore.NewMatcher(patterns), patterns: len(patterns)}, nil
}

// parseFile reads a single gitignore-style file and returns its pattern lines.
func parseFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := parseLine(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// parseLine returns the pattern on a line, or "" for comments and blank lines.
// Negations are kept; the matcher understands them.
func parseLine(line string) string {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	return line
}
