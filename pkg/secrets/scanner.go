package secrets

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

const (
	// MaxScanSize is the largest file scanned. Larger files are skipped.
	MaxScanSize = 1 << 20

	// binarySniffLen bytes are checked for NUL to skip binary files.
	binarySniffLen = 8000
)

// Finding is a detected secret. The secret value itself is never kept.
type Finding struct {
	Path        string `json:"path"`
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Line        int    `json:"line"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d: %s", f.Path, f.Line, f.RuleID)
}

// Scanner checks file contents against the Gitleaks rule set.
// A Scanner is not safe for concurrent use.
type Scanner struct {
	detector *detect.Detector
	paths    []*regexp.Regexp
}

// NewScanner builds a scanner with the default Gitleaks rules plus the
// given allowlist. allow may be nil.
func NewScanner(allow *Allowlist) (*Scanner, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load detection rules: %w", err)
	}

	s := &Scanner{detector: detector}
	if allow == nil {
		return s, nil
	}

	if s.paths, err = compileAll(allow.Paths); err != nil {
		return nil, err
	}
	regexes, err := compileAll(allow.Regexes)
	if err != nil {
		return nil, err
	}
	if len(regexes) > 0 {
		global := &gitleaksConfig.Allowlist{Description: "codex allowlist"}
		for _, re := range regexes {
			global.Regexes = append(global.Regexes, (*gitleaksRegexp.Regexp)(re))
		}
		global.StopWords = append(global.StopWords, allow.Regexes...)
		detector.Config.Allowlists = append(detector.Config.Allowlists, global)
	}
	return s, nil
}

// Scan returns the findings in content. path is the slash-separated path
// relative to the source root; allowlisted paths, binary files and files
// over MaxScanSize yield no findings.
func (s *Scanner) Scan(path string, content []byte) []Finding {
	if len(content) > MaxScanSize || isBinary(content) || s.pathAllowed(path) {
		return nil
	}

	var out []Finding
	for _, f := range s.detector.DetectString(string(content)) {
		out = append(out, Finding{
			Path:        path,
			RuleID:      f.RuleID,
			Description: f.Description,
			Line:        f.StartLine,
		})
	}
	return out
}

func (s *Scanner) pathAllowed(path string) bool {
	for _, re := range s.paths {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func isBinary(content []byte) bool {
	return bytes.IndexByte(content[:min(len(content), binarySniffLen)], 0) >= 0
}

// Summarize renders findings one per line.
func Summarize(findings []Finding) string {
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}
