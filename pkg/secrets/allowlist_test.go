package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadAllowlists(t *testing.T) {
	const project = `[allowlist]
paths = ['''fixtures/.*\.env''', '''docs/examples/.*''']
regexes = ['''DEMO_API_KEY''']
`
	const user = `[allowlist]
paths = ['''.*/demo-projects/.*''']
regexes = ['''MY_PERSONAL_DEMO_KEY''', '''EXAMPLE_.*''']
`

	tests := []struct {
		name        string
		project     string
		user        string
		wantPaths   int
		wantRegexes int
	}{
		{name: "project only", project: project, wantPaths: 2, wantRegexes: 1},
		{name: "user only", user: user, wantPaths: 1, wantRegexes: 2},
		{name: "union of both", project: project, user: user, wantPaths: 3, wantRegexes: 3},
		{name: "duplicates kept", project: user, user: user, wantPaths: 2, wantRegexes: 4},
		{name: "both missing"},
		{name: "empty sections", project: "[allowlist]\npaths = []\nregexes = []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			userPath := filepath.Join(dir, "user", "allowlist.toml")
			if tt.project != "" {
				writeFile(t, filepath.Join(dir, ProjectAllowlistFile), tt.project)
			}
			if tt.user != "" {
				if err := os.MkdirAll(filepath.Dir(userPath), 0o755); err != nil {
					t.Fatal(err)
				}
				writeFile(t, userPath, tt.user)
			}

			got, err := LoadAllowlists(dir, userPath)
			if err != nil {
				t.Fatalf("LoadAllowlists() error = %v", err)
			}
			if len(got.Paths) != tt.wantPaths {
				t.Errorf("got %d paths, want %d", len(got.Paths), tt.wantPaths)
			}
			if len(got.Regexes) != tt.wantRegexes {
				t.Errorf("got %d regexes, want %d", len(got.Regexes), tt.wantRegexes)
			}
		})
	}
}

func TestLoadAllowlists_EmptyArgs(t *testing.T) {
	got, err := LoadAllowlists("", "")
	if err != nil {
		t.Fatalf("LoadAllowlists() error = %v", err)
	}
	if got == nil || len(got.Paths) != 0 || len(got.Regexes) != 0 {
		t.Errorf("expected empty allowlist, got %+v", got)
	}
}

func TestLoadAllowlists_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		wantMsg string
	}{
		{
			name:    "malformed toml",
			content: "[allowlist\npaths = \"not a list\"\n",
			wantErr: ErrInvalidTOML,
		},
		{
			name:    "bad content regex",
			content: "[allowlist]\nregexes = ['''[unclosed bracket''']\n",
			wantErr: ErrInvalidRegex,
			wantMsg: "unclosed bracket",
		},
		{
			name:    "bad path regex",
			content: "[allowlist]\npaths = ['''[invalid(regex''']\n",
			wantErr: ErrInvalidRegex,
			wantMsg: "path pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, ProjectAllowlistFile), tt.content)

			_, err := LoadAllowlists(dir, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LoadAllowlists() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadAllowlists_PermissionDenied(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("skipping permission test when running as root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, ProjectAllowlistFile)
	writeFile(t, path, "[allowlist]\npaths = ['''test''']\n")
	if err := os.Chmod(path, 0); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(path, 0o600) })

	_, err := LoadAllowlists(dir, "")
	if err == nil {
		t.Fatal("LoadAllowlists() should fail on an unreadable file")
	}
	if errors.Is(err, ErrInvalidTOML) {
		t.Errorf("unreadable file reported as invalid TOML: %v", err)
	}
}
