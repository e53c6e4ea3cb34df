package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/codex/internal/manifest"
	"github.com/fyrsmithlabs/codex/internal/vault"
)

// testEnv isolates config and scratch space for CLI tests.
type testEnv struct {
	dir     string
	scratch string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{dir: dir, scratch: filepath.Join(dir, "scratch")}
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("CODEX_VAULT_SCRATCH_ROOT", env.scratch)
	return env
}

func (e *testEnv) path(rel string) string {
	return filepath.Join(e.dir, rel)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI with args and tears the invocation down afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader("\n"))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	require.NoError(t, teardown())
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	require.NoError(t, err, out)
	return out
}

func writeProject(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func listProjects(t *testing.T, vaultPath string) []manifest.Project {
	t.Helper()
	var projects []manifest.Project
	require.NoError(t, json.Unmarshal([]byte(mustExecute(t, "list", vaultPath, "--json")), &projects))
	return projects
}

func TestNew(t *testing.T) {
	env := newTestEnv(t)
	vaultPath := env.path("projects.codex")

	out := mustExecute(t, "new", vaultPath)
	assert.Contains(t, out, "Created vault")
	assert.FileExists(t, vaultPath)

	_, err := execute(t, "new", vaultPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	mustExecute(t, "add", vaultPath, writeDir(t, env, "hello", map[string]string{"main.py": "print(1)\n"}))
	require.Len(t, listProjects(t, vaultPath), 1)

	mustExecute(t, "new", vaultPath, "--force")
	assert.Empty(t, listProjects(t, vaultPath))
}

func writeDir(t *testing.T, env *testEnv, name string, files map[string]string) string {
	t.Helper()
	dir := env.path(filepath.Join("src", name))
	writeProject(t, dir, files)
	return dir
}

func TestList_Empty(t *testing.T) {
	env := newTestEnv(t)
	vaultPath := env.path("empty.codex")
	mustExecute(t, "new", vaultPath)

	assert.Contains(t, mustExecute(t, "list", vaultPath), "No projects found")
}

func TestList_InvalidVault(t *testing.T) {
	env := newTestEnv(t)
	bogus := env.path("bogus.codex")
	require.NoError(t, os.WriteFile(bogus, []byte("not a container"), 0o644))

	_, err := execute(t, "list", bogus)
	require.Error(t, err)
	assert.ErrorIs(t, err, vault.ErrInvalidArchive)
}

func TestAdd_Defaults(t *testing.T) {
	env := newTestEnv(t)
	vaultPath := env.path("projects.codex")
	mustExecute(t, "new", vaultPath)

	src := writeDir(t, env, "weather", map[string]string{
		"app.py":      "print('app')\n",
		"fetch.py":    "print('fetch')\n",
		"data/a.json": "{}\n",
	})
	out := mustExecute(t, "add", vaultPath, src, "--description", "Checks the weather")
	assert.Contains(t, out, "Added project weather")

	projects := listProjects(t, vaultPath)
	require.Len(t, projects, 1)
	assert.Equal(t, "weather", projects[0].Name)
	assert.Equal(t, "app.py", projects[0].EntryPoint)
	assert.Equal(t, "Checks the weather", projects[0].Description)
}

func TestAdd_RespectIgnore(t *testing.T) {
	env := newTestEnv(t)
	vaultPath := env.path("projects.codex")
	mustExecute(t, "new", vaultPath)

	src := writeDir(t, env, "ignored", map[string]string{
		"main.py":    "print(1)\n",
		".gitignore": "*.log\n",
		"debug.log":  "noise\n",
	})
	mustExecute(t, "add", vaultPath, src, "--respect-ignore", "--name", "filtered")
	mustExecute(t, "add", vaultPath, src, "--name", "unfiltered")

	counts := map[string]int{}
	for _, p := range listProjects(t, vaultPath) {
		var files []vault.FileInfo
		require.NoError(t, json.Unmarshal([]byte(mustExecute(t, "files", vaultPath, p.ID, "--json")), &files))
		counts[p.Name] = len(files)
	}
	assert.Equal(t, map[string]int{"filtered": 2, "unfiltered": 3}, counts)
}

func TestShowAndFiles_ByPrefix(t *testing.T) {
	env := newTestEnv(t)
	vaultPath := env.path("projects.codex")
	mustExecute(t, "new", vaultPath)
	mustExecute(t, "add", vaultPath, writeDir(t, env, "calc", map[string]string{
		"main.py":     "print(2 + 2)\n",
		"lib/math.py": "def add(a, b): return a + b\n",
	}))

	projects := listProjects(t, vaultPath)
	require.Len(t, projects, 1)
	id := projects[0].ID

	out := mustExecute(t, "show", vaultPath, id[:8])
	assert.Contains(t, out, "ID: "+id)
	assert.Contains(t, out, "Name: calc")
	assert.Contains(t, out, "Entry point: main.py")

	out = mustExecute(t, "files", vaultPath, id[:8])
	assert.Contains(t, out, "lib/math.py")
	assert.Contains(t, out, "main.py")

	_, err := execute(t, "show", vaultPath, "zzzz")
	require.Error(t, err)
	assert.ErrorIs(t, err, vault.ErrProjectNotFound)
}

func TestExtract(t *testing.T) {
	env := newTestEnv(t)
	vaultPath := env.path("projects.codex")
	mustExecute(t, "new", vaultPath)
	mustExecute(t, "add", vaultPath, writeDir(t, env, "hello", map[string]string{"main.py": "print('hi')\n"}))
	id := listProjects(t, vaultPath)[0].ID

	var ext vault.Extraction
	require.NoError(t, json.Unmarshal([]byte(mustExecute(t, "extract", vaultPath, id, "--json")), &ext))
	assert.Equal(t, filepath.Join(env.scratch, id), ext.Dir)
	assert.Equal(t, "main.py", ext.EntryPoint)

	data, err := os.ReadFile(filepath.Join(ext.Dir, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(data))

	mustExecute(t, "clean")
	assert.NoDirExists(t, env.scratch)
}

func TestExtract_Hold(t *testing.T) {
	env := newTestEnv(t)
	vaultPath := env.path("projects.codex")
	mustExecute(t, "new", vaultPath)
	mustExecute(t, "add", vaultPath, writeDir(t, env, "hello", map[string]string{"main.py": "print('hi')\n"}))
	id := listProjects(t, vaultPath)[0].ID

	out := mustExecute(t, "extract", vaultPath, id, "--hold")
	assert.Contains(t, out, "Press Enter")
	assert.NoDirExists(t, filepath.Join(env.scratch, id))
}

func TestExportAndRemove(t *testing.T) {
	env := newTestEnv(t)
	vaultPath := env.path("projects.codex")
	mustExecute(t, "new", vaultPath)
	mustExecute(t, "add", vaultPath, writeDir(t, env, "one", map[string]string{"main.py": "1\n"}))
	mustExecute(t, "add", vaultPath, writeDir(t, env, "two", map[string]string{"main.py": "2\n", "sub/x.txt": "x\n"}))

	projects := listProjects(t, vaultPath)
	require.Len(t, projects, 2)
	assert.Equal(t, "one", projects[0].Name)
	assert.Equal(t, "two", projects[1].Name)

	dest := env.path("export-one")
	mustExecute(t, "export", vaultPath, projects[0].ID, dest)
	assert.FileExists(t, filepath.Join(dest, "main.py"))

	all := env.path("export-all")
	out := mustExecute(t, "export-all", vaultPath, all)
	assert.Contains(t, out, "Exported 2 project(s)")
	assert.FileExists(t, filepath.Join(all, "one", "main.py"))
	assert.FileExists(t, filepath.Join(all, "two", "sub", "x.txt"))

	mustExecute(t, "remove", vaultPath, projects[0].ID)
	remaining := listProjects(t, vaultPath)
	require.Len(t, remaining, 1)
	assert.Equal(t, "two", remaining[0].Name)

	_, err := execute(t, "remove", vaultPath, projects[0].ID)
	assert.ErrorIs(t, err, vault.ErrProjectNotFound)
}

func TestDetectEntryPoint(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{name: "main preferred", files: []string{"app.py", "main.py", "a.py"}, want: "main.py"},
		{name: "app second", files: []string{"app.py", "b.py"}, want: "app.py"},
		{name: "first script", files: []string{"zeta.py", "beta.py"}, want: "beta.py"},
		{name: "no scripts", files: []string{"README.md"}, want: ""},
		{name: "nested ignored", files: []string{"pkg/main.py"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			files := make(map[string]string, len(tt.files))
			for _, f := range tt.files {
				files[f] = ""
			}
			writeProject(t, dir, files)
			assert.Equal(t, tt.want, detectEntryPoint(dir))
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 3, "..."},
		{"hello", 2, ".."},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestAdd_ScanSecretsFlag(t *testing.T) {
	env := newTestEnv(t)
	vaultPath := env.path("projects.codex")
	mustExecute(t, "new", vaultPath)
	src := writeDir(t, env, "clean", map[string]string{"main.py": "print('ok')\n"})

	_, err := execute(t, "add", vaultPath, src, "--scan-secrets", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown secret policy")

	mustExecute(t, "add", vaultPath, src, "--scan-secrets", "block")
	assert.Len(t, listProjects(t, vaultPath), 1)
}
