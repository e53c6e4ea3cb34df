package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"empty line", "", ""},
		{"whitespace only", "   ", ""},
		{"comment", "# this is a comment", ""},
		{"negation kept", "!important.txt", "!important.txt"},
		{"trailing whitespace", "*.log  ", "*.log"},
		{"crlf", "dist/\r", "dist/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLine(tt.line))
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "# build\n__pycache__/\n*.pyc\n!keep.pyc\n")
	writeFile(t, filepath.Join(root, "sub", ".codexignore"), "local.txt\n")

	m, err := NewParser(nil, nil).ParseProject(root)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Len())

	tests := []struct {
		rel     string
		isDir   bool
		ignored bool
	}{
		{"main.py", false, false},
		{"mod.pyc", false, true},
		{"keep.pyc", false, false},
		{"__pycache__", true, true},
		{"pkg/__pycache__", true, true},
		{"sub/local.txt", false, true},
		{"local.txt", false, false},
		{".git", true, true},
		{".git/HEAD", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.ignored, m.Match(tt.rel, tt.isDir))
		})
	}
}

func TestParseProject_Fallback(t *testing.T) {
	root := t.TempDir()

	m, err := NewParser([]string{".gitignore"}, []string{"node_modules/", "# comment"}).ParseProject(root)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Match("node_modules", true))
	assert.False(t, m.Match("src", true))
}

func TestMatcher_Nil(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Match("anything", false))
	assert.Equal(t, 0, m.Len())
}
