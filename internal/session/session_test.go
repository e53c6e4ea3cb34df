package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/codex/internal/config"
	"github.com/fyrsmithlabs/codex/internal/logging"
	"github.com/fyrsmithlabs/codex/internal/vault"
)

func newTestSession(t *testing.T) (*Session, *logging.TestLogger) {
	t.Helper()
	cfg := config.Default()
	cfg.Vault.ScratchRoot = filepath.Join(t.TempDir(), "scratch")
	logger := logging.NewTestLogger()

	s, err := New(cfg, logger.Logger)
	require.NoError(t, err)
	return s, logger
}

func addProject(t *testing.T, v *vault.Vault, name string) string {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.py"), []byte("print('"+name+"')\n"), 0o644))
	id, err := v.AddProject(context.Background(), vault.AddRequest{SourceDir: src, Name: name})
	require.NoError(t, err)
	return id
}

func TestNew_InvalidCompression(t *testing.T) {
	cfg := config.Default()
	cfg.Vault.Compression = "lzma"

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault.compression")
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, config.Default().Vault.ScratchRoot, s.Options().ScratchRoot)
}

func TestVault_NoneOpen(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.Vault()
	assert.ErrorIs(t, err, ErrNoVault)

	_, err = s.Extract(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNoVault)
}

func TestOpen_ReplacesCurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)
	dir := t.TempDir()

	first, err := s.Create(ctx, filepath.Join(dir, "a.codex"))
	require.NoError(t, err)
	current, err := s.Vault()
	require.NoError(t, err)
	assert.Same(t, first, current)

	_, err = s.Create(ctx, filepath.Join(dir, "b.codex"))
	require.NoError(t, err)

	second, err := s.Open(ctx, filepath.Join(dir, "a.codex"))
	require.NoError(t, err)
	current, err = s.Vault()
	require.NoError(t, err)
	assert.Same(t, second, current)
	assert.Equal(t, first.Path(), current.Path())
}

func TestOpen_FailureKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)

	v, err := s.Create(ctx, filepath.Join(t.TempDir(), "a.codex"))
	require.NoError(t, err)

	_, err = s.Open(ctx, filepath.Join(t.TempDir(), "missing.codex"))
	assert.ErrorIs(t, err, vault.ErrInvalidArchive)

	current, err := s.Vault()
	require.NoError(t, err)
	assert.Same(t, v, current)
}

func TestShutdown_RemovesScratchDirs(t *testing.T) {
	ctx := context.Background()
	s, logger := newTestSession(t)

	v, err := s.Create(ctx, filepath.Join(t.TempDir(), "s.codex"))
	require.NoError(t, err)
	idA := addProject(t, v, "alpha")
	idB := addProject(t, v, "beta")

	extA, err := s.Extract(ctx, idA)
	require.NoError(t, err)
	extB, err := s.Extract(ctx, idB)
	require.NoError(t, err)
	_, err = s.Extract(ctx, idA)
	require.NoError(t, err)

	assert.Equal(t, []string{extA.Dir, extB.Dir}, s.ScratchDirs())
	assert.DirExists(t, extA.Dir)
	assert.DirExists(t, extB.Dir)

	require.NoError(t, s.Shutdown(ctx))
	assert.NoDirExists(t, extA.Dir)
	assert.NoDirExists(t, extB.Dir)
	assert.Empty(t, s.ScratchDirs())
	logger.AssertLogged(t, zapcore.InfoLevel, "session shut down")

	_, err = s.Vault()
	assert.ErrorIs(t, err, ErrNoVault)

	require.NoError(t, s.Shutdown(ctx), "second shutdown is a no-op")
}

func TestKeep(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)

	v, err := s.Create(ctx, filepath.Join(t.TempDir(), "k.codex"))
	require.NoError(t, err)
	ext, err := s.Extract(ctx, addProject(t, v, "kept"))
	require.NoError(t, err)

	s.Keep(ext.Dir)
	require.NoError(t, s.Shutdown(ctx))
	assert.FileExists(t, filepath.Join(ext.Dir, "main.py"))
}

func TestConfigure(t *testing.T) {
	s, _ := newTestSession(t)
	assert.False(t, s.Options().RespectIgnore)
	assert.Equal(t, vault.SecretsOff, s.Options().SecretPolicy)

	s.Configure(func(o *vault.Options) {
		o.RespectIgnore = true
		o.SecretPolicy = vault.SecretsBlock
	})
	assert.True(t, s.Options().RespectIgnore)
	assert.Equal(t, vault.SecretsBlock, s.Options().SecretPolicy)
}

func TestNew_SecretPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Vault.SecretScan = "warn"
	s, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, vault.SecretsWarn, s.Options().SecretPolicy)
	assert.NotNil(t, s.Options().NewScanner)

	cfg.Vault.SecretScan = "loud"
	_, err = New(cfg, nil)
	assert.ErrorContains(t, err, "vault.secret_scan")
}
