package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, filepath.Join(os.TempDir(), "codex"), cfg.Vault.ScratchRoot)
	assert.Equal(t, "deflate", cfg.Vault.Compression)
	assert.False(t, cfg.Vault.RespectIgnore)
	assert.Equal(t, []string{".gitignore", ".codexignore"}, cfg.Vault.IgnoreFiles)
	assert.Equal(t, "off", cfg.Vault.SecretScan)
	assert.Equal(t, "~/.config/codex/allowlist.toml", cfg.Vault.SecretAllowlist)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "grpc", cfg.Telemetry.Protocol)
	assert.Equal(t, "codex", cfg.Telemetry.ServiceName)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.ShutdownTimeout.Duration())
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zstd compression", func(c *Config) { c.Vault.Compression = "zstd" }, ""},
		{"uppercase compression", func(c *Config) { c.Vault.Compression = "STORE" }, ""},
		{"unknown compression", func(c *Config) { c.Vault.Compression = "lzma" }, "vault.compression"},
		{"block secrets", func(c *Config) { c.Vault.SecretScan = "block" }, ""},
		{"unknown secret policy", func(c *Config) { c.Vault.SecretScan = "strict" }, "vault.secret_scan"},
		{"empty scratch root", func(c *Config) { c.Vault.ScratchRoot = "" }, "scratch_root"},
		{"trace level", func(c *Config) { c.Logging.Level = "trace" }, ""},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"unknown format", func(c *Config) { c.Logging.Format = "text" }, "logging.format"},
		{
			name: "telemetry disabled ignores protocol",
			mutate: func(c *Config) {
				c.Telemetry.Protocol = "udp"
			},
		},
		{
			name: "telemetry bad protocol",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Protocol = "udp"
			},
			wantErr: "telemetry.protocol",
		},
		{
			name: "telemetry missing endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry.endpoint",
		},
		{
			name: "telemetry sample rate out of range",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.SampleRate = 1.5
			},
			wantErr: "sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Vault.Compression = "lzma"
	cfg.Logging.Format = "text"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault.compression")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"~/scratch", filepath.Join(home, "scratch")},
		{"~", home},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~other/x", "~other/x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandHome(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
