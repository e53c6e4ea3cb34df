// Package config loads codex configuration.
//
// Values come from three layers, lowest precedence first: built-in
// defaults, the YAML file (~/.config/codex/config.yaml by default), and
// CODEX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Config holds the complete codex configuration.
type Config struct {
	Vault     VaultConfig     `koanf:"vault"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// VaultConfig configures vault handles.
type VaultConfig struct {
	// ScratchRoot holds per-project scratch directories. A leading "~/" is
	// expanded. Default: <os.TempDir()>/codex.
	ScratchRoot string `koanf:"scratch_root"`

	// Compression is the method for newly written entries: deflate, store or zstd.
	Compression string `koanf:"compression"`

	// RespectIgnore filters ingested files through ignore files.
	RespectIgnore bool `koanf:"respect_ignore"`

	// IgnoreFiles names the ignore files honoured when RespectIgnore is set.
	IgnoreFiles []string `koanf:"ignore_files"`

	// SecretScan is the credential scan policy for ingestion: off, warn or block.
	SecretScan string `koanf:"secret_scan"`

	// SecretAllowlist is a Gitleaks-format allowlist applied to every scan.
	// Default: ~/.config/codex/allowlist.toml.
	SecretAllowlist string `koanf:"secret_allowlist"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"`
	Insecure        bool     `koanf:"insecure"`
	ServiceName     string   `koanf:"service_name"`
	SampleRate      float64  `koanf:"sample_rate"`
	Token           Secret   `koanf:"token"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

var (
	compressionMethods = []string{"deflate", "store", "zstd"}
	logLevels          = []string{"trace", "debug", "info", "warn", "error"}
	logFormats         = []string{"console", "json"}
	secretPolicies     = []string{"off", "warn", "block"}
	telemetryProtocols = []string{"grpc", "http"}
)

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Vault.ScratchRoot == "" {
		cfg.Vault.ScratchRoot = filepath.Join(os.TempDir(), "codex")
	}
	if cfg.Vault.Compression == "" {
		cfg.Vault.Compression = "deflate"
	}
	if len(cfg.Vault.IgnoreFiles) == 0 {
		cfg.Vault.IgnoreFiles = []string{".gitignore", ".codexignore"}
	}
	if cfg.Vault.SecretScan == "" {
		cfg.Vault.SecretScan = "off"
	}
	if cfg.Vault.SecretAllowlist == "" {
		cfg.Vault.SecretAllowlist = "~/.config/codex/allowlist.toml"
	}

	// Command output goes to stdout; keep stderr quiet unless asked.
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "codex"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.ShutdownTimeout == 0 {
		cfg.Telemetry.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Vault.ScratchRoot == "" {
		errs = append(errs, errors.New("vault.scratch_root is required"))
	}
	if !slices.Contains(compressionMethods, strings.ToLower(c.Vault.Compression)) {
		errs = append(errs, fmt.Errorf("vault.compression must be one of %v, got %q", compressionMethods, c.Vault.Compression))
	}
	if !slices.Contains(secretPolicies, strings.ToLower(c.Vault.SecretScan)) {
		errs = append(errs, fmt.Errorf("vault.secret_scan must be one of %v, got %q", secretPolicies, c.Vault.SecretScan))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %v, got %q", logLevels, c.Logging.Level))
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %v, got %q", logFormats, c.Logging.Format))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
		}
		if !slices.Contains(telemetryProtocols, c.Telemetry.Protocol) {
			errs = append(errs, fmt.Errorf("telemetry.protocol must be one of %v, got %q", telemetryProtocols, c.Telemetry.Protocol))
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", c.Telemetry.SampleRate))
		}
	}

	return errors.Join(errs...)
}

// ExpandHome replaces a leading "~/" in path with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
