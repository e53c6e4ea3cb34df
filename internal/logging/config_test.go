package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.True(t, cfg.Output.Stderr)
	assert.False(t, cfg.Output.OTEL)
	assert.True(t, cfg.Sampling.Enabled)
	assert.NotContains(t, cfg.Sampling.Levels, zapcore.ErrorLevel)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "json format",
			mutate: func(c *Config) { c.Format = "json" },
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.Format = "xml" },
			wantErr: "format must be",
		},
		{
			name: "no outputs",
			mutate: func(c *Config) {
				c.Output.Stderr = false
				c.Output.OTEL = false
			},
			wantErr: "at least one output",
		},
		{
			name:    "zero tick",
			mutate:  func(c *Config) { c.Sampling.Tick = 0 },
			wantErr: "sampling tick",
		},
		{
			name: "zero tick with sampling off",
			mutate: func(c *Config) {
				c.Sampling.Enabled = false
				c.Sampling.Tick = 0
			},
		},
		{
			name: "negative sampling rate",
			mutate: func(c *Config) {
				c.Sampling.Levels[zapcore.InfoLevel] = LevelSamplingConfig{Initial: -1}
			},
			wantErr: "must not be negative",
		},
		{
			name: "negative caller skip",
			mutate: func(c *Config) {
				c.Caller.Enabled = true
				c.Caller.Skip = -1
			},
			wantErr: "caller skip",
		},
		{
			name:    "bad redaction pattern",
			mutate:  func(c *Config) { c.Redaction.Patterns = []string{"(unclosed"} },
			wantErr: "invalid redaction pattern",
		},
		{
			name:    "empty field value",
			mutate:  func(c *Config) { c.Fields = map[string]string{"service": ""} },
			wantErr: "empty value",
		},
		{
			name:    "empty field key",
			mutate:  func(c *Config) { c.Fields = map[string]string{"": "codex"} },
			wantErr: "key cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
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
