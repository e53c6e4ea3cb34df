package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/codex/internal/config"
)

func sampledLogger(levels map[zapcore.Level]LevelSamplingConfig) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	cfg := SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels:  levels,
	}
	return &Logger{zap: zap.New(newSampledCore(core, cfg)), config: NewDefaultConfig()}, observed
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_PerLevel(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.DebugLevel: {Initial: 3, Thereafter: 0},
		zapcore.InfoLevel:  {Initial: 5, Thereafter: 0},
	})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		logger.Debug(ctx, "debug message")
		logger.Info(ctx, "info message")
		logger.Warn(ctx, "warn message")
		logger.Error(ctx, "error message")
	}

	assert.Equal(t, 3, observed.FilterMessage("debug message").Len())
	assert.Equal(t, 5, observed.FilterMessage("info message").Len())
	assert.Equal(t, 20, observed.FilterMessage("warn message").Len(), "unconfigured levels pass")
	assert.Equal(t, 20, observed.FilterMessage("error message").Len(), "errors are never sampled")
}

func TestNewSampledCore_Thereafter(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 5, Thereafter: 5},
	})

	for i := 0; i < 100; i++ {
		logger.Info(context.Background(), "repeated message")
	}

	// 5 initial, then every 5th of the remaining 95.
	assert.Equal(t, 24, observed.FilterMessage("repeated message").Len())
}

func TestNewSampledCore_ErrorsWithDefaultLevels(t *testing.T) {
	logger, observed := sampledLogger(DefaultLevelSamplingConfig())

	for i := 0; i < 500; i++ {
		logger.Error(context.Background(), "error message")
	}
	assert.Equal(t, 500, observed.FilterMessage("error message").Len())
}

func TestLevelRangeCore(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	filtered := &levelRangeCore{Core: core, min: zapcore.ErrorLevel, max: zapcore.FatalLevel}
	logger := &Logger{zap: zap.New(filtered), config: NewDefaultConfig()}

	child := logger.With(zap.String("component", "rewrite"))
	ctx := context.Background()
	child.Info(ctx, "info message")
	child.Warn(ctx, "warn message")
	child.Error(ctx, "error message")

	logs := observed.All()
	assert.Len(t, logs, 1, "only error passes the range")
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	assert.Equal(t, "rewrite", logs[0].ContextMap()["component"])

	assert.False(t, filtered.Enabled(zapcore.WarnLevel))
	assert.True(t, filtered.Enabled(zapcore.ErrorLevel))
}
