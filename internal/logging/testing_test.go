package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Trace(ctx, "staged entry", zap.String("entry", "a/b.py"))
	tl.Info(ctx, "project added", zap.Int("files", 2))

	assert.Len(t, tl.All(), 2)
	tl.AssertLogged(t, TraceLevel, "staged")
	tl.AssertLogged(t, zapcore.InfoLevel, "project added")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "project added")
	tl.AssertField(t, "project added", "files", int64(2))
	tl.AssertField(t, "staged entry", "entry", "a/b.py")

	assert.Equal(t, 1, tl.FilterMessage("added").Len())

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestTestLogger_TraceCorrelation(t *testing.T) {
	tl := NewTestLogger()
	provider := trace.NewTracerProvider()
	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	tl.Info(ctx, "traced")
	tl.AssertTraceCorrelation(t, "traced")
}
