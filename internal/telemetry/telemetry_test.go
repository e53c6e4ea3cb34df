package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/codex/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), config.Default().Telemetry)
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.False(t, tel.IsEnabled())

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.TelemetryConfig)
		want   string
	}{
		{
			name:   "missing endpoint",
			mutate: func(c *config.TelemetryConfig) { c.Endpoint = "" },
			want:   "endpoint is required",
		},
		{
			name:   "missing service name",
			mutate: func(c *config.TelemetryConfig) { c.ServiceName = "" },
			want:   "service_name is required",
		},
		{
			name:   "sample rate out of range",
			mutate: func(c *config.TelemetryConfig) { c.SampleRate = 1.5 },
			want:   "sample_rate",
		},
		{
			name: "insecure remote endpoint",
			mutate: func(c *config.TelemetryConfig) {
				c.Endpoint = "otel.example.com:4317"
				c.Insecure = true
			},
			want: "localhost",
		},
		{
			name: "token over insecure connection",
			mutate: func(c *config.TelemetryConfig) {
				c.Insecure = true
				c.Token = config.Secret("abc")
			},
			want: "token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Telemetry
			cfg.Enabled = true
			tt.mutate(&cfg)

			tel, err := New(context.Background(), cfg)
			require.Error(t, err)
			assert.Nil(t, tel)
			assert.Contains(t, err.Error(), "invalid telemetry config")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := map[string]bool{
		"localhost:4317":        true,
		"127.0.0.1:4317":        true,
		"127.1.2.3":             true,
		"[::1]:4317":            true,
		"http://localhost:4318": true,
		"otel.example.com:4317": false,
		"10.0.0.5:4317":         false,
	}
	for endpoint, want := range tests {
		assert.Equal(t, want, isLocalEndpoint(endpoint), endpoint)
	}
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("test")
		_ = tel.Meter("test")
		_ = tel.LoggerProvider()
		tel.SetLoggerProvider(nil)
		_ = tel.IsEnabled()
		_ = tel.Shutdown(context.Background())
		_ = tel.ForceFlush(context.Background())
	})

	health := tel.Health()
	assert.False(t, health.Healthy)
	assert.True(t, health.Degraded)
}

func TestTelemetry_Shutdown(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.ShutdownTimeout = config.Duration(100 * time.Millisecond)

	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.Health().Healthy)
}

func TestTestTelemetry_Spans(t *testing.T) {
	tt := NewTestTelemetry()
	tracer := tt.Tracer("test")

	_, span1 := tracer.Start(context.Background(), "span1")
	span1.SetAttributes(attribute.Int64("count", 1))
	span1.End()

	_, span2 := tracer.Start(context.Background(), "span2")
	span2.SetAttributes(attribute.Bool("done", true), attribute.String("key", "value"))
	span2.End()

	assert.Len(t, tt.Spans(), 2)
	tt.AssertSpanExists(t, "span1")
	tt.AssertSpanAttribute(t, "span1", "count", int64(1))
	tt.AssertSpanAttribute(t, "span2", "done", true)
	tt.AssertSpanAttribute(t, "span2", "key", "value")
	assert.Nil(t, tt.SpanByName("missing"))
}

func TestTestTelemetry_Counter(t *testing.T) {
	tt := NewTestTelemetry()

	counter, err := tt.Meter("test").Int64Counter("test.counter")
	require.NoError(t, err)

	counter.Add(context.Background(), 1)
	counter.Add(context.Background(), 2)

	assert.Equal(t, int64(3), tt.CounterValue(t, "test.counter"))
	assert.Equal(t, int64(0), tt.CounterValue(t, "absent"))
}

func TestTestTelemetry_Install(t *testing.T) {
	tt := NewTestTelemetry().Install(t)

	_, span := otel.Tracer("scope").Start(context.Background(), "installed")
	span.End()

	tt.AssertSpanExists(t, "installed")
	assert.True(t, tt.IsEnabled())
}
