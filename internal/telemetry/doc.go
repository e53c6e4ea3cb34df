// Package telemetry wires OpenTelemetry tracing and metrics for codex.
//
// Vault operations record spans and counters through the global
// providers. New installs OTLP-backed providers when telemetry is
// enabled; otherwise the globals stay no-op and instrumentation costs
// nothing.
//
//	tel, err := telemetry.New(ctx, cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Export failures never fail a command. A provider that cannot be built
// marks the instance degraded and the command carries on.
package telemetry
