// Package logging provides structured logging for codex.
//
// Logger wraps Zap with context-first methods. Correlation fields carried on
// the context (trace and span ids, vault operation, project id, session id)
// are appended to every entry automatically:
//
//	ctx = logging.WithOperation(ctx, "add")
//	ctx = logging.WithProjectID(ctx, id)
//	logger.Info(ctx, "project added", zap.Int("files", n))
//
// Entries go to stderr, leaving stdout to command output, and optionally to
// an OpenTelemetry log provider through the otelzap bridge. A custom Trace
// level (-2) sits below Debug.
//
// Levels below Error are sampled per level; errors are never sampled.
// Fields whose keys look like credentials are redacted by the encoder, and
// config.Secret values should be logged with Secret.
//
// Tests use NewTestLogger, which records entries in memory:
//
//	tl := logging.NewTestLogger()
//	svc := newService(tl.Logger)
//	tl.AssertLogged(t, zapcore.InfoLevel, "project added")
package logging
