// Package logging builds the structured loggers used across Loupe.
//
// Loggers are plain *slog.Logger values writing JSON or text to stderr.
// Two behaviors are layered on the standard handlers:
//
//   - Context fields: a record logged with a context that carries a
//     correlation ID (WithCorrelationID) or an OpenTelemetry span gets
//     correlation_id, trace_id, and span_id attributes.
//   - Redaction: credential attributes, "key" query parameters, and bearer
//     tokens are replaced with [REDACTED].
//
// Usage:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//		return err
//	}
//	ctx = logging.WithCorrelationID(ctx, id)
//	logger.InfoContext(ctx, "request relayed", "route", route)
package logging
