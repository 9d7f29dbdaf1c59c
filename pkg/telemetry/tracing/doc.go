// Package tracing provides OpenTelemetry tracing for Loupe.
//
// When enabled, spans are batched to an OTLP gRPC collector and sampled by
// a parent-based trace ID ratio. When disabled, New returns a tracer backed
// by the noop provider, so callers never branch on configuration.
//
// The proxy opens one client span per upstream call, named
// "upstream.forward", carrying the route, method, correlation ID and
// response status. HTTPMiddleware joins inbound W3C trace context so those
// spans attach to the caller's trace.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "upstream.forward")
//	defer span.End()
package tracing
