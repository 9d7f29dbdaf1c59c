package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow the OpenTelemetry semantic conventions;
// proxy-specific keys live under "loupe.".
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPStatusCode = "http.response.status_code"

	AttrRoute         = "loupe.route"
	AttrCorrelationID = "loupe.correlation_id"
	AttrErrorKind     = "loupe.error.kind"
)

// RequestAttributes returns the attributes describing an upstream call.
func RequestAttributes(method, route, correlationID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrRoute, route),
		attribute.String(AttrCorrelationID, correlationID),
	}
}

// SetStatusCode records the upstream response status on span.
func SetStatusCode(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))
}

// SetError marks span as failed with the given error kind.
func SetError(span trace.Span, err error, kind string) {
	if err == nil {
		return
	}
	span.SetAttributes(attribute.String(AttrErrorKind, kind))
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)
}
