package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/loupe/pkg/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func enabledConfig() *config.TracingConfig {
	return &config.TracingConfig{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4317",
		Insecure:    true,
		SampleRatio: 1.0,
		ServiceName: "loupe-test",
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      *config.TracingConfig
		wantErr     bool
		wantEnabled bool
	}{
		{name: "nil config", config: nil, wantErr: true},
		{name: "disabled tracing", config: &config.TracingConfig{Enabled: false}},
		{name: "enabled otlp", config: enabledConfig(), wantEnabled: true},
		{
			name: "invalid sample ratio",
			config: &config.TracingConfig{
				Enabled:     true,
				Endpoint:    "127.0.0.1:4317",
				Insecure:    true,
				SampleRatio: 1.5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			defer tracer.Shutdown(ctx)

			if tracer.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.wantEnabled)
			}
		})
	}
}

func TestDisabledTracerStartsNoopSpans(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("disabled tracer produced a valid span context")
	}
	if TraceID(ctx) != "" {
		t.Errorf("TraceID() = %q, want empty", TraceID(ctx))
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewWithExporter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewWithExporter(enabledConfig(), exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.Start(context.Background(), "upstream.forward",
		trace.WithAttributes(RequestAttributes("POST", "/v1/models", "abc")...),
	)
	SetStatusCode(span, 200)
	if TraceID(ctx) == "" {
		t.Error("TraceID() empty for a sampled span")
	}
	span.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Name != "upstream.forward" {
		t.Errorf("span name = %q", got.Name)
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range got.Attributes {
		attrs[kv.Key] = kv.Value
	}
	if attrs[AttrRoute].AsString() != "/v1/models" {
		t.Errorf("%s = %q", AttrRoute, attrs[AttrRoute].AsString())
	}
	if attrs[AttrCorrelationID].AsString() != "abc" {
		t.Errorf("%s = %q", AttrCorrelationID, attrs[AttrCorrelationID].AsString())
	}
	if attrs[AttrHTTPStatusCode].AsInt64() != 200 {
		t.Errorf("%s = %d", AttrHTTPStatusCode, attrs[AttrHTTPStatusCode].AsInt64())
	}

	var service string
	for _, kv := range got.Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	if service != "loupe-test" {
		t.Errorf("service.name = %q, want loupe-test", service)
	}
}

func TestSetError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewWithExporter(enabledConfig(), exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	_, span := tracer.Start(context.Background(), "failing")
	SetError(span, nil, "ignored")
	SetError(span, errors.New("connection refused"), "unreachable")
	span.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("recorded %d events, want 1", len(spans[0].Events))
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		ratio   float64
		wantErr bool
	}{
		{0.0, false},
		{0.25, false},
		{1.0, false},
		{-0.1, true},
		{1.1, true},
	}
	for _, tt := range tests {
		sampler, err := createSampler(tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%v) error = %v, wantErr %v", tt.ratio, err, tt.wantErr)
			continue
		}
		if err == nil && sampler == nil {
			t.Errorf("createSampler(%v) returned nil sampler", tt.ratio)
		}
	}
}

func TestHTTPMiddleware(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewWithExporter(enabledConfig(), exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	const parentTrace = "4bf92f3577b34da6a3ce929d0e0e4736"
	var seen string
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/models", nil)
	req.Header.Set("traceparent", "00-"+parentTrace+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != parentTrace {
		t.Errorf("handler trace id = %q, want %q", seen, parentTrace)
	}
	if got := rec.Header().Get(TraceIDHeader); got != parentTrace {
		t.Errorf("%s = %q, want %q", TraceIDHeader, got, parentTrace)
	}
}
