package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/loupe/pkg/logstore"
	"mercator-hq/loupe/pkg/telemetry/metrics"
	"mercator-hq/loupe/pkg/telemetry/tracing"
)

// RecordSink receives log records. *logstore.Store implements it.
type RecordSink interface {
	Append(rec logstore.Record) error
}

// Tracer starts spans. Both otel tracers and tracing.Tracer satisfy it.
type Tracer interface {
	Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// RelayConfig configures a Relay.
type RelayConfig struct {
	// BaseURL is the upstream every route is appended to.
	BaseURL string

	// Sink receives the pre-call request record.
	Sink RecordSink

	Client  *http.Client
	Tracer  Tracer
	Metrics *metrics.Collector
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() (string, error)
}

// Relay issues the upstream call for one inbound request.
type Relay struct {
	base    string
	sink    RecordSink
	client  *http.Client
	tracer  Tracer
	metrics *metrics.Collector
	logger  *slog.Logger
	now     func() time.Time
	newID   func() (string, error)
}

// Upstream is a live upstream response together with the identifiers of the
// request that produced it. The caller must close Response.Body.
type Upstream struct {
	Response      *http.Response
	CorrelationID string
	Route         string
	Target        string
	Started       time.Time
}

// NewRelay validates cfg and returns a Relay.
func NewRelay(cfg RelayConfig) (*Relay, error) {
	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Sink == nil {
		return nil, errors.New("record sink is required")
	}

	r := &Relay{
		base:    base,
		sink:    cfg.Sink,
		client:  cfg.Client,
		tracer:  cfg.Tracer,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		now:     cfg.Now,
		newID:   cfg.NewID,
	}
	if r.client == nil {
		r.client = NewUpstreamClient()
	}
	if r.tracer == nil {
		r.tracer = noop.NewTracerProvider().Tracer("loupe/proxy")
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "proxy.relay")
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = newUUID
	}
	return r, nil
}

// NewUpstreamClient returns the HTTP client used for upstream calls. It
// never negotiates compression, so bodies reach the log as sent. There is
// no overall timeout; streams end when the upstream or the client does.
func NewUpstreamClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Target returns the upstream URL for route.
func (r *Relay) Target(route string) string {
	return r.base + route
}

// Forward records the request and issues it upstream with the same method,
// sanitized headers and the body bytes. It never retries. Transport
// failures are returned as an *UpstreamError of kind KindUnreachable.
func (r *Relay) Forward(ctx context.Context, method, route string, header http.Header, body []byte) (*Upstream, error) {
	id := r.correlationID()
	target := r.Target(route)
	started := r.now()

	if err := r.sink.Append(logstore.NewRequestRecord(started, id, route, target, body)); err != nil {
		r.metrics.RecordLogWriteFailure(string(logstore.KindRequest))
		r.logger.ErrorContext(ctx, "failed to write request record",
			"correlation_id", id,
			"route", route,
			"error_kind", KindLogWrite,
			"error", err,
		)
	}

	ctx, span := r.tracer.Start(ctx, "upstream.forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.RequestAttributes(method, route, id)...),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		tracing.SetError(span, err, "build_request")
		return nil, fmt.Errorf("failed to build upstream request for %q: %w", target, err)
	}
	req.Header = sanitizeRequestHeaders(header)

	resp, err := r.client.Do(req)
	if err != nil {
		r.metrics.RecordUpstreamError(string(KindUnreachable))
		tracing.SetError(span, err, string(KindUnreachable))
		return nil, &UpstreamError{Kind: KindUnreachable, Target: target, Err: err}
	}
	tracing.SetStatusCode(span, resp.StatusCode)

	return &Upstream{
		Response:      resp,
		CorrelationID: id,
		Route:         route,
		Target:        target,
		Started:       started,
	}, nil
}

func (r *Relay) correlationID() string {
	id, err := r.newID()
	if err == nil && strings.TrimSpace(id) != "" {
		return id
	}
	return fmt.Sprintf("%d-%016x", r.now().UnixNano(), rand.Uint64())
}

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// normalizeBaseURL checks raw is an absolute http(s) URL and strips
// trailing slashes.
func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("upstream base url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse upstream base url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("invalid upstream base url %q", trimmed)
	}
	return strings.TrimRight(trimmed, "/"), nil
}
