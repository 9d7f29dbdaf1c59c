package proxy

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/loupe/pkg/telemetry/logging"
	"mercator-hq/loupe/pkg/telemetry/metrics"
)

// Handler wires one inbound request through the Relay and the Streamer.
// Requests are independent; the record sink is the only shared state.
type Handler struct {
	relay    *Relay
	streamer *Streamer
	prefix   string
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewHandler returns a Handler serving requests mounted under prefix.
func NewHandler(relay *Relay, streamer *Streamer, prefix string, collector *metrics.Collector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		relay:    relay,
		streamer: streamer,
		prefix:   prefix,
		metrics:  collector,
		logger:   logger.With("component", "proxy.handler"),
	}
}

// ServeHTTP implements http.Handler.
//
// Failures before the response starts are answered with an {error, detail}
// JSON body: 502 when the upstream is at fault, 500 otherwise. Failures
// after the response has started abort the connection, so the client sees
// a truncated reply rather than a spliced error.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	done := h.metrics.TrackInflight()
	defer done()

	body, err := ReadBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	route := RouteFor(r, h.prefix)
	up, err := h.relay.Forward(ctx, r.Method, route, r.Header, body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer up.Response.Body.Close()

	ctx = logging.WithCorrelationID(ctx, up.CorrelationID)
	r = r.WithContext(ctx)
	w.Header().Set(CorrelationIDHeader, up.CorrelationID)

	err = h.streamer.Deliver(w, up)
	if err == nil {
		h.logger.DebugContext(ctx, "request relayed",
			"route", route,
			"status", up.Response.StatusCode,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	var de *DeliveryError
	if errors.As(err, &de) && de.Committed {
		if ctx.Err() != nil {
			h.logger.InfoContext(ctx, "client disconnected during response", "route", route)
		} else {
			h.logger.WarnContext(ctx, "response aborted after start",
				"route", route,
				"error", err,
			)
		}
		panic(http.ErrAbortHandler)
	}

	h.fail(w, r, err)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := HandleError(err)
	h.logger.ErrorContext(r.Context(), "proxy request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	if writeErr := WriteErrorResponse(w, err); writeErr != nil {
		h.logger.DebugContext(r.Context(), "failed to write error response", "error", writeErr)
	}
}
