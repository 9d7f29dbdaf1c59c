package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"mercator-hq/loupe/pkg/proxy"
	"mercator-hq/loupe/pkg/telemetry/metrics"
)

// LogStore is the part of the request log the API reads and clears.
// *logstore.Store implements it.
type LogStore interface {
	Recent(limit int) ([]json.RawMessage, error)
	Clear() error
}

// ClearResponse is the body returned by a successful clear.
type ClearResponse struct {
	Cleared bool `json:"cleared"`
}

// LogsHandler serves the request log API under /api/logs.
type LogsHandler struct {
	store   LogStore
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewLogsHandler creates the log API handler.
func NewLogsHandler(store LogStore, collector *metrics.Collector, logger *slog.Logger) *LogsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogsHandler{
		store:   store,
		metrics: collector,
		logger:  logger.With("component", "handlers.logs"),
	}
}

// ServeHTTP dispatches GET to List and DELETE to Clear.
func (h *LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.List(w, r)
	case http.MethodDelete:
		h.Clear(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, DELETE")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// List answers GET /api/logs?limit=N with a JSON array of the newest N
// records in append order. A missing, unparsable, or non-positive limit
// reads the default; larger limits are capped by the store.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 0
	}

	records, err := h.store.Recent(limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read request log",
			"error_kind", proxy.KindLogWrite,
			"error", err,
		)
		_ = proxy.WriteJSONResponse(w, http.StatusInternalServerError, proxy.ErrorBody{
			Error:  "log read failed",
			Detail: err.Error(),
		})
		return
	}

	if records == nil {
		records = []json.RawMessage{}
	}
	w.Header().Set("Cache-Control", "no-store")
	if err := proxy.WriteJSONResponse(w, http.StatusOK, records); err != nil {
		h.logger.DebugContext(r.Context(), "failed to write log response", "error", err)
	}
}

// Clear answers DELETE /api/logs by emptying the log. Clearing an already
// empty log succeeds.
func (h *LogsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to clear request log", "error", err)
		_ = proxy.WriteJSONResponse(w, http.StatusInternalServerError, proxy.ErrorBody{
			Error:  "log clear failed",
			Detail: err.Error(),
		})
		return
	}

	h.metrics.RecordLogClear("api")
	h.logger.InfoContext(r.Context(), "request log cleared", "trigger", "api")
	_ = proxy.WriteJSONResponse(w, http.StatusOK, ClearResponse{Cleared: true})
}
