package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/loupe/pkg/proxy"
)

// responseWriter wraps http.ResponseWriter to capture the status code and
// the number of body bytes written. It forwards Flush so streamed replies
// are not buffered by the wrapper.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	bytes      int64
}

// newResponseWriter creates a new response writer wrapper.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // Default to 200
	}
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Flush implements http.Flusher.
func (rw *responseWriter) Flush() {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the wrapped writer for http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware logs every HTTP request once it completes. Failed
// statuses raise the level: 4xx logs at warn and 5xx at error. The query
// string is logged under "query", which the redacting logger masks.
//
// Log format (JSON):
//
//	{
//	  "time": "2025-11-16T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1beta/models/gemini-2.0-flash:streamGenerateContent",
//	  "query": "alt=sse&key=%5BREDACTED%5D",
//	  "status": 200,
//	  "bytes": 18231,
//	  "latency_ms": 1250,
//	  "correlation_id": "5b0c1f9e-...",
//	  "remote_addr": "127.0.0.1:54321"
//	}
//
// Example usage:
//
//	handler = LoggingMiddleware(logger)(handler)
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			ctx := context.WithValue(r.Context(), StartTimeKey, startTime)

			rw := newResponseWriter(w)

			logger.DebugContext(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			// An aborted handler still gets its completion line.
			defer func() {
				logLevel := slog.LevelInfo
				if rw.statusCode >= 500 {
					logLevel = slog.LevelError
				} else if rw.statusCode >= 400 {
					logLevel = slog.LevelWarn
				}

				logger.Log(ctx, logLevel, "request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"query", r.URL.RawQuery,
					"status", rw.statusCode,
					"bytes", rw.bytes,
					"latency_ms", time.Since(startTime).Milliseconds(),
					"correlation_id", rw.Header().Get(proxy.CorrelationIDHeader),
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}
