package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/loupe/pkg/proxy"
)

// RecoveryMiddleware recovers from panics in HTTP handlers. When nothing has
// been written yet it answers 500 with an {error, detail} body; once the
// response has started it aborts the connection instead, since a JSON error
// cannot be spliced into a partial reply.
//
// http.ErrAbortHandler is re-raised untouched: the proxy handler uses it to
// abort a stream that failed mid-way, and net/http closes the connection
// for it without logging a stack trace.
//
// Example usage:
//
//	handler = RecoveryMiddleware(logger)(handler)
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				if rw.written {
					panic(http.ErrAbortHandler)
				}

				body := proxy.ErrorBody{
					Error:  "internal error",
					Detail: fmt.Sprint(err),
				}
				_ = proxy.WriteJSONResponse(rw, http.StatusInternalServerError, body)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
