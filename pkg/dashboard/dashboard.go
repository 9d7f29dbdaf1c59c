// Package dashboard serves the single-page request log viewer.
//
// The page is embedded at build time. It reads records from GET /api/logs
// and clears them with DELETE /api/logs; it has no server-side state.
package dashboard

import (
	"bytes"
	_ "embed"
	"net/http"
	"time"
)

//go:embed index.html
var page []byte

// Page returns the embedded HTML.
func Page() []byte {
	return page
}

// Handler serves the page for GET and HEAD.
func Handler() http.Handler {
	loaded := time.Now()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, "index.html", loaded, bytes.NewReader(page))
	})
}
