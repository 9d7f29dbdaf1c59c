// Package handlers implements the HTTP endpoints that sit beside the proxy.
//
// LogsHandler exposes the request log:
//
//	GET    /api/logs?limit=N   newest N records, oldest first
//	DELETE /api/logs           {"cleared": true}
//
// The proxied routes themselves are served by proxy.Handler.
package handlers
