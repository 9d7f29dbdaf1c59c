// Package health provides the liveness, readiness, and version endpoints.
//
// Liveness answers as long as the process serves HTTP. Readiness runs the
// registered component checks concurrently, each bounded by the checker's
// timeout; the server registers one for the request log store.
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("store", store.Check)
//
//	mux.HandleFunc("GET /health", checker.LivenessHandler())
//	mux.HandleFunc("GET /ready", checker.ReadinessHandler())
//	mux.HandleFunc("GET /version", health.VersionHandler(info))
package health
