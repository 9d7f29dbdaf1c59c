// Package middleware provides the HTTP middleware wrapped around every Loupe
// route.
//
// # Middleware Chain
//
//	handler = Chain(mux,
//	    RecoveryMiddleware(logger),
//	    LoggingMiddleware(logger),
//	    CORSMiddleware(&cfg.Proxy.CORS),
//	)
//
// Order (outermost first):
//  1. Recovery: turn panics into a 500, or abort a response already started
//  2. Logging: one structured line per request with status, bytes, latency
//  3. CORS: headers and preflight answers for browser clients
//
// The writer wrappers forward Flush, so streamed completions pass through
// the chain unbuffered.
package middleware
