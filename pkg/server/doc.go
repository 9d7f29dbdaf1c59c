// Package server runs the Loupe HTTP listener.
//
// A Server owns the request log store and wires it to the proxy handler,
// the log API, the health endpoints, the metrics endpoint and the
// dashboard:
//
//	POST <prefix>/...      relayed upstream and recorded
//	GET|DELETE /api/logs   read or clear the request log
//	GET /health, /ready    liveness and readiness (store check)
//	GET /version           build information
//	GET /metrics           Prometheus scrape, when metrics are enabled
//	GET /                  dashboard, when enabled
//
// Every route runs behind recovery, request logging, trace extraction and
// CORS, outermost first.
//
// # Basic Usage
//
//	cfg := config.MustGetConfig()
//	srv, err := server.New(cfg, server.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	ctx := cli.SetupSignalHandler()
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start binds the configured address, moving to the next port when it is
// busy (up to proxy.port_retries times), and returns after a graceful
// shutdown once ctx is done. Shutdown waits for pending response records
// before closing the store.
package server
