// Package proxy relays LLM API calls to a single upstream and records each
// exchange in the request log.
//
// A request passes through three pieces:
//
//   - Relay: writes the pre-call request record, strips hop-by-hop headers
//     and issues the upstream call once, with the inbound method and body.
//   - Streamer: classifies the upstream response, forwards it to the client
//     and appends the post-call response record off the request path.
//   - Handler: reads the inbound body, runs the two and maps failures onto
//     client-visible errors.
//
// # Delivery modes
//
// A response is streamed when its content type is text/event-stream or its
// route contains the configured stream marker. Streamed chunks are flushed
// to the client as they arrive and copied into an accumulator from the same
// read loop; the status line is held back until the first chunk. Every other
// response is buffered, so the client sees a recomputed Content-Length.
//
// # Failures
//
// Before the response starts, an unreachable or unreadable upstream becomes
// a 502 with an {"error", "detail"} JSON body and anything else a 500. Once
// bytes have reached the client the handler panics with http.ErrAbortHandler
// so the connection is cut instead of carrying a spliced error. Log store
// failures are logged and counted, never surfaced.
//
// # Basic Usage
//
//	store, _ := logstore.Open("logs/requests.ndjson", logstore.Options{})
//	relay, _ := proxy.NewRelay(proxy.RelayConfig{
//		BaseURL: "https://generativelanguage.googleapis.com",
//		Sink:    store,
//	})
//	streamer, _ := proxy.NewStreamer(proxy.StreamerConfig{
//		Sink:         store,
//		StreamMarker: ":streamGenerateContent",
//		RawBody:      true,
//	})
//	http.Handle("POST /", proxy.NewHandler(relay, streamer, "", nil, nil))
//
// Call Streamer.Wait before closing the store so pending response records
// are written.
package proxy
