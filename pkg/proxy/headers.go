package proxy

import (
	"net/http"
	"net/textproto"
	"strings"
)

// CorrelationIDHeader carries the correlation id back to the client.
const CorrelationIDHeader = "X-Correlation-ID"

// requestStripHeaders are never forwarded upstream.
var requestStripHeaders = headerSet(
	"Content-Length",
	"Host",
	"Connection",
	"Transfer-Encoding",
	"Accept-Encoding",
	"Keep-Alive",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Upgrade",
)

// bufferedStripHeaders are dropped from buffered responses; Content-Length
// is recomputed from the buffered body.
var bufferedStripHeaders = headerSet(
	"Content-Length",
	"Content-Encoding",
	"Transfer-Encoding",
	"Connection",
	"Keep-Alive",
)

// streamStripHeaders are dropped from streamed responses, which are always
// sent without a length.
var streamStripHeaders = headerSet(
	"Content-Length",
	"Transfer-Encoding",
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Upgrade",
)

func headerSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[textproto.CanonicalMIMEHeaderKey(n)] = struct{}{}
	}
	return set
}

// sanitizeRequestHeaders returns a copy of h without hop-by-hop headers,
// including any named by the Connection header. A JSON content type is
// supplied when none survives.
func sanitizeRequestHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	connTokens := connectionTokens(h)
	for k, vv := range h {
		ck := textproto.CanonicalMIMEHeaderKey(k)
		if _, drop := requestStripHeaders[ck]; drop {
			continue
		}
		if _, drop := connTokens[ck]; drop {
			continue
		}
		out[ck] = append([]string(nil), vv...)
	}
	if out.Get("Content-Type") == "" {
		out.Set("Content-Type", "application/json")
	}
	return out
}

func connectionTokens(h http.Header) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, v := range h.Values("Connection") {
		for _, tok := range strings.Split(v, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				tokens[textproto.CanonicalMIMEHeaderKey(tok)] = struct{}{}
			}
		}
	}
	return tokens
}

// copyHeaders copies src into dst, skipping names in strip.
func copyHeaders(dst, src http.Header, strip map[string]struct{}) {
	for k, vv := range src {
		if _, drop := strip[textproto.CanonicalMIMEHeaderKey(k)]; drop {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
