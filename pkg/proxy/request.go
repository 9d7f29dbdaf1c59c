package proxy

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxRequestBodySize is the maximum accepted inbound body size (64MB).
// Multimodal prompts carry inline media, so the bound is generous.
const MaxRequestBodySize = 64 * 1024 * 1024

// ReadBody reads the full inbound body, rejecting bodies over
// MaxRequestBodySize with a 413 RequestError.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > MaxRequestBodySize {
		return nil, &RequestError{
			Status:  http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
		}
	}
	return body, nil
}

// RouteFor returns the request path and query relative to prefix, exactly
// as the client sent them. An empty remainder becomes "/".
func RouteFor(r *http.Request, prefix string) string {
	uri := r.URL.RequestURI()
	if prefix != "" && strings.HasPrefix(uri, prefix) {
		rest := uri[len(prefix):]
		if rest == "" || rest[0] == '/' {
			uri = rest
		} else if rest[0] == '?' {
			uri = "/" + rest
		}
	}
	if uri == "" {
		return "/"
	}
	return uri
}
