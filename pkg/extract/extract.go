package extract

import (
	"bytes"
	"strings"

	"github.com/valyala/fastjson"
)

// EventStreamType is the media type of server-sent event bodies.
const EventStreamType = "text/event-stream"

// ToolCall is a normalized tool invocation. At least one field is set.
type ToolCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

var parserPool fastjson.ParserPool

// IsEventStream reports whether body should be treated as a sequence of
// server-sent events: either the content type says so, or some line of the
// body starts with "data:" after leading whitespace.
func IsEventStream(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), EventStreamType) {
		return true
	}
	for _, line := range bytes.Split(body, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t\r"), dataPrefix) {
			return true
		}
	}
	return false
}

// Content returns the best-effort text summary of a response body. It
// returns "" when no known dialect matches or the body cannot be parsed.
func Content(body []byte, contentType string) string {
	if IsEventStream(body, contentType) {
		return streamContent(body)
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return ""
	}
	return documentContent(v)
}

// ToolCalls returns the tool invocations carried by a response body, in
// the order the upstream emitted them. It returns nil when there are none.
func ToolCalls(body []byte, contentType string) []ToolCall {
	if IsEventStream(body, contentType) {
		return streamToolCalls(body)
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil
	}
	return documentToolCalls(v)
}

// str returns the string held by v, or "" if v is not a string.
func str(v *fastjson.Value) string {
	if v == nil || v.Type() != fastjson.TypeString {
		return ""
	}
	return string(v.GetStringBytes())
}

// array returns the elements of v, or nil if v is not an array.
func array(v *fastjson.Value) []*fastjson.Value {
	if v == nil || v.Type() != fastjson.TypeArray {
		return nil
	}
	arr, _ := v.Array()
	return arr
}

// object reports whether v is a JSON object.
func object(v *fastjson.Value) bool {
	return v != nil && v.Type() == fastjson.TypeObject
}
