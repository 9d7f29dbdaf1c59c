// Package extract derives a readable summary and tool-call records from
// upstream model responses.
//
// Responses arrive in several dialects: chat-completion JSON, legacy text
// completions, response-API "output" arrays, and server-sent event streams
// of delta objects. Each dialect is handled by an independent probe over a
// parsed github.com/valyala/fastjson value; the first probe that yields text
// wins. Probes never fail: malformed or unrecognized input simply produces
// an empty result.
//
// Basic usage:
//
//	text := extract.Content(body, resp.Header.Get("Content-Type"))
//	calls := extract.ToolCalls(body, resp.Header.Get("Content-Type"))
package extract
