package logstore

import (
	"encoding/json"
	"time"

	"mercator-hq/loupe/pkg/extract"
)

// TimestampLayout is the ISO-8601 layout used for record timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Kind discriminates request records from response records.
type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
)

// Record is implemented by the record variants the store accepts.
type Record interface {
	RecordKind() Kind
}

// Header holds the fields common to every record.
type Header struct {
	Timestamp     string `json:"timestamp"`
	CorrelationID string `json:"correlation_id"`
	Route         string `json:"route"`
	Kind          Kind   `json:"kind"`
}

// RequestRecord is written before a request is forwarded upstream.
type RequestRecord struct {
	Header
	Target string          `json:"target"`
	Body   json.RawMessage `json:"body"`
}

// RecordKind implements Record.
func (r *RequestRecord) RecordKind() Kind { return KindRequest }

// ResponseRecord is written once the upstream response has been delivered.
// Body is omitted when raw-body logging is disabled; Content is always present.
type ResponseRecord struct {
	Header
	Status    int                `json:"status"`
	ToolCalls []extract.ToolCall `json:"tool_calls,omitempty"`
	Body      json.RawMessage    `json:"body,omitempty"`
	Content   string             `json:"content"`
}

// RecordKind implements Record.
func (r *ResponseRecord) RecordKind() Kind { return KindResponse }

// NewRequestRecord builds the pre-call record for a forwarded request.
func NewRequestRecord(at time.Time, correlationID, route, target string, body []byte) *RequestRecord {
	return &RequestRecord{
		Header: Header{
			Timestamp:     FormatTimestamp(at),
			CorrelationID: correlationID,
			Route:         route,
			Kind:          KindRequest,
		},
		Target: target,
		Body:   BodyValue(body),
	}
}

// ResponseFields are the post-call values captured for a response record.
type ResponseFields struct {
	Status    int
	Body      []byte
	Content   string
	ToolCalls []extract.ToolCall

	// RawBody keeps Body in the record.
	RawBody bool
}

// NewResponseRecord builds the post-call record for a delivered response.
func NewResponseRecord(at time.Time, correlationID, route string, f ResponseFields) *ResponseRecord {
	rec := &ResponseRecord{
		Header: Header{
			Timestamp:     FormatTimestamp(at),
			CorrelationID: correlationID,
			Route:         route,
			Kind:          KindResponse,
		},
		Status:    f.Status,
		ToolCalls: f.ToolCalls,
		Content:   f.Content,
	}
	if f.RawBody {
		rec.Body = BodyValue(f.Body)
	}
	return rec
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// BodyValue returns raw unchanged when it is valid JSON, and otherwise the
// raw bytes encoded as a JSON string. An empty body becomes "".
func BodyValue(raw []byte) json.RawMessage {
	if len(raw) > 0 && json.Valid(raw) {
		return append(json.RawMessage(nil), raw...)
	}
	s, _ := json.Marshal(string(raw))
	return s
}

// Entry is the decoded form of any stored record, used by readers that do
// not care which variant they hold.
type Entry struct {
	Header
	Target    string             `json:"target,omitempty"`
	Status    int                `json:"status,omitempty"`
	ToolCalls []extract.ToolCall `json:"tool_calls,omitempty"`
	Body      json.RawMessage    `json:"body,omitempty"`
	Content   string             `json:"content,omitempty"`
}

// Decode parses one stored line.
func Decode(line []byte) (Entry, error) {
	var e Entry
	err := json.Unmarshal(line, &e)
	return e, err
}
