package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/loupe/pkg/logstore"
)

var testTime = time.Date(2026, 10, 14, 9, 30, 0, 123_000_000, time.UTC)

// memSink keeps appended records in memory.
type memSink struct {
	mu   sync.Mutex
	recs []logstore.Record
	err  error
}

func (m *memSink) Append(rec logstore.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

// entries round-trips every record through its stored JSON form.
func (m *memSink) entries(t *testing.T) []logstore.Entry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]logstore.Entry, 0, len(m.recs))
	for _, rec := range m.recs {
		line, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal record: %v", err)
		}
		e, err := logstore.Decode(line)
		if err != nil {
			t.Fatalf("decode record %s: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func (m *memSink) kinds() []logstore.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]logstore.Kind, 0, len(m.recs))
	for _, rec := range m.recs {
		kinds = append(kinds, rec.RecordKind())
	}
	return kinds
}

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// chunkedBody returns each chunk from a separate Read and then fails with
// err, or io.EOF when err is nil.
type chunkedBody struct {
	chunks []string
	err    error
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if b.chunks[0] == "" {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error { return nil }

func fakeResponse(status int, contentType string, body io.ReadCloser) *http.Response {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       body,
	}
}

// flushRecorder records writes and flushes in order.
type flushRecorder struct {
	header  http.Header
	status  int
	writes  []string
	flushes int
	failOn  int
}

func newFlushRecorder() *flushRecorder {
	return &flushRecorder{header: make(http.Header)}
}

func (r *flushRecorder) Header() http.Header { return r.header }

func (r *flushRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *flushRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.WriteHeader(http.StatusOK)
	}
	if r.failOn > 0 && len(r.writes)+1 >= r.failOn {
		return 0, errors.New("broken pipe")
	}
	r.writes = append(r.writes, string(p))
	return len(p), nil
}

func (r *flushRecorder) Flush() { r.flushes++ }

func (r *flushRecorder) body() string { return strings.Join(r.writes, "") }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type testProxy struct {
	handler  *Handler
	relay    *Relay
	streamer *Streamer
	sink     *memSink
}

func newTestProxy(t *testing.T, baseURL string, client *http.Client, prefix string) *testProxy {
	t.Helper()

	sink := &memSink{}
	ids := 0
	relay, err := NewRelay(RelayConfig{
		BaseURL: baseURL,
		Sink:    sink,
		Client:  client,
		Logger:  discardLogger(),
		Now:     func() time.Time { return testTime },
		NewID: func() (string, error) {
			ids++
			return fmt.Sprintf("cid-%03d", ids), nil
		},
	})
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}
	streamer, err := NewStreamer(StreamerConfig{
		Sink:         sink,
		StreamMarker: ":streamGenerateContent",
		RawBody:      true,
		Logger:       discardLogger(),
		Now:          func() time.Time { return testTime },
	})
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	return &testProxy{
		handler:  NewHandler(relay, streamer, prefix, nil, discardLogger()),
		relay:    relay,
		streamer: streamer,
		sink:     sink,
	}
}

func jsonEqual(t *testing.T, got, want []byte) bool {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("unmarshal %s: %v", got, err)
	}
	if err := json.Unmarshal(want, &w); err != nil {
		t.Fatalf("unmarshal %s: %v", want, err)
	}
	gb, _ := json.Marshal(g)
	wb, _ := json.Marshal(w)
	return string(gb) == string(wb)
}
