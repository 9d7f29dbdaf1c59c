package proxy

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func newTestStreamer(t *testing.T, sink RecordSink, rawBody bool) *Streamer {
	t.Helper()
	s, err := NewStreamer(StreamerConfig{
		Sink:         sink,
		StreamMarker: ":streamGenerateContent",
		RawBody:      rawBody,
		ChunkSize:    8,
		Logger:       discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	return s
}

func testUpstream(route string, resp *http.Response) *Upstream {
	return &Upstream{
		Response:      resp,
		CorrelationID: "cid",
		Route:         route,
		Target:        "http://upstream.test" + route,
		Started:       testTime,
	}
}

func TestNewStreamer_RequiresSink(t *testing.T) {
	if _, err := NewStreamer(StreamerConfig{}); err == nil {
		t.Error("NewStreamer() without a sink succeeded")
	}
}

func TestStreamer_Mode(t *testing.T) {
	s := newTestStreamer(t, &memSink{}, true)

	tests := []struct {
		route       string
		contentType string
		want        string
	}{
		{"/v1/chat", "text/event-stream", ModeStream},
		{"/v1/chat", "text/event-stream; charset=utf-8", ModeStream},
		{"/v1/chat", "TEXT/EVENT-STREAM", ModeStream},
		{"/v1beta/models/g:streamGenerateContent?alt=sse", "application/json", ModeStream},
		{"/v1beta/models/g:STREAMGENERATECONTENT", "", ModeStream},
		{"/v1beta/models/g:generateContent", "application/json", ModeBuffered},
		{"/v1/chat", "", ModeBuffered},
	}
	for _, tt := range tests {
		if got := s.Mode(tt.route, tt.contentType); got != tt.want {
			t.Errorf("Mode(%q, %q) = %q, want %q", tt.route, tt.contentType, got, tt.want)
		}
	}

	plain := newTestStreamer(t, &memSink{}, true)
	plain.marker = ""
	if got := plain.Mode("/x:streamGenerateContent", "application/json"); got != ModeBuffered {
		t.Errorf("Mode() without a marker = %q, want buffered", got)
	}
}

func TestStreamer_StreamForwardsEveryChunk(t *testing.T) {
	chunks := []string{"data: {\"a\":1}\n\n", "data: {\"b\":2}\n\n", "data: [DONE]\n\n"}
	sink := &memSink{}
	s := newTestStreamer(t, sink, true)

	resp := fakeResponse(http.StatusOK, "text/event-stream", &chunkedBody{chunks: append([]string(nil), chunks...)})
	resp.Header.Set("Content-Length", "999")
	resp.Header.Set("X-Upstream", "yes")
	fr := newFlushRecorder()

	if err := s.Deliver(fr, testUpstream("/chat", resp)); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	s.Wait()

	want := strings.Join(chunks, "")
	if fr.body() != want {
		t.Errorf("client body = %q, want %q", fr.body(), want)
	}
	// ChunkSize 8 splits every event across several reads, each flushed.
	if fr.flushes < len(want)/8 {
		t.Errorf("flushes = %d, want one per chunk", fr.flushes)
	}
	if fr.header.Get("Content-Length") != "" {
		t.Error("stream mode set Content-Length")
	}
	if fr.header.Get("X-Upstream") != "yes" {
		t.Error("upstream header dropped")
	}

	entries := sink.entries(t)
	if len(entries) != 1 {
		t.Fatalf("got %d records, want 1", len(entries))
	}
	if entries[0].CorrelationID != "cid" || entries[0].Route != "/chat" {
		t.Errorf("record header = %+v", entries[0].Header)
	}
}

func TestStreamer_EmptyStreamCommitsAtEnd(t *testing.T) {
	sink := &memSink{}
	s := newTestStreamer(t, sink, true)
	fr := newFlushRecorder()

	resp := fakeResponse(http.StatusOK, "", &chunkedBody{})
	if err := s.Deliver(fr, testUpstream("/x:streamGenerateContent", resp)); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	s.Wait()

	if fr.status != http.StatusOK {
		t.Errorf("status = %d, want 200", fr.status)
	}
	if fr.header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want the event-stream default", fr.header.Get("Content-Type"))
	}
	if fr.flushes != 1 {
		t.Errorf("flushes = %d, want 1", fr.flushes)
	}
	if len(sink.kinds()) != 1 {
		t.Error("empty stream was not recorded")
	}
}

func TestStreamer_StreamFailureBeforeCommit(t *testing.T) {
	sink := &memSink{}
	s := newTestStreamer(t, sink, true)
	fr := newFlushRecorder()

	resp := fakeResponse(http.StatusOK, "text/event-stream", &chunkedBody{err: errors.New("reset")})
	err := s.Deliver(fr, testUpstream("/s", resp))

	var de *DeliveryError
	if !errors.As(err, &de) || de.Committed {
		t.Fatalf("Deliver() error = %v, want an uncommitted DeliveryError", err)
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Kind != KindProtocol {
		t.Errorf("Deliver() error = %v, want a protocol error", err)
	}
	if fr.status != 0 {
		t.Errorf("status %d written before failure", fr.status)
	}
	s.Wait()
	if len(sink.kinds()) != 0 {
		t.Error("failed stream was recorded")
	}
}

func TestStreamer_StreamFailureAfterCommit(t *testing.T) {
	sink := &memSink{}
	s := newTestStreamer(t, sink, true)
	fr := newFlushRecorder()

	resp := fakeResponse(http.StatusOK, "text/event-stream", &chunkedBody{
		chunks: []string{"data: x\n\n"},
		err:    io.ErrUnexpectedEOF,
	})
	err := s.Deliver(fr, testUpstream("/s", resp))

	var de *DeliveryError
	if !errors.As(err, &de) || !de.Committed {
		t.Fatalf("Deliver() error = %v, want a committed DeliveryError", err)
	}
	if fr.body() != "data: x\n\n" {
		t.Errorf("client body = %q", fr.body())
	}
	s.Wait()
	if len(sink.kinds()) != 0 {
		t.Error("truncated stream was recorded")
	}
}

func TestStreamer_BufferedRecomputesLength(t *testing.T) {
	body := `{"choices":[{"message":{"content":"Hi"}}]}`
	sink := &memSink{}
	s := newTestStreamer(t, sink, true)

	resp := fakeResponse(http.StatusCreated, "", io.NopCloser(strings.NewReader(body)))
	resp.Header.Set("Content-Length", "3")
	resp.Header.Set("Content-Encoding", "gzip")
	resp.Header.Set("Transfer-Encoding", "chunked")
	rec := httptest.NewRecorder()

	if err := s.Deliver(rec, testUpstream("/v1/chat", resp)); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	s.Wait()

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(len(body)) {
		t.Errorf("Content-Length = %q, want %d", got, len(body))
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("Content-Encoding forwarded in buffered mode")
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want default application/json", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != body {
		t.Errorf("body = %q", rec.Body.String())
	}

	entries := sink.entries(t)
	if len(entries) != 1 || entries[0].Content != "Hi" || entries[0].Status != http.StatusCreated {
		t.Errorf("records = %+v", entries)
	}
}

func TestStreamer_RawBodyDisabled(t *testing.T) {
	sink := &memSink{}
	s := newTestStreamer(t, sink, false)

	resp := fakeResponse(http.StatusOK, "application/json", io.NopCloser(strings.NewReader(`{"content":"kept"}`)))
	if err := s.Deliver(httptest.NewRecorder(), testUpstream("/x", resp)); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	entries := sink.entries(t)
	if len(entries) != 1 {
		t.Fatalf("got %d records, want 1", len(entries))
	}
	if entries[0].Body != nil {
		t.Errorf("body = %s, want it omitted", entries[0].Body)
	}
	if entries[0].Content != "kept" {
		t.Errorf("content = %q, want kept", entries[0].Content)
	}
}

func TestStreamer_ClientWriteFailure(t *testing.T) {
	sink := &memSink{}
	s := newTestStreamer(t, sink, true)
	fr := newFlushRecorder()
	fr.failOn = 2

	resp := fakeResponse(http.StatusOK, "text/event-stream", &chunkedBody{
		chunks: []string{"data: 1\n\n", "data: 2\n\n", "data: 3\n\n"},
	})
	err := s.Deliver(fr, testUpstream("/s", resp))

	var de *DeliveryError
	if !errors.As(err, &de) || !de.Committed {
		t.Fatalf("Deliver() error = %v, want a committed DeliveryError", err)
	}
	s.Wait()
	if len(sink.kinds()) != 0 {
		t.Error("disconnected stream was recorded")
	}
}

func TestStreamer_CloseDropsLateRecords(t *testing.T) {
	sink := &memSink{}
	s := newTestStreamer(t, sink, true)

	resp := fakeResponse(http.StatusOK, "application/json", io.NopCloser(strings.NewReader(`{"content":"early"}`)))
	if err := s.Deliver(httptest.NewRecorder(), testUpstream("/x", resp)); err != nil {
		t.Fatal(err)
	}
	s.Close()
	if n := len(sink.kinds()); n != 1 {
		t.Fatalf("got %d records after Close, want the one scheduled before it", n)
	}

	late := fakeResponse(http.StatusOK, "application/json", io.NopCloser(strings.NewReader(`{"content":"late"}`)))
	rec := httptest.NewRecorder()
	if err := s.Deliver(rec, testUpstream("/x", late)); err != nil {
		t.Fatalf("Deliver() after Close error: %v", err)
	}
	if rec.Body.String() != `{"content":"late"}` {
		t.Errorf("client body = %q, want delivery to continue", rec.Body.String())
	}
	s.Wait()
	if n := len(sink.kinds()); n != 1 {
		t.Errorf("got %d records, want the late response dropped", n)
	}
}
