package proxy

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"mercator-hq/loupe/pkg/extract"
	"mercator-hq/loupe/pkg/logstore"
	"mercator-hq/loupe/pkg/telemetry/metrics"
)

const defaultChunkSize = 32 * 1024

// Delivery modes.
const (
	ModeStream   = "stream"
	ModeBuffered = "buffered"
)

// StreamerConfig configures a Streamer.
type StreamerConfig struct {
	// Sink receives the post-call response record.
	Sink RecordSink

	// StreamMarker, matched case-insensitively against the route, selects
	// stream mode even when the upstream content type does not.
	StreamMarker string

	// RawBody keeps the full upstream body in response records.
	RawBody bool

	// ChunkSize is the upstream read buffer size in stream mode.
	// Default: 32KB
	ChunkSize int

	Metrics *metrics.Collector
	Logger  *slog.Logger
	Now     func() time.Time
}

// Streamer delivers upstream responses to the client and records them.
type Streamer struct {
	sink      RecordSink
	marker    string
	rawBody   bool
	chunkSize int
	metrics   *metrics.Collector
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewStreamer returns a Streamer for cfg.
func NewStreamer(cfg StreamerConfig) (*Streamer, error) {
	if cfg.Sink == nil {
		return nil, errors.New("record sink is required")
	}
	s := &Streamer{
		sink:      cfg.Sink,
		marker:    strings.ToLower(cfg.StreamMarker),
		rawBody:   cfg.RawBody,
		chunkSize: cfg.ChunkSize,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if s.chunkSize <= 0 {
		s.chunkSize = defaultChunkSize
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "proxy.streamer")
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Mode returns ModeStream when the content type denotes an event stream or
// the route carries the stream marker, and ModeBuffered otherwise.
func (s *Streamer) Mode(route, contentType string) string {
	if strings.Contains(strings.ToLower(contentType), extract.EventStreamType) {
		return ModeStream
	}
	if s.marker != "" && strings.Contains(strings.ToLower(route), s.marker) {
		return ModeStream
	}
	return ModeBuffered
}

// Deliver forwards up to w in the mode chosen by Mode and schedules the
// response record. Failures are returned as *DeliveryError; when Committed
// is false nothing has been written to w yet.
func (s *Streamer) Deliver(w http.ResponseWriter, up *Upstream) error {
	resp := up.Response
	mode := s.Mode(up.Route, resp.Header.Get("Content-Type"))

	var err error
	if mode == ModeStream {
		err = s.stream(w, up)
	} else {
		err = s.buffer(w, up)
	}

	s.metrics.RecordRequest(mode, resp.StatusCode, s.now().Sub(up.Started))
	return err
}

// stream forwards each upstream chunk as it arrives and tees it into an
// accumulator. The status line is held back until the first chunk so that
// an immediate upstream failure can still become a 502.
func (s *Streamer) stream(w http.ResponseWriter, up *Upstream) error {
	resp := up.Response
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = extract.EventStreamType
	}

	var acc bytes.Buffer
	tee := io.MultiWriter(newFlushWriter(w), &acc)
	buf := make([]byte, s.chunkSize)
	committed := false

	commit := func() {
		copyHeaders(w.Header(), resp.Header, streamStripHeaders)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(resp.StatusCode)
		committed = true
	}

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if !committed {
				commit()
			}
			if _, err := tee.Write(buf[:n]); err != nil {
				s.logger.Debug("client went away mid-stream",
					"correlation_id", up.CorrelationID,
					"error", err,
				)
				return &DeliveryError{Committed: true, Err: err}
			}
			s.metrics.RecordStreamedBytes(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			s.metrics.RecordUpstreamError(string(KindProtocol))
			return &DeliveryError{
				Committed: committed,
				Err:       &UpstreamError{Kind: KindProtocol, Target: up.Target, Err: readErr},
			}
		}
	}

	if !committed {
		commit()
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}

	s.emit(up, resp.StatusCode, acc.Bytes(), contentType)
	return nil
}

// buffer reads the whole upstream body, then replies with a recomputed
// Content-Length.
func (s *Streamer) buffer(w http.ResponseWriter, up *Upstream) error {
	resp := up.Response

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.metrics.RecordUpstreamError(string(KindProtocol))
		return &DeliveryError{
			Committed: false,
			Err:       &UpstreamError{Kind: KindProtocol, Target: up.Target, Err: err},
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	copyHeaders(w.Header(), resp.Header, bufferedStripHeaders)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(resp.StatusCode)

	if _, err := w.Write(body); err != nil {
		return &DeliveryError{Committed: true, Err: err}
	}

	s.emit(up, resp.StatusCode, body, contentType)
	return nil
}

// emit extracts content and tool calls from body and appends the response
// record on a background goroutine, so the client never waits on log I/O.
// body must not be modified afterwards.
func (s *Streamer) emit(up *Upstream, status int, body []byte, contentType string) {
	at := s.now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.metrics.RecordLogWriteFailure(string(logstore.KindResponse))
		s.logger.Warn("response record dropped after shutdown",
			"correlation_id", up.CorrelationID,
			"route", up.Route,
		)
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()

		rec := logstore.NewResponseRecord(at, up.CorrelationID, up.Route, logstore.ResponseFields{
			Status:    status,
			Body:      body,
			Content:   extract.Content(body, contentType),
			ToolCalls: extract.ToolCalls(body, contentType),
			RawBody:   s.rawBody,
		})
		if err := s.sink.Append(rec); err != nil {
			s.metrics.RecordLogWriteFailure(string(logstore.KindResponse))
			s.logger.Error("failed to write response record",
				"correlation_id", up.CorrelationID,
				"route", up.Route,
				"error_kind", KindLogWrite,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every scheduled response record has been written.
func (s *Streamer) Wait() {
	s.pending.Wait()
}

// Close stops scheduling response records and waits for the ones already
// scheduled. Responses delivered afterwards are not recorded.
func (s *Streamer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pending.Wait()
}
