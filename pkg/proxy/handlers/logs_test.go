package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/loupe/pkg/logstore"
	"mercator-hq/loupe/pkg/telemetry/logging"
)

func newTestStore(t *testing.T, records int) *logstore.Store {
	t.Helper()
	store, err := logstore.Open(filepath.Join(t.TempDir(), "requests.ndjson"), logstore.Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("logstore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	at := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	for i := 0; i < records; i++ {
		rec := logstore.NewRequestRecord(at, fmt.Sprintf("id-%04d", i), "/v1/x", "http://up/v1/x", []byte(`{"n":1}`))
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return store
}

func listRecords(t *testing.T, h http.Handler, query string) []map[string]any {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/logs"+query, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/logs%s status = %d, body %s", query, w.Code, w.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not a JSON array: %v: %s", err, w.Body.String())
	}
	return out
}

func TestLogsHandler_ListLimits(t *testing.T) {
	h := NewLogsHandler(newTestStore(t, 1200), nil, logging.Discard())

	tests := []struct {
		query string
		want  int
	}{
		{"", 200},
		{"?limit=0", 200},
		{"?limit=-3", 200},
		{"?limit=abc", 200},
		{"?limit=5", 5},
		{"?limit=5000", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := listRecords(t, h, tt.query)
			if len(got) != tt.want {
				t.Errorf("got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestLogsHandler_ListNewestInAppendOrder(t *testing.T) {
	h := NewLogsHandler(newTestStore(t, 10), nil, logging.Discard())

	got := listRecords(t, h, "?limit=3")
	want := []string{"id-0007", "id-0008", "id-0009"}
	for i, rec := range got {
		if rec["correlation_id"] != want[i] {
			t.Errorf("record %d correlation_id = %v, want %s", i, rec["correlation_id"], want[i])
		}
	}
}

func TestLogsHandler_ListEmpty(t *testing.T) {
	h := NewLogsHandler(newTestStore(t, 0), nil, logging.Discard())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/logs", nil))

	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestLogsHandler_ClearTwice(t *testing.T) {
	h := NewLogsHandler(newTestStore(t, 4), nil, logging.Discard())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/logs", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("clear %d status = %d", i, w.Code)
		}
		var body ClearResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || !body.Cleared {
			t.Fatalf("clear %d body = %s (%v)", i, w.Body.String(), err)
		}
		if got := listRecords(t, h, ""); len(got) != 0 {
			t.Errorf("after clear %d got %d records", i, len(got))
		}
	}
}

type failingStore struct{ err error }

func (f failingStore) Recent(int) ([]json.RawMessage, error) { return nil, f.err }
func (f failingStore) Clear() error                          { return f.err }

func TestLogsHandler_StoreErrors(t *testing.T) {
	h := NewLogsHandler(failingStore{err: errors.New("disk gone")}, nil, logging.Discard())

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(method, "/api/logs", nil))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s status = %d, want 500", method, w.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["detail"] != "disk gone" {
			t.Errorf("%s body = %s", method, w.Body.String())
		}
	}
}

func TestLogsHandler_MethodNotAllowed(t *testing.T) {
	h := NewLogsHandler(newTestStore(t, 0), nil, logging.Discard())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/logs", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
	if w.Header().Get("Allow") == "" {
		t.Error("Allow header missing")
	}
}
