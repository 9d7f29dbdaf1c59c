package logstore

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFollower_EmitsNewRecords(t *testing.T) {
	s := openTestStore(t, Options{})
	appendRequests(t, s, 2)

	f, err := NewFollower(s.Path(), false, nil)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- f.Follow(ctx, func(raw json.RawMessage) {
			e, _ := Decode(raw)
			got <- e.CorrelationID
		})
	}()

	appendRequests(t, s, 1)

	select {
	case id := <-got:
		if id != "id-0" {
			t.Errorf("followed id = %q, want %q", id, "id-0")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for followed record")
	}

	// After a clear the follower starts over from the beginning.
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	time.Sleep(2 * followPollInterval)
	appendRequests(t, s, 1)

	select {
	case id := <-got:
		if id != "id-0" {
			t.Errorf("followed id after clear = %q, want %q", id, "id-0")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for record after clear")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow() error = %v", err)
	}
}

func TestFollower_FromStart(t *testing.T) {
	s := openTestStore(t, Options{})
	appendRequests(t, s, 2)

	f, err := NewFollower(s.Path(), true, nil)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	var ids []string
	if err := f.drain(func(raw json.RawMessage) {
		e, _ := Decode(raw)
		ids = append(ids, e.CorrelationID)
	}); err != nil {
		t.Fatalf("drain() error = %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("drained %d records, want 2", len(ids))
	}
}

func drainIDs(t *testing.T, f *Follower) []string {
	t.Helper()
	var ids []string
	if err := f.drain(func(raw json.RawMessage) {
		e, err := Decode(raw)
		if err != nil {
			t.Errorf("followed line does not decode: %v", err)
			return
		}
		ids = append(ids, e.CorrelationID)
	}); err != nil {
		t.Fatalf("drain() error = %v", err)
	}
	return ids
}

func TestFollower_ClearThenRegrowPastOffset(t *testing.T) {
	s := openTestStore(t, Options{})
	appendRequests(t, s, 2)

	f, err := NewFollower(s.Path(), false, nil)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}
	if ids := drainIDs(t, f); len(ids) != 0 {
		t.Fatalf("drained %v before any append, want nothing", ids)
	}

	// Clear and append more bytes than were there before, with no drain in
	// between, so the size alone never drops below the old offset.
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	body := []byte(`{"pad":"` + strings.Repeat("y", 512) + `"}`)
	want := []string{"after-0", "after-1", "after-2"}
	for _, id := range want {
		if err := s.Append(NewRequestRecord(fixedNow, id, "/v1/x", "http://up/v1/x", body)); err != nil {
			t.Fatal(err)
		}
	}

	got := drainIDs(t, f)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("drained %v after clear and regrow, want %v", got, want)
	}
}

func TestFollower_FileReplaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requests.ndjson")
	line := `{"timestamp":"t","correlation_id":"old","route":"/","kind":"request"}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := NewFollower(path, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Same length and prefix, different file.
	replacement := filepath.Join(dir, "next.ndjson")
	if err := os.WriteFile(replacement, []byte(line+strings.Replace(line, "old", "new", 1)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(replacement, path); err != nil {
		t.Fatal(err)
	}

	got := drainIDs(t, f)
	if !reflect.DeepEqual(got, []string{"old", "new"}) {
		t.Errorf("drained %v after replacement, want the new file from the start", got)
	}
}

func TestFollower_MissingDirectoryPollsWithInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	path := filepath.Join(t.TempDir(), "not-yet", "requests.ndjson")

	f, err := NewFollower(path, false, logger)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := f.Follow(ctx, func(json.RawMessage) {}); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"component":"logstore.follow"`) {
		t.Errorf("injected logger unused:\n%s", buf.String())
	}
	if _, err := os.Stat(filepath.Dir(path)); !os.IsNotExist(err) {
		t.Errorf("Follow created the log directory (stat err = %v)", err)
	}
}
