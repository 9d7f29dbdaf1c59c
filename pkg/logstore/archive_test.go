package logstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_ClearArchivesContents(t *testing.T) {
	archiveDir := filepath.Join(t.TempDir(), "archive")
	s := openTestStore(t, Options{ArchiveOnClear: true, ArchiveDir: archiveDir})
	appendRequests(t, s, 3)

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("archive count = %d, want 1", len(entries))
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "requests-") || !strings.HasSuffix(name, ArchiveSuffix) {
		t.Errorf("unexpected archive name %q", name)
	}

	var ids []string
	err = ReadArchive(filepath.Join(archiveDir, name), func(raw json.RawMessage) error {
		e, err := Decode(raw)
		if err != nil {
			return err
		}
		ids = append(ids, e.CorrelationID)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadArchive() error = %v", err)
	}
	if strings.Join(ids, ",") != "id-0,id-1,id-2" {
		t.Errorf("archived ids = %v", ids)
	}

	// An empty store produces no archive.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear() error = %v", err)
	}
	entries, _ = os.ReadDir(archiveDir)
	if len(entries) != 1 {
		t.Errorf("archive count after empty clear = %d, want 1", len(entries))
	}
}

func TestReadArchive_MissingFile(t *testing.T) {
	err := ReadArchive(filepath.Join(t.TempDir(), "nope.zst"), func(json.RawMessage) error { return nil })
	if err == nil {
		t.Fatal("expected error for missing archive")
	}
}
