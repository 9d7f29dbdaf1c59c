package logstore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Default read limits.
const (
	DefaultLimit = 200
	MaxLimit     = 1000
)

// Options configures a Store.
type Options struct {
	// Fsync syncs the file after every append.
	Fsync bool

	// DefaultLimit is returned by ClampLimit for non-positive limits.
	// Default: 200
	DefaultLimit int

	// MaxLimit caps ClampLimit.
	// Default: 1000
	MaxLimit int

	// ArchiveOnClear compresses the current contents into ArchiveDir
	// before Clear truncates the file.
	ArchiveOnClear bool
	ArchiveDir     string

	Logger *slog.Logger
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = MaxLimit
	}
	if o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = o.MaxLimit
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Store is an append-only NDJSON record file. It is safe for concurrent use.
//
// mu serializes writers. Readers never take it: each record is one write on
// an O_APPEND handle and a torn trailing line fails json.Valid. readMu only
// keeps Clear from truncating the file under a reader.
type Store struct {
	mu     sync.Mutex
	readMu sync.RWMutex
	path   string
	file   *os.File
	opts   Options
	logger *slog.Logger
}

// Open opens or creates the store file at path, creating parent
// directories as needed.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("log store path is required")
	}
	opts = opts.withDefaults()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StoreError{Op: "open", Path: path, Cause: err}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &StoreError{Op: "open", Path: path, Cause: err}
	}

	return &Store{
		path:   path,
		file:   file,
		opts:   opts,
		logger: opts.Logger.With("component", "logstore"),
	}, nil
}

// Path returns the file the store appends to.
func (s *Store) Path() string {
	return s.path
}

// Now returns the store's clock reading, used to stamp new records.
func (s *Store) Now() time.Time {
	return s.opts.Now()
}

// Append serializes rec and writes it as a single line.
func (s *Store) Append(rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return &StoreError{Op: "append", Path: s.path, Cause: fmt.Errorf("encode record: %w", err)}
	}
	payload = append(payload, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return &StoreError{Op: "append", Path: s.path, Cause: os.ErrClosed}
	}
	if _, err := s.file.Write(payload); err != nil {
		return &StoreError{Op: "append", Path: s.path, Cause: err}
	}
	if s.opts.Fsync {
		if err := s.file.Sync(); err != nil {
			return &StoreError{Op: "append", Path: s.path, Cause: err}
		}
	}
	return nil
}

// ClampLimit maps a requested read limit onto [1, MaxLimit], substituting
// DefaultLimit for non-positive values.
func (s *Store) ClampLimit(limit int) int {
	return s.opts.ClampLimit(limit)
}

// ClampLimit is Store.ClampLimit for readers without an open Store.
func (o Options) ClampLimit(limit int) int {
	o = o.withDefaults()
	return clampLimit(limit, o.DefaultLimit, o.MaxLimit)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Recent returns up to limit of the newest records, oldest first. The limit
// is clamped with ClampLimit. A missing file yields an empty result. Appends
// proceed while Recent scans.
func (s *Store) Recent(limit int) ([]json.RawMessage, error) {
	s.readMu.RLock()
	defer s.readMu.RUnlock()
	return ReadRecent(s.path, s.ClampLimit(limit))
}

// ReadRecent returns up to limit of the newest records in the file at path,
// oldest first, without creating or modifying anything. A non-positive limit
// means DefaultLimit. A missing file yields an empty result.
func ReadRecent(path string, limit int) ([]json.RawMessage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []json.RawMessage{}, nil
		}
		return nil, &StoreError{Op: "read", Path: path, Cause: err}
	}
	defer f.Close()

	ring := make([]json.RawMessage, limit)
	n := 0
	err = scanLines(f, func(line []byte) {
		ring[n%limit] = append(json.RawMessage(nil), line...)
		n++
	})
	if err != nil {
		return nil, &StoreError{Op: "read", Path: path, Cause: err}
	}

	if n <= limit {
		return ring[:n], nil
	}
	out := make([]json.RawMessage, 0, limit)
	start := n % limit
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return out, nil
}

// scanLines calls fn for every well-formed JSON line in r. Blank and
// malformed lines are skipped. The slice passed to fn is only valid for the
// duration of the call.
func scanLines(r io.Reader, fn func(line []byte)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadBytes('\n')
		if trimmed := trimLine(line); len(trimmed) > 0 && json.Valid(trimmed) {
			fn(trimmed)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func trimLine(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

// Clear discards every stored record. Clearing an empty store is a no-op.
// With ArchiveOnClear set, a non-empty store is first compressed into the
// archive directory; a failed archive aborts the clear.
func (s *Store) Clear() error {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return &StoreError{Op: "clear", Path: s.path, Cause: os.ErrClosed}
	}

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return s.reopenLocked()
	}

	info, err := s.file.Stat()
	if err != nil {
		return &StoreError{Op: "clear", Path: s.path, Cause: err}
	}
	if info.Size() == 0 {
		return nil
	}

	if s.opts.ArchiveOnClear {
		dst, err := s.archiveLocked()
		if err != nil {
			return err
		}
		s.logger.Info("archived request log", "archive", dst, "bytes", info.Size())
	}

	if err := s.file.Truncate(0); err != nil {
		return &StoreError{Op: "clear", Path: s.path, Cause: err}
	}
	return nil
}

// reopenLocked recreates the store file after it was removed from disk.
func (s *Store) reopenLocked() error {
	_ = s.file.Close()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.file = nil
		return &StoreError{Op: "clear", Path: s.path, Cause: err}
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.file = nil
		return &StoreError{Op: "clear", Path: s.path, Cause: err}
	}
	s.file = file
	return nil
}

// Close closes the underlying file. Further appends fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Check reports whether the store can still accept appends: the file must
// be open and present at its path.
func (s *Store) Check(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return &StoreError{Op: "check", Path: s.path, Cause: os.ErrClosed}
	}
	if _, err := os.Stat(s.path); err != nil {
		return &StoreError{Op: "check", Path: s.path, Cause: err}
	}
	return nil
}
