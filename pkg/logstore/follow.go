package logstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// followPollInterval bounds how long Follow can miss a change when the
// platform drops a filesystem event.
const followPollInterval = time.Second

// headSize is how much of the file start a Follower remembers. The first
// record's timestamp and correlation id fall inside it, so a cleared and
// regrown file never matches.
const headSize = 128

// Follower tails a store file and reports records as they are appended.
type Follower struct {
	path    string
	offset  int64
	partial []byte
	head    []byte
	ident   os.FileInfo
	logger  *slog.Logger
}

// NewFollower returns a Follower for path. With fromStart unset, records
// already in the file are skipped. A nil logger uses slog.Default().
func NewFollower(path string, fromStart bool, logger *slog.Logger) (*Follower, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Follower{
		path:   path,
		logger: logger.With("component", "logstore.follow"),
	}
	if fromStart {
		return f, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, &StoreError{Op: "read", Path: path, Cause: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, &StoreError{Op: "read", Path: path, Cause: err}
	}
	f.offset, f.ident = info.Size(), info
	if err := f.rememberHead(file); err != nil {
		return nil, &StoreError{Op: "read", Path: path, Cause: err}
	}
	return f, nil
}

// Follow blocks until ctx is done, calling fn for each complete record
// appended to the file. A truncation (such as Clear) restarts reading from
// the beginning of the file.
func (f *Follower) Follow(ctx context.Context, fn func(json.RawMessage)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so that removal and re-creation are observed.
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to watch %q: %w", dir, err)
		}
		f.logger.Debug("log directory missing, polling", "dir", dir)
	}

	if err := f.drain(fn); err != nil {
		return err
	}

	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if err := f.drain(fn); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			f.logger.Error("file watcher error", "error", err)

		case <-ticker.C:
			if err := f.drain(fn); err != nil {
				return err
			}
		}
	}
}

// drain reads everything past the current offset and emits complete lines.
func (f *Follower) drain(fn func(json.RawMessage)) error {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.offset, f.partial = 0, nil
			return nil
		}
		return &StoreError{Op: "read", Path: f.path, Cause: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return &StoreError{Op: "read", Path: f.path, Cause: err}
	}
	rewritten, err := f.rewritten(file, info)
	if err != nil {
		return &StoreError{Op: "read", Path: f.path, Cause: err}
	}
	if rewritten {
		f.logger.Debug("log truncated or replaced, restarting from offset 0", "path", f.path)
		f.offset, f.partial, f.head = 0, nil, nil
	}
	f.ident = info
	if info.Size() == f.offset {
		return nil
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return &StoreError{Op: "read", Path: f.path, Cause: err}
	}
	chunk, err := io.ReadAll(io.LimitReader(file, info.Size()-f.offset))
	if err != nil {
		return &StoreError{Op: "read", Path: f.path, Cause: err}
	}
	f.offset += int64(len(chunk))

	data := append(f.partial, chunk...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := trimLine(data[:i])
		data = data[i+1:]
		if len(line) > 0 && json.Valid(line) {
			fn(append(json.RawMessage(nil), line...))
		}
	}
	f.partial = append([]byte(nil), data...)
	if err := f.rememberHead(file); err != nil {
		return &StoreError{Op: "read", Path: f.path, Cause: err}
	}
	return nil
}

// rewritten reports whether the file no longer continues what was read: it
// was replaced, shrank below the offset, or its first bytes changed (a Clear
// followed by enough appends to pass the old offset).
func (f *Follower) rewritten(file *os.File, info os.FileInfo) (bool, error) {
	if f.offset == 0 {
		return false, nil
	}
	if f.ident != nil && !os.SameFile(f.ident, info) {
		return true, nil
	}
	if info.Size() < f.offset {
		return true, nil
	}
	if len(f.head) == 0 {
		return false, nil
	}
	buf := make([]byte, len(f.head))
	if _, err := file.ReadAt(buf, 0); err != nil {
		return false, err
	}
	return !bytes.Equal(buf, f.head), nil
}

// rememberHead records up to headSize bytes of the already-read prefix.
func (f *Follower) rememberHead(file *os.File) error {
	n := min(f.offset, headSize)
	if int64(len(f.head)) >= n {
		return nil
	}
	buf := make([]byte, n)
	if _, err := file.ReadAt(buf, 0); err != nil {
		return err
	}
	f.head = buf
	return nil
}
