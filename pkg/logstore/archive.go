package logstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ArchiveSuffix is appended to archive file names.
const ArchiveSuffix = ".ndjson.zst"

// archiveLocked compresses the current store contents into the archive
// directory and returns the archive path. The caller holds s.mu.
func (s *Store) archiveLocked() (string, error) {
	dir := s.opts.ArchiveDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(s.path), "archive")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &StoreError{Op: "archive", Path: s.path, Cause: err}
	}

	base := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	dst := filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, s.opts.Now().UnixNano(), ArchiveSuffix))

	if err := compressFile(s.path, dst); err != nil {
		_ = os.Remove(dst)
		return "", &StoreError{Op: "archive", Path: s.path, Cause: err}
	}
	return dst, nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		out.Close()
		return fmt.Errorf("compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return fmt.Errorf("flush zstd encoder: %w", err)
	}
	return out.Close()
}

// ReadArchive decompresses an archive written by Clear and calls fn for
// each record in order. Malformed lines are skipped.
func ReadArchive(path string, fn func(json.RawMessage) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &StoreError{Op: "read", Path: path, Cause: err}
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return &StoreError{Op: "read", Path: path, Cause: err}
	}
	defer dec.Close()

	var cbErr error
	err = scanLines(dec, func(line []byte) {
		if cbErr == nil {
			cbErr = fn(append(json.RawMessage(nil), line...))
		}
	})
	if err != nil {
		return &StoreError{Op: "read", Path: path, Cause: err}
	}
	return cbErr
}
