package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// ErrInvalidSessionID is returned for session identifiers that could escape
// the recordings directory.
var ErrInvalidSessionID = errors.New("invalid session id")

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidSessionID reports whether id is safe to use as a directory name.
func ValidSessionID(id string) bool {
	return id != "" && id != "." && id != ".." && sessionIDPattern.MatchString(id)
}

// FileStore writes chunk files under one directory per session. Session
// directories are created lazily; MkdirAll treats "already exists" as
// success, so concurrent first uploads do not race.
type FileStore struct {
	root string
}

// NewFileStore creates a chunk file store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Write persists one chunk under the session's directory. The filename is
// derived from the capture timestamp at nanosecond precision; a collision
// overwrites the previous file rather than corrupting neighbors.
func (s *FileStore) Write(sessionID string, data []byte, now time.Time) (string, int64, error) {
	if !ValidSessionID(sessionID) {
		return "", 0, ErrInvalidSessionID
	}
	dir := filepath.Join(s.root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create session dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("chunk-%d.webm", now.UnixNano()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("write chunk file: %w", err)
	}
	return path, int64(len(data)), nil
}

// Remove deletes a chunk file (cleanup after a failed record step).
func (s *FileStore) Remove(path string) error {
	return os.Remove(path)
}
