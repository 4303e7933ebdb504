package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the recording session lifecycle. Transitions are
// monotonic: active -> completed, never back.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

// Chunk is one persisted unit of uploaded media. Immutable once written,
// except for ArchiveURL which is filled in when the archival worker mirrors
// the file to S3.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ArchiveURL string    `json:"archiveUrl,omitempty"`
}

// RecordingSession is the durable record of one meeting recording's uploads,
// keyed by a caller-supplied session identifier. The chunk list is
// append-only.
type RecordingSession struct {
	SessionID string     `json:"sessionId"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Chunks    []Chunk    `json:"chunks"`
}

// Completed reports whether the session has reached its terminal status.
func (s *RecordingSession) Completed() bool {
	return s.Status == SessionStatusCompleted
}
