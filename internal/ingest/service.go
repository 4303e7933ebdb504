package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/queue"
)

// SessionStore appends a chunk record atomically (find-or-create session,
// append chunk, bump end time).
type SessionStore interface {
	AppendChunk(ctx context.Context, sessionID string, chunk models.Chunk, complete bool) (*models.RecordingSession, error)
}

// ArchiveQueue enqueues background archival of a written chunk. Optional.
type ArchiveQueue interface {
	EnqueueChunkArchive(ctx context.Context, payload queue.ChunkArchivePayload) error
}

// Service composes the chunk file write with the session record append.
// Ordering is write-then-record: a chunk record is never appended without a
// successfully written file, and a failed record removes the written file.
type Service struct {
	files        *FileStore
	store        SessionStore
	archive      ArchiveQueue
	oneShot      bool
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewService creates the ingestion service. When oneShot is true each upload
// also marks the session completed (reference behavior); otherwise sessions
// stay active until the explicit complete call.
func NewService(files *FileStore, store SessionStore, archive ArchiveQueue, oneShot bool, writeTimeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	return &Service{
		files:        files,
		store:        store,
		archive:      archive,
		oneShot:      oneShot,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// StoreChunk persists one uploaded chunk and returns the updated session.
// The whole write path is bounded by the configured write timeout.
func (s *Service) StoreChunk(ctx context.Context, sessionID string, data []byte, now time.Time) (*models.RecordingSession, error) {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	path, size, err := s.files.Write(sessionID, data, now)
	if err != nil {
		return nil, fmt.Errorf("write chunk: %w", err)
	}

	sess, err := s.store.AppendChunk(ctx, sessionID, models.Chunk{
		Timestamp: now,
		Path:      path,
		Size:      size,
	}, s.oneShot)
	if err != nil {
		if rmErr := s.files.Remove(path); rmErr != nil {
			s.logger.Warn("remove orphan chunk file failed", zap.Error(rmErr), zap.String("path", path))
		}
		return nil, fmt.Errorf("record chunk: %w", err)
	}

	if s.archive != nil {
		for i := range sess.Chunks {
			if sess.Chunks[i].Path != path {
				continue
			}
			payload := queue.ChunkArchivePayload{
				SessionID: sessionID,
				ChunkID:   sess.Chunks[i].ID,
				Path:      path,
			}
			if err := s.archive.EnqueueChunkArchive(ctx, payload); err != nil {
				// Archival is best-effort; the chunk is already durable locally.
				s.logger.Warn("enqueue chunk archive failed", zap.Error(err), zap.String("session_id", sessionID))
			}
			break
		}
	}

	s.logger.Info("chunk stored",
		zap.String("session_id", sessionID),
		zap.String("path", path),
		zap.Int64("size", size),
		zap.String("status", sess.Status))
	return sess, nil
}
