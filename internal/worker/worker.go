package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/storage"
)

// ChunkStore records the archive location for a chunk.
type ChunkStore interface {
	SetChunkArchiveURL(ctx context.Context, chunkID uuid.UUID, url string) error
}

// ArchiveProcessor processes chunk archival jobs: stream the local chunk
// file to S3, record the archive URL, then remove the local file.
type ArchiveProcessor struct {
	store  ChunkStore
	s3     *storage.S3
	queue  *queue.Queue
	logger *zap.Logger
}

// NewArchiveProcessor creates a chunk archival processor.
func NewArchiveProcessor(store ChunkStore, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *ArchiveProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveProcessor{store: store, s3: s3, queue: q, logger: logger}
}

// Process executes one chunk archival job.
func (p *ArchiveProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeChunkArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ChunkArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	f, err := os.Open(payload.Path)
	if err != nil {
		return fmt.Errorf("open chunk file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat chunk file: %w", err)
	}

	key := storage.ChunkKey(payload.SessionID, filepath.Base(payload.Path))
	url, err := p.s3.Upload(ctx, key, "video/webm", f, info.Size())
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.store.SetChunkArchiveURL(ctx, payload.ChunkID, url); err != nil {
		return fmt.Errorf("record archive url: %w", err)
	}

	if err := os.Remove(payload.Path); err != nil {
		p.logger.Warn("remove archived chunk file failed", zap.Error(err), zap.String("path", payload.Path))
	}

	p.logger.Info("chunk archived",
		zap.String("session_id", payload.SessionID),
		zap.String("chunk_id", payload.ChunkID.String()),
		zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ArchiveProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("archive worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("archive worker stopping")
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("archive job failed", zap.Error(err), zap.String("job_id", job.ID))
			if rErr := p.queue.Retry(ctx, job); rErr != nil {
				p.logger.Error("retry failed", zap.Error(rErr), zap.String("job_id", job.ID))
			}
		}
	}
}
