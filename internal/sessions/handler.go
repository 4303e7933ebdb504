package sessions

import (
	"context"
	"errors"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/response"
	"github.com/meetscribe/backend/pkg/storage"
)

// Store is the session read/complete surface the handler needs.
type Store interface {
	ListSessions(ctx context.Context) ([]models.RecordingSession, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.RecordingSession, error)
	Complete(ctx context.Context, sessionID string) (*models.RecordingSession, error)
	GetChunk(ctx context.Context, sessionID string, chunkID uuid.UUID) (*models.Chunk, error)
}

// Handler handles recording session HTTP endpoints.
type Handler struct {
	store  Store
	s3     *storage.S3 // optional; nil disables download URLs
	logger *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(store Store, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, s3: s3, logger: logger}
}

// List handles GET /recordings.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.ListSessions(c.Request.Context())
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		response.Internal(c, "failed to list recordings")
		return
	}
	response.OK(c, list)
}

// Get handles GET /recordings/:sessionId.
func (h *Handler) Get(c *gin.Context) {
	sess, err := h.store.GetBySessionID(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "recording session not found")
			return
		}
		h.logger.Error("get session failed", zap.Error(err), zap.String("session_id", c.Param("sessionId")))
		response.Internal(c, "failed to load recording")
		return
	}
	response.OK(c, sess)
}

// Complete handles POST /recordings/:sessionId/complete, the explicit
// end-of-session signal for incremental recording.
func (h *Handler) Complete(c *gin.Context) {
	sess, err := h.store.Complete(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "recording session not found")
			return
		}
		h.logger.Error("complete session failed", zap.Error(err), zap.String("session_id", c.Param("sessionId")))
		response.Internal(c, "failed to complete recording")
		return
	}
	response.OK(c, sess)
}

// DownloadURL handles GET /recordings/:sessionId/chunks/:chunkId/download-url.
// Returns a presigned URL once the chunk has been archived to S3.
func (h *Handler) DownloadURL(c *gin.Context) {
	sessionID := c.Param("sessionId")
	chunkID, err := uuid.Parse(c.Param("chunkId"))
	if err != nil {
		response.BadRequest(c, "invalid chunk id")
		return
	}

	chunk, err := h.store.GetChunk(c.Request.Context(), sessionID, chunkID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "chunk not found")
			return
		}
		h.logger.Error("get chunk failed", zap.Error(err), zap.String("chunk_id", chunkID.String()))
		response.Internal(c, "failed to load chunk")
		return
	}
	if chunk.ArchiveURL == "" {
		response.Conflict(c, "chunk not archived yet")
		return
	}
	if h.s3 == nil {
		response.ServiceUnavailable(c, "archive storage not configured")
		return
	}

	expire := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(),
		storage.ChunkKey(sessionID, path.Base(chunk.Path)), expire)
	if err != nil {
		h.logger.Error("presign chunk download failed", zap.Error(err), zap.String("chunk_id", chunkID.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(expire.Seconds())})
}
