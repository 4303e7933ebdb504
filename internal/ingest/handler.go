package ingest

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/response"
)

// MaxUploadSize bounds one uploaded chunk (128MB).
const MaxUploadSize = 128 << 20

// Recorder stores one uploaded chunk and returns the updated session.
type Recorder interface {
	StoreChunk(ctx context.Context, sessionID string, data []byte, now time.Time) (*models.RecordingSession, error)
}

// Handler is the external-facing upload boundary.
type Handler struct {
	recorder Recorder
	logger   *zap.Logger
}

// NewHandler creates an ingestion handler.
func NewHandler(recorder Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{recorder: recorder, logger: logger}
}

// StoreRecording handles POST /storeRecording. Multipart body with field
// sessionId and the media in file field "recording" (or "video").
func (h *Handler) StoreRecording(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	file := formFile(c)
	if file == nil || file.Size == 0 {
		response.BadRequest(c, "No video data provided")
		return
	}

	sessionID := strings.TrimSpace(c.PostForm("sessionId"))
	if sessionID == "" {
		response.BadRequest(c, "No session id provided")
		return
	}
	if !ValidSessionID(sessionID) {
		response.BadRequest(c, "Invalid session id")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.BadRequest(c, "No video data provided")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		response.BadRequest(c, "No video data provided")
		return
	}

	sess, err := h.recorder.StoreChunk(c.Request.Context(), sessionID, data, time.Now())
	if err != nil {
		h.logger.Error("store recording failed", zap.Error(err), zap.String("session_id", sessionID))
		response.Internal(c, "Failed to save recording")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Video uploaded successfully",
		"session": sess,
	})
}

func formFile(c *gin.Context) *multipart.FileHeader {
	for _, field := range []string{"recording", "video"} {
		if f, err := c.FormFile(field); err == nil {
			return f
		}
	}
	return nil
}
