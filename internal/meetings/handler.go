package meetings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/summarizer"
	"github.com/meetscribe/backend/pkg/response"
)

// Store is the meeting persistence surface the handler needs.
type Store interface {
	Create(ctx context.Context, m *models.Meeting) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	List(ctx context.Context) ([]models.Meeting, error)
	AppendAction(ctx context.Context, id uuid.UUID, action string) error
	End(ctx context.Context, id uuid.UUID, sentiment string) (*models.Meeting, error)
}

// Summarizer produces sentiment insights from a transcript. Optional; nil
// means meetings end without a sentiment summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript []string) (*summarizer.Insights, error)
}

// Handler handles meeting lifecycle HTTP endpoints.
type Handler struct {
	store      Store
	summarizer Summarizer
	logger     *zap.Logger
}

// NewHandler creates a meetings handler.
func NewHandler(store Store, s Summarizer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, summarizer: s, logger: logger}
}

type startRequest struct {
	Participant1 string `json:"participant1" binding:"required"`
	Participant2 string `json:"participant2" binding:"required"`
}

// Start handles POST /meetings.
func (h *Handler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "participant1 and participant2 required")
		return
	}
	m := &models.Meeting{
		Participant1: req.Participant1,
		Participant2: req.Participant2,
		MeetingStart: time.Now(),
		Actions:      []string{},
	}
	if err := h.store.Create(c.Request.Context(), m); err != nil {
		h.logger.Error("create meeting failed", zap.Error(err))
		response.Internal(c, "failed to start meeting")
		return
	}
	response.Created(c, m)
}

// Get handles GET /meetings/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	m, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "meeting not found")
			return
		}
		h.logger.Error("get meeting failed", zap.Error(err), zap.String("meeting_id", id.String()))
		response.Internal(c, "failed to load meeting")
		return
	}
	response.OK(c, m)
}

// List handles GET /meetings.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list meetings failed", zap.Error(err))
		response.Internal(c, "failed to list meetings")
		return
	}
	response.OK(c, list)
}

type actionRequest struct {
	Action string `json:"action" binding:"required"`
}

// AppendAction handles POST /meetings/:id/actions.
func (h *Handler) AppendAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Action) == "" {
		response.BadRequest(c, "action required")
		return
	}
	if err := h.store.AppendAction(c.Request.Context(), id, req.Action); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "meeting not found")
			return
		}
		h.logger.Error("append action failed", zap.Error(err), zap.String("meeting_id", id.String()))
		response.Internal(c, "failed to record action")
		return
	}
	response.Message(c, "Action recorded")
}

// End handles POST /meetings/:id/end. Calls the summarization service for a
// sentiment summary; a summarizer failure degrades to ending the meeting
// without one.
func (h *Handler) End(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	m, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "meeting not found")
			return
		}
		h.logger.Error("get meeting failed", zap.Error(err), zap.String("meeting_id", id.String()))
		response.Internal(c, "failed to load meeting")
		return
	}

	sentiment := ""
	if h.summarizer != nil {
		insights, err := h.summarizer.Summarize(c.Request.Context(), m.Actions)
		if err != nil {
			h.logger.Warn("summarize meeting failed", zap.Error(err), zap.String("meeting_id", id.String()))
		} else {
			sentiment = insights.Summary
		}
	}

	ended, err := h.store.End(c.Request.Context(), id, sentiment)
	if err != nil {
		h.logger.Error("end meeting failed", zap.Error(err), zap.String("meeting_id", id.String()))
		response.Internal(c, "failed to end meeting")
		return
	}
	response.OK(c, ended)
}
