package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
)

type stubRecorder struct {
	err       error
	sessionID string
	size      int
}

func (s *stubRecorder) StoreChunk(_ context.Context, sessionID string, data []byte, now time.Time) (*models.RecordingSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sessionID = sessionID
	s.size = len(data)
	end := now
	return &models.RecordingSession{
		SessionID: sessionID,
		Status:    models.SessionStatusCompleted,
		StartTime: now,
		EndTime:   &end,
		Chunks:    []models.Chunk{{Timestamp: now, Path: "recordings/" + sessionID + "/chunk-1.webm", Size: int64(len(data))}},
	}, nil
}

func newUploadRouter(rec Recorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/storeRecording", NewHandler(rec, zap.NewNop()).StoreRecording)
	return r
}

func multipartUpload(t *testing.T, fileField, sessionID string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, "chunk.webm")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if sessionID != "" {
		require.NoError(t, w.WriteField("sessionId", sessionID))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/storeRecording", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestStoreRecordingSuccess(t *testing.T) {
	rec := &stubRecorder{}
	router := newUploadRouter(rec)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, "recording", "s1", make([]byte, 1024)))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "s1", rec.sessionID)
	require.Equal(t, 1024, rec.size)

	var body struct {
		Message string                  `json:"message"`
		Session models.RecordingSession `json:"session"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "Video uploaded successfully", body.Message)
	require.Equal(t, "s1", body.Session.SessionID)
	require.Equal(t, models.SessionStatusCompleted, body.Session.Status)
	require.Len(t, body.Session.Chunks, 1)
}

func TestStoreRecordingAcceptsVideoField(t *testing.T) {
	rec := &stubRecorder{}
	router := newUploadRouter(rec)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, "video", "s1", []byte("frame")))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 5, rec.size)
}

func TestStoreRecordingMissingFile(t *testing.T) {
	router := newUploadRouter(&stubRecorder{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, "", "s1", nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.JSONEq(t, `{"error":"No video data provided"}`, resp.Body.String())
}

func TestStoreRecordingEmptyFile(t *testing.T) {
	router := newUploadRouter(&stubRecorder{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, "recording", "s1", nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.JSONEq(t, `{"error":"No video data provided"}`, resp.Body.String())
}

func TestStoreRecordingMissingSessionID(t *testing.T) {
	router := newUploadRouter(&stubRecorder{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, "recording", "", []byte("x")))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.JSONEq(t, `{"error":"No session id provided"}`, resp.Body.String())
}

func TestStoreRecordingRejectsUnsafeSessionID(t *testing.T) {
	router := newUploadRouter(&stubRecorder{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, "recording", "../etc", []byte("x")))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.JSONEq(t, `{"error":"Invalid session id"}`, resp.Body.String())
}

func TestStoreRecordingStoreFailure(t *testing.T) {
	router := newUploadRouter(&stubRecorder{err: errors.New("disk full")})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, "recording", "s1", []byte("x")))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.JSONEq(t, `{"error":"Failed to save recording"}`, resp.Body.String())
}
