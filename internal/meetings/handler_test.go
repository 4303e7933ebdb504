package meetings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/summarizer"
)

type stubStore struct {
	meetings map[uuid.UUID]*models.Meeting
}

func newStubStore() *stubStore {
	return &stubStore{meetings: map[uuid.UUID]*models.Meeting{}}
}

func (s *stubStore) Create(_ context.Context, m *models.Meeting) error {
	m.ID = uuid.New()
	s.meetings[m.ID] = m
	return nil
}

func (s *stubStore) GetByID(_ context.Context, id uuid.UUID) (*models.Meeting, error) {
	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *stubStore) List(context.Context) ([]models.Meeting, error) {
	out := make([]models.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, *m)
	}
	return out, nil
}

func (s *stubStore) AppendAction(_ context.Context, id uuid.UUID, action string) error {
	m, ok := s.meetings[id]
	if !ok {
		return ErrNotFound
	}
	m.Actions = append(m.Actions, action)
	return nil
}

func (s *stubStore) End(_ context.Context, id uuid.UUID, sentiment string) (*models.Meeting, error) {
	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := time.Now()
	m.MeetingEnd = &now
	m.Sentiment = sentiment
	return m, nil
}

type fakeSummarizer struct {
	transcript []string
	insights   *summarizer.Insights
	err        error
}

func (f *fakeSummarizer) Summarize(_ context.Context, transcript []string) (*summarizer.Insights, error) {
	f.transcript = transcript
	if f.err != nil {
		return nil, f.err
	}
	return f.insights, nil
}

func newMeetingsRouter(store Store, s Summarizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(store, s, zap.NewNop())
	r.POST("/meetings", h.Start)
	r.GET("/meetings", h.List)
	r.GET("/meetings/:id", h.Get)
	r.POST("/meetings/:id/actions", h.AppendAction)
	r.POST("/meetings/:id/end", h.End)
	return r
}

func jsonRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestStartMeeting(t *testing.T) {
	store := newStubStore()
	router := newMeetingsRouter(store, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, http.MethodPost, "/meetings", gin.H{
		"participant1": "alice",
		"participant2": "bob",
	}))

	require.Equal(t, http.StatusCreated, resp.Code)
	var m models.Meeting
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &m))
	require.NotEqual(t, uuid.Nil, m.ID)
	require.Equal(t, "alice", m.Participant1)
	require.NotNil(t, m.Actions)
	require.Nil(t, m.MeetingEnd)
}

func TestStartMeetingMissingParticipant(t *testing.T) {
	router := newMeetingsRouter(newStubStore(), nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, http.MethodPost, "/meetings", gin.H{"participant1": "alice"}))

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAppendAction(t *testing.T) {
	store := newStubStore()
	m := &models.Meeting{Participant1: "alice", Participant2: "bob", MeetingStart: time.Now()}
	require.NoError(t, store.Create(context.Background(), m))
	router := newMeetingsRouter(store, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, http.MethodPost, "/meetings/"+m.ID.String()+"/actions", gin.H{
		"action": "alice: hello",
	}))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, []string{"alice: hello"}, store.meetings[m.ID].Actions)
}

func TestAppendActionBlankRejected(t *testing.T) {
	store := newStubStore()
	m := &models.Meeting{Participant1: "a", Participant2: "b"}
	require.NoError(t, store.Create(context.Background(), m))
	router := newMeetingsRouter(store, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, http.MethodPost, "/meetings/"+m.ID.String()+"/actions", gin.H{"action": "  "}))

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAppendActionMeetingNotFound(t *testing.T) {
	router := newMeetingsRouter(newStubStore(), nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, http.MethodPost, "/meetings/"+uuid.NewString()+"/actions", gin.H{"action": "x"}))

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestEndMeetingUsesSummarizer(t *testing.T) {
	store := newStubStore()
	m := &models.Meeting{Participant1: "a", Participant2: "b", Actions: []string{"a: hi", "b: bye"}}
	require.NoError(t, store.Create(context.Background(), m))
	fake := &fakeSummarizer{insights: &summarizer.Insights{Summary: "positive"}}
	router := newMeetingsRouter(store, fake)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/meetings/"+m.ID.String()+"/end", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, []string{"a: hi", "b: bye"}, fake.transcript)

	var ended models.Meeting
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ended))
	require.Equal(t, "positive", ended.Sentiment)
	require.NotNil(t, ended.MeetingEnd)
}

func TestEndMeetingSummarizerFailureDegrades(t *testing.T) {
	store := newStubStore()
	m := &models.Meeting{Participant1: "a", Participant2: "b", Actions: []string{"a: hi"}}
	require.NoError(t, store.Create(context.Background(), m))
	router := newMeetingsRouter(store, &fakeSummarizer{err: errors.New("service down")})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/meetings/"+m.ID.String()+"/end", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var ended models.Meeting
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ended))
	require.Empty(t, ended.Sentiment)
	require.NotNil(t, ended.MeetingEnd)
}

func TestEndMeetingNotFound(t *testing.T) {
	router := newMeetingsRouter(newStubStore(), nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/meetings/"+uuid.NewString()+"/end", nil))

	require.Equal(t, http.StatusNotFound, resp.Code)
}
