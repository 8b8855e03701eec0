package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Druk83/TrainingGround-sub001/internal/exercise"
	"github.com/Druk83/TrainingGround-sub001/internal/handler"
	"github.com/Druk83/TrainingGround-sub001/internal/middleware"
	"github.com/Druk83/TrainingGround-sub001/internal/quota"
	"github.com/Druk83/TrainingGround-sub001/internal/session"
	"github.com/Druk83/TrainingGround-sub001/internal/store"
	"github.com/Druk83/TrainingGround-sub001/internal/task"
	"github.com/Druk83/TrainingGround-sub001/internal/timer"
)

type fakeTasks struct{}

func (fakeTasks) GetByID(ctx context.Context, taskID string) (*task.Task, error) {
	if taskID != "t1" {
		return nil, task.ErrNotFound
	}
	return &task.Task{
		ID:               "t1",
		Title:            "Fractions",
		Description:      "What is 1/2 + 1/4?",
		CorrectAnswer:    "3/4",
		TimeLimitSeconds: 300,
	}, nil
}

func newRouter(t *testing.T, ipLimit int) (*gin.Engine, session.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := store.NewMemory()
	sessions := session.NewRedisStore(kv, time.Hour, nil)
	enforcer := quota.NewEnforcer(kv, 1000, ipLimit, time.Minute, nil)
	broadcaster := timer.NewBroadcaster(sessions, 10*time.Millisecond, nil)
	exercises := exercise.NewService(sessions, fakeTasks{}, kv, nil, 3)

	h := handler.NewHandler(sessions, fakeTasks{}, exercises, broadcaster)

	r := gin.New()
	r.Use(middleware.Trace())
	h.RegisterRoutes(r, middleware.Quota(enforcer))
	return r, sessions
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateGetCompleteFlow(t *testing.T) {
	r, _ := newRouter(t, 1000)

	w := doJSON(r, http.MethodPost, "/api/v1/sessions", `{"user_id":"u1","task_id":"t1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, w.Header().Get(middleware.TraceIDHeader))

	var created struct {
		SessionID string    `json:"session_id"`
		ExpiresAt time.Time `json:"expires_at"`
		Task      struct {
			Title string `json:"title"`
		} `json:"task"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)
	require.Equal(t, "Fractions", created.Task.Title)
	require.True(t, created.ExpiresAt.After(time.Now()))

	w = doJSON(r, http.MethodGet, "/api/v1/sessions/"+created.SessionID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var got session.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, session.StatusActive, got.Status)
	require.Equal(t, "u1", got.UserID)

	w = doJSON(r, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/complete", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/sessions/"+created.SessionID, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/complete", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSessionValidation(t *testing.T) {
	r, _ := newRouter(t, 1000)

	w := doJSON(r, http.MethodPost, "/api/v1/sessions", `{"task_id":"t1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/sessions", `{"user_id":"u1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/sessions", `{"user_id":"u1","task_id":"missing"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitAnswerAndHint(t *testing.T) {
	r, sessions := newRouter(t, 1000)

	s, err := sessions.Create(context.Background(), "u1", "t1", nil)
	require.NoError(t, err)

	w := doJSON(r, http.MethodPost, "/api/v1/sessions/"+s.ID+"/answer", `{"answer":"3/4"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var answer exercise.SubmitAnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	require.True(t, answer.Correct)
	require.Equal(t, 10, answer.TotalScore)

	w = doJSON(r, http.MethodPost, "/api/v1/sessions/"+s.ID+"/hint", "")
	require.Equal(t, http.StatusOK, w.Code)

	var hint exercise.RequestHintResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hint))
	require.Equal(t, 1, hint.HintsUsed)
	require.Equal(t, 5, answer.TotalScore-hint.NewScore)
}

func TestQuotaDeniedByOrigin(t *testing.T) {
	r, _ := newRouter(t, 2)

	for i := 0; i < 2; i++ {
		w := doJSON(r, http.MethodPost, "/api/v1/sessions", `{"user_id":"u1","task_id":"t1"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(r, http.MethodPost, "/api/v1/sessions", `{"user_id":"u1","task_id":"t1"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body struct {
		Scope string `json:"scope"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ip", body.Scope)
}

func TestStreamUnknownSession(t *testing.T) {
	r, _ := newRouter(t, 1000)

	w := doJSON(r, http.MethodGet, "/api/v1/sessions/never-created/stream", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamDeliversTicks(t *testing.T) {
	r, sessions := newRouter(t, 1000)

	s, err := sessions.Create(context.Background(), "u1", "t1", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+s.ID+"/stream", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "event:timer-tick")
	require.Contains(t, w.Body.String(), s.ID)
}
