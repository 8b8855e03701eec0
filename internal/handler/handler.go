package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Druk83/TrainingGround-sub001/internal/exercise"
	"github.com/Druk83/TrainingGround-sub001/internal/logger"
	"github.com/Druk83/TrainingGround-sub001/internal/middleware"
	"github.com/Druk83/TrainingGround-sub001/internal/session"
	"github.com/Druk83/TrainingGround-sub001/internal/store"
	"github.com/Druk83/TrainingGround-sub001/internal/task"
	"github.com/Druk83/TrainingGround-sub001/internal/timer"
)

type Handler struct {
	sessions    session.Store
	tasks       task.Repo
	exercises   *exercise.Service
	broadcaster *timer.Broadcaster
}

func NewHandler(
	sessions session.Store,
	tasks task.Repo,
	exercises *exercise.Service,
	broadcaster *timer.Broadcaster,
) *Handler {
	return &Handler{
		sessions:    sessions,
		tasks:       tasks,
		exercises:   exercises,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, admission gin.HandlerFunc) {
	api := r.Group("/api/v1")
	api.Use(admission)

	api.POST("/sessions", h.createSession)
	api.GET("/sessions/:id", h.getSession)
	api.POST("/sessions/:id/complete", h.completeSession)
	api.POST("/sessions/:id/answer", h.submitAnswer)
	api.POST("/sessions/:id/hint", h.requestHint)
	api.GET("/sessions/:id/stream", h.sessionStream)
}

type createSessionRequest struct {
	UserID  string  `json:"user_id" binding:"required"`
	TaskID  string  `json:"task_id" binding:"required"`
	GroupID *string `json:"group_id"`
}

type createSessionResponse struct {
	SessionID string    `json:"session_id"`
	Task      task.Info `json:"task"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	t, err := h.tasks.GetByID(c.Request.Context(), req.TaskID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.fail(c, err)
		return
	}

	s, err := h.sessions.Create(c.Request.Context(), req.UserID, req.TaskID, req.GroupID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, createSessionResponse{
		SessionID: s.ID,
		Task:      t.Info(),
		ExpiresAt: s.ExpiresAt,
	})
}

func (h *Handler) getSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

func (h *Handler) completeSession(c *gin.Context) {
	if err := h.sessions.Complete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) submitAnswer(c *gin.Context) {
	var req exercise.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	resp, err := h.exercises.SubmitAnswer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) requestHint(c *gin.Context) {
	resp, err := h.exercises.RequestHint(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, exercise.ErrHintLimit) {
			c.JSON(http.StatusForbidden, gin.H{"error": "hint limit reached"})
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// sessionStream pushes countdown events over SSE until the session expires,
// completes, or the client disconnects. Disconnect cancels the request
// context, which stops the broadcaster loop within one tick.
func (h *Handler) sessionStream(c *gin.Context) {
	sessionID := c.Param("id")

	events, err := h.broadcaster.Subscribe(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	logger.Info("countdown stream opened", map[string]any{
		"trace_id":   middleware.TraceID(c),
		"session_id": sessionID,
	})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// The broadcaster closes the channel on expiry, completion, or when
	// the client goes away (request context cancellation), so draining it
	// is the whole lifecycle.
	for ev := range events {
		c.SSEvent(ev.Name(), ev.Payload())
		c.Writer.Flush()
	}
}

// fail maps engine errors onto the HTTP surface: a gone session is an
// ordinary 404, an unreachable store is a 503.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, store.ErrUnavailable):
		logger.Error("storage unavailable", map[string]any{
			"trace_id": middleware.TraceID(c),
			"error":    err.Error(),
		})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		logger.Error("request failed", map[string]any{
			"trace_id": middleware.TraceID(c),
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
