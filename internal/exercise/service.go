// Package exercise handles answer submissions and hint requests for an
// active session. Both mutate the session record in place; the record's
// deadline and TTL are never touched.
package exercise

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Druk83/TrainingGround-sub001/internal/logger"
	"github.com/Druk83/TrainingGround-sub001/internal/session"
	"github.com/Druk83/TrainingGround-sub001/internal/store"
	"github.com/Druk83/TrainingGround-sub001/internal/task"
)

const (
	correctScore   = 10
	hintCost       = 5
	comboBonus     = 5
	comboThreshold = 3

	// An untouched streak dies after an hour; a wrong answer resets it at
	// once.
	streakTTL = time.Hour

	// A resubmitted answer replays the stored outcome instead of scoring
	// again.
	answerCacheTTL = 24 * time.Hour
)

// ErrHintLimit means the session already consumed its hint budget.
var ErrHintLimit = errors.New("exercise: hint limit reached")

type SubmitAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

type SubmitAnswerResponse struct {
	Correct      bool   `json:"correct"`
	ScoreAwarded int    `json:"score_awarded"`
	ComboBonus   int    `json:"combo_bonus"`
	TotalScore   int    `json:"total_score"`
	Streak       int    `json:"current_streak"`
	Feedback     string `json:"feedback"`
}

type RequestHintResponse struct {
	Hint           string `json:"hint"`
	HintsUsed      int    `json:"hints_used"`
	HintsRemaining int    `json:"hints_remaining"`
	Cost           int    `json:"cost"`
	NewScore       int    `json:"new_score"`
}

type Service struct {
	sessions session.Store
	tasks    task.Repo
	kv       store.KV
	db       *sql.DB
	maxHints int
}

func NewService(sessions session.Store, tasks task.Repo, kv store.KV, db *sql.DB, maxHints int) *Service {
	return &Service{
		sessions: sessions,
		tasks:    tasks,
		kv:       kv,
		db:       db,
		maxHints: maxHints,
	}
}

// SubmitAnswer checks the answer against the task, applies the score, and
// records the attempt. A resubmission for the same session and task replays
// the cached outcome without scoring again. A session past its deadline is
// reported as gone; the attempt is still recorded with a timeout reason.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID string, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cacheKey := "idempotency:answer:" + sess.ID + ":" + sess.TaskID
	if cached, err := s.kv.Get(ctx, cacheKey); err == nil {
		var resp SubmitAnswerResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			logger.Info("replaying cached answer result", map[string]any{
				"trace_id":   logger.TraceID(ctx),
				"session_id": sessionID,
			})
			return &resp, nil
		}
	}

	now := time.Now().UTC()
	if sess.Status != session.StatusActive || sess.Remaining(now) <= 0 {
		s.saveAttempt(ctx, sess, req.Answer, false, 0, "timeout")
		return nil, store.ErrNotFound
	}

	t, err := s.tasks.GetByID(ctx, sess.TaskID)
	if err != nil {
		return nil, err
	}

	correct := strings.TrimSpace(req.Answer) == strings.TrimSpace(t.CorrectAnswer)

	awarded, bonus, streak := s.applyStreak(ctx, sess.UserID, correct)

	sess.Score += awarded + bonus
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	reason := ""
	if !correct {
		reason = "wrong_answer"
	}
	s.saveAttempt(ctx, sess, req.Answer, correct, awarded+bonus, reason)

	logger.Info("answer processed", map[string]any{
		"trace_id":   logger.TraceID(ctx),
		"session_id": sessionID,
		"user_id":    sess.UserID,
		"correct":    correct,
		"score":      awarded + bonus,
		"streak":     streak,
	})

	feedback := "Incorrect answer"
	if correct {
		feedback = "Correct!"
	}

	resp := &SubmitAnswerResponse{
		Correct:      correct,
		ScoreAwarded: awarded,
		ComboBonus:   bonus,
		TotalScore:   sess.Score,
		Streak:       streak,
		Feedback:     feedback,
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := s.kv.SetEx(ctx, cacheKey, string(data), answerCacheTTL); err != nil {
			logger.Warn("failed to cache answer result", map[string]any{
				"trace_id":   logger.TraceID(ctx),
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}

	return resp, nil
}

// applyStreak advances or resets the user's correct-answer streak and
// returns the base score, the combo bonus, and the streak length. The streak
// spans sessions; losing it to a store hiccup only costs a possible bonus,
// so streak failures never fail the submission.
func (s *Service) applyStreak(ctx context.Context, userID string, correct bool) (awarded, bonus, streak int) {
	key := "score:series:" + userID

	if !correct {
		if err := s.kv.Del(ctx, key); err != nil {
			logger.Warn("failed to reset answer streak", map[string]any{
				"trace_id": logger.TraceID(ctx),
				"user_id":  userID,
				"error":    err.Error(),
			})
		}
		return 0, 0, 0
	}

	n, err := s.kv.Incr(ctx, key, streakTTL)
	if err != nil {
		logger.Warn("failed to advance answer streak", map[string]any{
			"trace_id": logger.TraceID(ctx),
			"user_id":  userID,
			"error":    err.Error(),
		})
		return correctScore, 0, 0
	}

	if n >= comboThreshold {
		return correctScore, comboBonus, int(n)
	}
	return correctScore, 0, int(n)
}

// RequestHint consumes one hint from the session's budget and deducts its
// cost. The budget check and increment are a single atomic step in the
// shared store, so two racing hint requests cannot both take the last slot.
func (s *Service) RequestHint(ctx context.Context, sessionID string) (*RequestHintResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if sess.Status != session.StatusActive || sess.Remaining(now) <= 0 {
		return nil, store.ErrNotFound
	}

	used, err := s.kv.CappedIncr(ctx, "hints_used:"+sessionID, s.maxHints, sess.Remaining(now))
	if err != nil {
		return nil, fmt.Errorf("exercise: hint counter: %w", err)
	}
	if used > int64(s.maxHints) {
		return nil, ErrHintLimit
	}

	hint := "No hint available for this task"
	if t, err := s.tasks.GetByID(ctx, sess.TaskID); err == nil && int(used) <= len(t.Hints) {
		hint = t.Hints[used-1]
	}

	sess.HintsUsed = int(used)
	sess.Score -= hintCost
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	s.saveHint(ctx, sess, hint)

	logger.Info("hint provided", map[string]any{
		"trace_id":   logger.TraceID(ctx),
		"session_id": sessionID,
		"user_id":    sess.UserID,
		"hints_used": used,
		"new_score":  sess.Score,
	})

	return &RequestHintResponse{
		Hint:           hint,
		HintsUsed:      int(used),
		HintsRemaining: s.maxHints - int(used),
		Cost:           hintCost,
		NewScore:       sess.Score,
	}, nil
}

// saveAttempt persists the attempt record. Best-effort: losing an audit row
// must not fail the submission the client already observed.
func (s *Service) saveAttempt(ctx context.Context, sess *session.Session, answer string, correct bool, score int, reason string) {
	if s.db == nil {
		return
	}

	const q = `
		INSERT INTO attempts (session_id, user_id, task_id, answer, correct, score, reason)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`

	if _, err := s.db.ExecContext(ctx, q, sess.ID, sess.UserID, sess.TaskID, answer, correct, score, reason); err != nil {
		logger.Error("failed to save attempt", map[string]any{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}
}

func (s *Service) saveHint(ctx context.Context, sess *session.Session, hint string) {
	if s.db == nil {
		return
	}

	const q = `
		INSERT INTO hints (session_id, user_id, task_id, hint_text, cost)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.ExecContext(ctx, q, sess.ID, sess.UserID, sess.TaskID, hint, hintCost); err != nil {
		logger.Error("failed to save hint record", map[string]any{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}
}
