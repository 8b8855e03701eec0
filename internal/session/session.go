package session

import (
	"context"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusAbandoned Status = "abandoned"
)

// Session is one in-progress timed attempt. The record lives in the shared
// store under `session:<id>` for exactly the configured duration; ExpiresAt
// is fixed at creation and never extended.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TaskID    string    `json:"task_id"`
	GroupID   *string   `json:"group_id,omitempty"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    Status    `json:"status"`
	HintsUsed int       `json:"hints_used"`
	Score     int       `json:"score"`
}

// Remaining is the wall-clock time left before the deadline, floored at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// Store is the sole authority over session records in the shared store.
//
// Get and Complete report store.ErrNotFound once the record is gone, whether
// it expired, was completed, or never existed; callers treat all three as
// "session over", not as transient failures.
type Store interface {
	Create(ctx context.Context, userID, taskID string, groupID *string) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Complete(ctx context.Context, sessionID string) error
}
