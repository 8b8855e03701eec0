package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Druk83/TrainingGround-sub001/internal/logger"
	"github.com/Druk83/TrainingGround-sub001/internal/obs"
	"github.com/Druk83/TrainingGround-sub001/internal/store"
)

type RedisStore struct {
	kv       store.KV
	prefix   string
	duration time.Duration
	metrics  *obs.Metrics // optional
}

// NewRedisStore creates a session store over the shared KV. duration is the
// single source of truth for both the logical deadline and the record TTL;
// deriving both from one value is what keeps an `active` session from
// outliving its own record. metrics may be nil.
func NewRedisStore(kv store.KV, duration time.Duration, metrics *obs.Metrics) *RedisStore {
	return &RedisStore{
		kv:       kv,
		prefix:   "session:",
		duration: duration,
		metrics:  metrics,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) Create(ctx context.Context, userID, taskID string, groupID *string) (*Session, error) {
	if userID == "" || taskID == "" {
		return nil, fmt.Errorf("session: missing user_id or task_id")
	}

	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TaskID:    taskID,
		GroupID:   groupID,
		StartedAt: now,
		ExpiresAt: now.Add(r.duration),
		Status:    StatusActive,
		HintsUsed: 0,
		Score:     0,
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("session: failed to marshal: %w", err)
	}

	if err := r.kv.SetEx(ctx, r.key(s.ID), string(data), r.duration); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}

	if r.metrics != nil {
		r.metrics.SessionsTotal.WithLabelValues("created").Inc()
		r.metrics.SessionsActive.Inc()
	}

	logger.Info("session created", map[string]any{
		"trace_id":   logger.TraceID(ctx),
		"session_id": s.ID,
		"user_id":    userID,
		"task_id":    taskID,
		"expires_at": s.ExpiresAt,
	})

	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	val, err := r.kv.Get(ctx, r.key(sessionID))
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		// A record the engine cannot parse is a record it cannot trust.
		// Treat it as over rather than half-repairing it.
		logger.Error("session record corrupt, treating as gone", map[string]any{
			"trace_id":   logger.TraceID(ctx),
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil, store.ErrNotFound
	}

	return &s, nil
}

// Update rewrites the record in place, keeping the original deadline and the
// remaining TTL. A session already past its deadline is deleted, not renewed.
func (r *RedisStore) Update(ctx context.Context, s *Session) error {
	if s.ID == "" {
		return fmt.Errorf("session: missing id")
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		if err := r.kv.Del(ctx, r.key(s.ID)); err != nil {
			// The TTL will still retire the record; the delete just
			// would have retired it sooner.
			logger.Warn("failed to drop expired session record", map[string]any{
				"trace_id":   logger.TraceID(ctx),
				"session_id": s.ID,
				"error":      err.Error(),
			})
		}
		return store.ErrNotFound
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	if err := r.kv.SetEx(ctx, r.key(s.ID), string(data), ttl); err != nil {
		return fmt.Errorf("session: update: %w", err)
	}
	return nil
}

func (r *RedisStore) Complete(ctx context.Context, sessionID string) error {
	s, err := r.Get(ctx, sessionID)
	if err != nil {
		// Already gone: completed elsewhere, expired, or never existed.
		return err
	}

	if err := r.kv.Del(ctx, r.key(sessionID)); err != nil {
		return fmt.Errorf("session: complete: %w", err)
	}

	if r.metrics != nil {
		r.metrics.SessionsTotal.WithLabelValues("completed").Inc()
		r.metrics.SessionsActive.Dec()
	}

	logger.Info("session completed", map[string]any{
		"trace_id":   logger.TraceID(ctx),
		"session_id": sessionID,
		"user_id":    s.UserID,
		"score":      s.Score,
	})

	return nil
}
