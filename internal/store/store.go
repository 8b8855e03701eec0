package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the key is absent: expired, deleted, or never written.
	ErrNotFound = errors.New("store: key not found")

	// ErrUnavailable means the backend could not be reached or timed out.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// KV is the narrow slice of the shared ephemeral store the engine relies on.
// It is deliberately small: a TTL'd key plus two atomic counters are the only
// cross-process coordination primitives this service needs. The Redis
// implementation is the production backend; Memory substitutes in tests.
type KV interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// SetEx writes value at key with the given expiry.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error

	// FixedWindowIncr atomically admits or rejects one request against a
	// fixed-window counter: absent key starts a window at 1 and admits;
	// count < limit increments and admits; count >= limit rejects without
	// incrementing. Read, check and increment are a single indivisible step.
	FixedWindowIncr(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// CappedIncr atomically increments a counter unless it already reached
	// max, and returns the post-increment count. A returned count > max
	// means the cap was hit and the counter was left unchanged.
	CappedIncr(ctx context.Context, key string, max int, ttl time.Duration) (int64, error)

	// Incr increments an unbounded counter and refreshes its expiry, so
	// the counter dies after ttl of inactivity. Returns the new count.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
