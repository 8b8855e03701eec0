package timer

import (
	"context"
	"math"
	"time"

	"github.com/Druk83/TrainingGround-sub001/internal/logger"
	"github.com/Druk83/TrainingGround-sub001/internal/obs"
	"github.com/Druk83/TrainingGround-sub001/internal/session"
	"github.com/Druk83/TrainingGround-sub001/internal/store"
)

// Broadcaster drives one countdown loop per subscription. It never mutates
// the session record: the store's own TTL retires the record, the broadcaster
// decides expiry from the wall clock against the deadline it captured at
// subscribe time. While the deadline has not passed it re-reads the record
// between ticks, so a completion performed by another process closes the
// stream within one interval.
type Broadcaster struct {
	sessions session.Store
	interval time.Duration
	metrics  *obs.Metrics // optional
}

func NewBroadcaster(sessions session.Store, interval time.Duration, metrics *obs.Metrics) *Broadcaster {
	return &Broadcaster{
		sessions: sessions,
		interval: interval,
		metrics:  metrics,
	}
}

// Subscribe starts a countdown for sessionID. It returns store.ErrNotFound
// if the session is already gone or no longer active; otherwise the returned
// channel delivers ticks and at most one terminal expiry event, then closes.
// Cancelling ctx stops the loop within one interval and closes the channel.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID string) (<-chan Event, error) {
	s, err := b.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != session.StatusActive {
		return nil, store.ErrNotFound
	}

	ch := make(chan Event)
	go b.run(ctx, sessionID, s, ch)
	return ch, nil
}

func (b *Broadcaster) run(ctx context.Context, sessionID string, s *session.Session, ch chan<- Event) {
	defer close(ch)

	if b.metrics != nil {
		b.metrics.StreamsActive.Inc()
		defer b.metrics.StreamsActive.Dec()
	}

	// The deadline captured here is authoritative for the whole stream:
	// it never extends, and the record's TTL retires it at the same
	// moment. Once it passes, a missing record means expiry, not
	// completion, so the terminal event is decided from the wall clock
	// and never from a store read.
	deadline := s.ExpiresAt
	startedAt := s.StartedAt

	// First update goes out immediately so the client is never a full
	// interval behind the countdown it just opened.
	if done := b.emit(ctx, sessionID, startedAt, deadline, ch); done {
		return
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// The ticker and the cancellation can be ready together; the
		// disconnect always wins.
		if ctx.Err() != nil {
			return
		}

		if !time.Now().UTC().Before(deadline) {
			b.expire(ctx, sessionID, ch)
			return
		}

		s, err := b.sessions.Get(ctx, sessionID)
		if err != nil || s.Status != session.StatusActive {
			// Gone before the deadline: completed elsewhere, or the
			// store is unreachable. Neither is an expiry from the
			// subscriber's point of view, so close silently.
			return
		}

		if done := b.emit(ctx, sessionID, startedAt, deadline, ch); done {
			return
		}
	}
}

// emit sends one tick, or the terminal expiry event once the deadline has
// passed. It reports whether the stream is finished.
func (b *Broadcaster) emit(ctx context.Context, sessionID string, startedAt, deadline time.Time, ch chan<- Event) bool {
	now := time.Now().UTC()
	remaining := deadline.Sub(now)

	if remaining <= 0 {
		b.expire(ctx, sessionID, ch)
		return true
	}

	ev := Event{Tick: &Tick{
		SessionID:        sessionID,
		RemainingSeconds: roundSeconds(remaining),
		ElapsedSeconds:   roundSeconds(now.Sub(startedAt)),
		TotalSeconds:     roundSeconds(deadline.Sub(startedAt)),
		Timestamp:        now,
	}}
	if b.send(ctx, ch, ev) && b.metrics != nil {
		b.metrics.TicksTotal.Inc()
	}
	return false
}

// expire delivers the single terminal event of a stream.
func (b *Broadcaster) expire(ctx context.Context, sessionID string, ch chan<- Event) {
	ev := Event{Expired: &Expired{
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Message:   "Time limit exceeded",
	}}
	if b.send(ctx, ch, ev) && b.metrics != nil {
		b.metrics.ExpiredTotal.Inc()
	}
	logger.Info("countdown expired", map[string]any{
		"trace_id":   logger.TraceID(ctx),
		"session_id": sessionID,
	})
}

func (b *Broadcaster) send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func roundSeconds(d time.Duration) int {
	return int(math.Round(d.Seconds()))
}
