package timer

import "time"

const (
	EventTick    = "timer-tick"
	EventExpired = "time-expired"
)

type Tick struct {
	SessionID        string    `json:"session_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	ElapsedSeconds   int       `json:"elapsed_seconds"`
	TotalSeconds     int       `json:"total_seconds"`
	Timestamp        time.Time `json:"timestamp"`
}

type Expired struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Event is one countdown update pushed to a subscriber: either a tick or the
// single terminal expiry notice. Exactly one of the two fields is set.
type Event struct {
	Tick    *Tick
	Expired *Expired
}

// Name is the SSE event name for this event.
func (e Event) Name() string {
	if e.Expired != nil {
		return EventExpired
	}
	return EventTick
}

// Payload is the JSON-serializable body for this event.
func (e Event) Payload() any {
	if e.Expired != nil {
		return e.Expired
	}
	return e.Tick
}
