package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process KV used by tests in place of Redis. It honours the
// same expiry and atomicity semantics; Now is swappable so window resets can
// be simulated without sleeping.
type Memory struct {
	mu   sync.Mutex
	data map[string]entry

	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]entry),
		Now:  time.Now,
	}
}

// lookup drops the entry if its expiry has passed. Callers hold mu.
func (m *Memory) lookup(key string) (entry, bool) {
	e, ok := m.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !m.Now().Before(e.expiresAt) {
		delete(m.data, key)
		return entry{}, false
	}
	return e, true
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = entry{
		value:     value,
		expiresAt: m.Now().Add(ttl),
	}
	return nil
}

func (m *Memory) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *Memory) FixedWindowIncr(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		m.data[key] = entry{
			value:     "1",
			expiresAt: m.Now().Add(window),
		}
		return true, nil
	}

	current, err := strconv.Atoi(e.value)
	if err != nil {
		return false, err
	}

	if current >= limit {
		return false, nil
	}

	e.value = strconv.Itoa(current + 1)
	m.data[key] = e
	return true, nil
}

func (m *Memory) CappedIncr(ctx context.Context, key string, max int, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int
	if e, ok := m.lookup(key); ok {
		n, err := strconv.Atoi(e.value)
		if err != nil {
			return 0, err
		}
		current = n
	}

	if current >= max {
		return int64(current + 1), nil
	}

	m.data[key] = entry{
		value:     strconv.Itoa(current + 1),
		expiresAt: m.Now().Add(ttl),
	}
	return int64(current + 1), nil
}

func (m *Memory) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int
	if e, ok := m.lookup(key); ok {
		n, err := strconv.Atoi(e.value)
		if err != nil {
			return 0, err
		}
		current = n
	}

	m.data[key] = entry{
		value:     strconv.Itoa(current + 1),
		expiresAt: m.Now().Add(ttl),
	}
	return int64(current + 1), nil
}
