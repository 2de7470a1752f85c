package ratelimit

import (
	"context"
	"sync"
	"time"
)

// defaultMaxKeys bounds the tracked key set when MemoryConfig.MaxKeys
// is not positive.
const defaultMaxKeys = 10000

// MemoryConfig configures a MemoryLimiter.
type MemoryConfig struct {
	// MaxKeys caps the number of tracked keys. Expired windows are
	// collected when the cap is reached. Defaults to 10000.
	MaxKeys int

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// MemoryLimiter is an in-process fixed-window Limiter.
type MemoryLimiter struct {
	cfg MemoryConfig

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count int
	endAt time.Time
}

// NewMemoryLimiter creates an empty in-process limiter.
func NewMemoryLimiter(cfg MemoryConfig) *MemoryLimiter {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = defaultMaxKeys
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &MemoryLimiter{
		cfg:     cfg,
		windows: make(map[string]*window),
	}
}

// Allow implements Limiter.
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, windowLen time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	now := m.cfg.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if ok && now.After(w.endAt) {
		delete(m.windows, key)
		ok = false
	}

	if !ok {
		if len(m.windows) >= m.cfg.MaxKeys {
			m.gc(now)
		}

		if len(m.windows) >= m.cfg.MaxKeys {
			return Decision{}, ErrCapacityExceeded
		}

		w = &window{endAt: now.Add(windowLen)}
		m.windows[key] = w
	}

	if w.count < limit {
		w.count++

		return Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - w.count,
			ResetAt:   w.endAt,
		}, nil
	}

	return Decision{
		Allowed: false,
		Limit:   limit,
		ResetAt: w.endAt,
	}, nil
}

// gc drops expired windows. Called only when the key cap is hit, so the
// O(n) sweep stays off the hot path.
func (m *MemoryLimiter) gc(now time.Time) {
	for key, w := range m.windows {
		if now.After(w.endAt) {
			delete(m.windows, key)
		}
	}
}
