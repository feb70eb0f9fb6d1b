package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMaxKeys = 10000

type window struct {
	start time.Time
	count int
}

// memoryLimiter keeps one window per key in an expirable LRU. Entries expire after one
// window so idle clients do not hold memory; the LRU bound caps the number of tracked keys.
type memoryLimiter struct {
	mu      sync.Mutex
	windows *lru.LRU[string, *window]
	limit   int
	window  time.Duration
	now     func() time.Time
}

func newMemoryLimiter(cfg Config) *memoryLimiter {
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	return &memoryLimiter{
		windows: lru.NewLRU[string, *window](maxKeys, nil, cfg.Window),
		limit:   cfg.Limit,
		window:  cfg.Window,
		now:     time.Now,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows.Get(key)
	if !ok || now.Sub(w.start) >= m.window {
		w = &window{start: now}
		m.windows.Add(key, w)
	}
	w.count++

	if w.count > m.limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: w.start.Add(m.window).Sub(now),
		}, nil
	}
	return Decision{Allowed: true, Remaining: m.limit - w.count}, nil
}

func (m *memoryLimiter) Close() error {
	return nil
}
