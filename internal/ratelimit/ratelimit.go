// Package ratelimit implements fixed-window request limiting per client key.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // time until the current window ends; only set when not allowed
}

// Limiter counts requests per key within a fixed window.
type Limiter interface {
	// Allow records one request for key and reports whether it fits in the current window.
	Allow(ctx context.Context, key string) (Decision, error)

	// Close releases any resources held by the limiter.
	Close() error
}

// Config holds the configuration needed to create a Limiter.
type Config struct {
	// Provider is "memory" or "redis".
	Provider string

	// Limit is the number of requests allowed per key and window.
	Limit int

	// Window is the length of a counting window.
	Window time.Duration

	// MaxKeys bounds the number of keys tracked by the memory provider.
	MaxKeys int

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// New creates a Limiter for the configured provider.
func New(cfg Config) (Limiter, error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("ratelimit: limit must be positive, got %d", cfg.Limit)
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}

	switch cfg.Provider {
	case "", "memory":
		return newMemoryLimiter(cfg), nil
	case "redis":
		l, err := newRedisLimiter(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("ratelimit: unknown provider %q (registered: [memory redis])", cfg.Provider)
	}
}
