package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "showtracker:ratelimit:"

// redisLimiter shares windows between every process pointed at the same Redis/Valkey.
type redisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// hitWindow atomically counts a request and makes sure the window key expires.
//
// KEYS[1] = window counter
// ARGV[1] = window length in milliseconds
//
// Returns {count, remaining window ms}.
var hitWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

func newRedisLimiter(cfg Config) (*redisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &redisLimiter{
		client: client,
		prefix: prefix,
		limit:  cfg.Limit,
		window: cfg.Window,
	}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	windowMs := strconv.FormatInt(r.window.Milliseconds(), 10)
	res, err := hitWindow.Run(ctx, r.client, []string{r.prefix + key}, windowMs).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("redis rate limit: unexpected reply %v", res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if count > r.limit {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: r.limit - count}, nil
}

func (r *redisLimiter) Close() error {
	return r.client.Close()
}
