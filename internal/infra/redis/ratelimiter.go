package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Ryan-Karimov/notification-service/internal/ratelimit"
)

const (
	defaultLimit  = 100
	defaultWindow = time.Minute
)

var countScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is a distributed fixed-window rate limiter keyed per API key.
type RedisRateLimiter struct {
	client *goredis.Client
	now    func() time.Time
	script *goredis.Script
}

func NewRedisRateLimiter(client *goredis.Client) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, time.Now)
}

func newRedisRateLimiter(client *goredis.Client, nowFn func() time.Time) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &RedisRateLimiter{
		client: client,
		now:    nowFn,
		script: countScript,
	}, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, keyID string, limit int, window time.Duration) (ratelimit.Result, error) {
	if r == nil || r.client == nil || r.script == nil {
		return ratelimit.Result{}, fmt.Errorf("rate limiter is not initialized")
	}

	trimmedKey := strings.TrimSpace(keyID)
	if trimmedKey == "" {
		return ratelimit.Result{}, fmt.Errorf("key id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = defaultWindow
	}

	if ctx == nil {
		ctx = context.Background()
	}

	now := r.now()
	bucket := fmt.Sprintf("rate:%s:%d", trimmedKey, now.UnixMilli()/window.Milliseconds())
	values, err := r.script.Run(ctx, r.client, []string{bucket}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimit.Result{}, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}
	if len(values) != 2 {
		return ratelimit.Result{}, fmt.Errorf("unexpected rate limit script reply: %v", values)
	}

	count := int(values[0])
	ttl := time.Duration(values[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}

	result := ratelimit.Result{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   now.Add(ttl),
	}
	if !result.Allowed {
		result.RetryAfter = ttl
	}

	return result, nil
}
