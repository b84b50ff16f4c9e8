package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one rate-limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter bounds request throughput per API key using the limit and
// window configured on the key itself.
type RateLimiter interface {
	Allow(ctx context.Context, keyID string, limit int, window time.Duration) (Result, error)
}
