// Package ratelimit counts requests per key over a window. RedisLimiter is
// shared across replicas; LocalLimiter keeps state in process.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

// Limiter admits at most limit calls per key per window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
