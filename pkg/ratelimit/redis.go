package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed window: the first hit in a window sets the expiry.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return { count, ttl }
`)

type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
}

func NewRedisLimiter(rdb redis.Scripter, prefix string) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	fullKey := strings.Join([]string{l.prefix, key}, ":")

	vals, err := fixedWindowScript.Run(ctx, l.rdb, []string{fullKey}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected result %v", vals)
	}

	used := int(vals[0])
	reset := time.Duration(vals[1]) * time.Millisecond

	d := Decision{
		Allowed:    used <= limit,
		Limit:      limit,
		Remaining:  remaining(limit, used),
		ResetAfter: reset,
	}
	if !d.Allowed {
		d.RetryAfter = reset
	}
	return d, nil
}
