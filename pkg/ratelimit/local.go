package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LocalLimiter is a token bucket per key: burst=limit, refilled evenly over
// the window.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	now      func() time.Time
	idleTTL  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewLocalLimiter(cleanupInterval time.Duration) *LocalLimiter {
	l := &LocalLimiter{
		limiters: make(map[string]*keyLimiter),
		now:      time.Now,
		idleTTL:  cleanupInterval * 2,
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop(cleanupInterval)
	return l
}

func (l *LocalLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *LocalLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *LocalLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		l.limiters[key] = kl
	}
	kl.lastAccess = now

	d := Decision{Limit: limit}
	if kl.limiter.AllowN(now, 1) {
		d.Allowed = true
	} else {
		r := kl.limiter.ReserveN(now, 1)
		d.RetryAfter = r.DelayFrom(now)
		r.CancelAt(now)
	}

	tokens := kl.limiter.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}
	d.Remaining = int(tokens)
	d.ResetAfter = time.Duration(float64(limit)-tokens) * (window / time.Duration(limit))
	return d, nil
}

// Len reports how many keys are tracked.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LocalLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *LocalLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, kl := range l.limiters {
		if now.Sub(kl.lastAccess) > l.idleTTL {
			delete(l.limiters, key)
		}
	}
}
