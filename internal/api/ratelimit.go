package api

import (
	"context"
	"sync"
	"time"

	"callmaker/pkg/cache"
)

// Limiter counts requests per key within a fixed window.
type Limiter interface {
	// Incr records one request for key and returns the count in the current
	// window. The first increment of a window starts its expiry clock.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisLimiter keeps counters in a shared Redis so limits hold across
// instances. INCR is atomic; EXPIRE on the first hit bounds the window.
type RedisLimiter struct {
	cache *cache.Redis
}

func NewRedisLimiter(c *cache.Redis) *RedisLimiter {
	return &RedisLimiter{cache: c}
}

func (l *RedisLimiter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := l.cache.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := l.cache.Expire(ctx, key, window); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// MemoryLimiter keeps counters in process memory. Counts are only enforced
// within a single instance; deployments running more than one replica should
// use RedisLimiter instead.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	resetAt time.Time
	count   int64
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*memoryWindow)}
}

func (l *MemoryLimiter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	wnd, ok := l.windows[key]
	if !ok || now.After(wnd.resetAt) {
		l.evictExpiredLocked(now)
		wnd = &memoryWindow{resetAt: now.Add(window)}
		l.windows[key] = wnd
	}
	wnd.count++
	return wnd.count, nil
}

// evictExpiredLocked drops windows whose reset time has passed. Called only
// when a new window is created, so steady-state traffic pays nothing.
func (l *MemoryLimiter) evictExpiredLocked(now time.Time) {
	for key, wnd := range l.windows {
		if now.After(wnd.resetAt) {
			delete(l.windows, key)
		}
	}
}
