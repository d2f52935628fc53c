package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es el fixed window in-process (un solo nodo / tests).
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu    sync.Mutex
	store *gocache.Cache
	now   func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:    int64(max),
		Window: window,
		store:  gocache.New(window, 2*window),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.Window)
	k := fmt.Sprintf("%s:%d", sanitizeKey(key), winStart.Unix())
	ttl := winStart.Add(l.Window).Sub(now)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Add(k, int64(1), ttl); err == nil {
		return buildResult(1, l.Max, ttl, l.Window), nil
	}
	hits, err := l.store.IncrementInt64(k, 1)
	if err != nil {
		// expiró entre Add e Increment
		l.store.Set(k, int64(1), ttl)
		hits = 1
	}
	return buildResult(hits, l.Max, ttl, l.Window), nil
}
