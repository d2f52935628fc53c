package rate

import (
	"context"
	"sync"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Rule es el límite de un grupo de endpoints.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Pool crea limiters por regla, sobre redis si hay cliente o en memoria si no.
type Pool struct {
	client *rdb.Client
	prefix string

	mu       sync.Mutex
	limiters map[Rule]Limiter
}

func NewPool(client *rdb.Client, prefix string) *Pool {
	return &Pool{client: client, prefix: prefix, limiters: make(map[Rule]Limiter)}
}

// For devuelve el limiter de la regla, creándolo una sola vez.
func (p *Pool) For(r Rule) Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.limiters[r]; ok {
		return l
	}
	var l Limiter
	if p.client != nil {
		l = NewRedisLimiter(p.client, p.prefix, r.Limit, r.Window)
	} else {
		l = NewMemoryLimiter(r.Limit, r.Window)
	}
	p.limiters[r] = l
	return l
}

// AllowWithLimits aplica la regla (limit, window) a key.
func (p *Pool) AllowWithLimits(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	return p.For(Rule{Limit: limit, Window: window}).Allow(ctx, key)
}
