package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry struct {
	v   any
	exp time.Time
}

// TTLCache is an in-process map whose entries expire after their TTL.
type TTLCache struct {
	clock clockwork.Clock

	mu sync.RWMutex
	m  map[string]entry
}

func NewTTLCache(clock clockwork.Clock) *TTLCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache{clock: clock, m: make(map[string]entry)}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && !c.clock.Now().Before(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.v, true
}

func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = c.clock.Now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = entry{v: v, exp: exp}
	c.mu.Unlock()
}
