package ratelimit

import (
	"sync"
	"time"

	xhttp "NavGuard/pkg/http"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

// maxKeys triggers pruning of idle buckets on insert.
const maxKeys = 4096

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket.
type Limiter struct {
	capacity   float64
	refillRate float64 // tokens per second
	clock      clockwork.Clock

	mu sync.Mutex
	m  map[string]*bucket
}

// New creates a limiter allowing bursts of capacity, refilled at refillPerSec.
func New(capacity, refillPerSec float64, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{
		capacity:   capacity,
		refillRate: refillPerSec,
		clock:      clock,
		m:          make(map[string]*bucket),
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		if len(l.m) >= maxKeys {
			l.pruneLocked(now, time.Minute)
		}
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	// refill
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Prune forgets keys whose bucket has been full for at least idle.
func (l *Limiter) Prune(idle time.Duration) {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now, idle)
}

func (l *Limiter) pruneLocked(now time.Time, idle time.Duration) {
	for k, b := range l.m {
		if now.Sub(b.last) >= idle && b.tokens+now.Sub(b.last).Seconds()*l.refillRate >= l.capacity {
			delete(l.m, k)
		}
	}
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many submissions, slow down"))
			}
			return next(c)
		}
	}
}
