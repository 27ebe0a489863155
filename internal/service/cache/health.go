package cache

import (
	"context"
	"time"

	"NavGuard/internal/domain/models"
	drepo "NavGuard/internal/domain/repository"
)

const healthKey = "predictor:health"

// CachedHealth remembers a successful health probe for ttl so that polling
// dashboards do not probe the model service on every refresh. Failures are
// never cached.
type CachedHealth struct {
	next  drepo.HealthChecker
	cache *TTLCache
	ttl   time.Duration
}

var _ drepo.HealthChecker = (*CachedHealth)(nil)

func NewCachedHealth(next drepo.HealthChecker, c *TTLCache, ttl time.Duration) *CachedHealth {
	return &CachedHealth{next: next, cache: c, ttl: ttl}
}

func (h *CachedHealth) Health(ctx context.Context) (models.ServiceHealth, error) {
	if h.ttl > 0 {
		if v, ok := h.cache.Get(healthKey); ok {
			return v.(models.ServiceHealth), nil
		}
	}
	res, err := h.next.Health(ctx)
	if err != nil {
		return models.ServiceHealth{}, err
	}
	if h.ttl > 0 {
		h.cache.Set(healthKey, res, h.ttl)
	}
	return res, nil
}
