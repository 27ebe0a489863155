package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestAllowBurstThenRefill(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(2, 1, clock)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	clock.Advance(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestPruneDropsIdleBuckets(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(1, 1, clock)
	l.Allow("a")

	clock.Advance(time.Minute)
	l.Prune(time.Minute)
	assert.Empty(t, l.m)
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	e := echo.New()
	l := New(1, 0.001, clockwork.NewFakeClock())
	e.POST("/api/analysis", func(c echo.Context) error {
		return c.NoContent(http.StatusAccepted)
	}, Middleware(l))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)
		req.RemoteAddr = "192.0.2.7:5000"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusAccepted, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_RATE_LIMITED")
}
