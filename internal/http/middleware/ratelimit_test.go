package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"github.com/vanelang/review-flow/internal/testkit"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestIPRateLimiter_RefillsPerIP(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewIPRateLimiter(60)
	l.now = clock.now

	for i := 0; i < 60; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	clock.t = clock.t.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_DropsIdleVisitors(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewIPRateLimiter(10)
	l.now = clock.now

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	assert.Equal(t, 2, l.Len())

	clock.t = clock.t.Add(11 * time.Minute)
	l.Allow("10.0.0.3")
	assert.Equal(t, 1, l.Len())
}

func TestIPRateLimiter_Disabled(t *testing.T) {
	l := NewIPRateLimiter(0)
	for i := 0; i < 1000; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d limited", i)
		}
	}
	assert.Zero(t, l.Len())
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1)
	h := l.Middleware(func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusCreated) })

	req := testkit.Request{Method: "POST", Path: "/", RemoteIP: "192.0.2.9"}
	assert.Equal(t, fasthttp.StatusCreated, testkit.Do(t, h, req).Status)

	resp := testkit.Do(t, h, req)
	assert.Equal(t, fasthttp.StatusTooManyRequests, resp.Status)
	assert.Equal(t, "RATE_LIMITED", resp.Envelope(t).Error.Code)

	req.Header = map[string]string{"X-Forwarded-For": "198.51.100.1"}
	assert.Equal(t, fasthttp.StatusTooManyRequests, testkit.Do(t, h, req).Status, "forwarded header alone does not open a new bucket")

	req.RemoteIP = "192.0.2.10"
	assert.Equal(t, fasthttp.StatusCreated, testkit.Do(t, h, req).Status, "each peer has its own bucket")
}
