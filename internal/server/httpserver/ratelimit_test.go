package httpserver

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newLoginLimiter(6, 2)
	l.now = func() time.Time { return now }

	ok, _ := l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)

	ok, wait := l.allow("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, 10*time.Second, wait, float64(time.Millisecond))

	ok, _ = l.allow("10.0.0.2")
	assert.True(t, ok, "addresses are limited independently")

	now = now.Add(10 * time.Second)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok, "a token is refilled after 10s")
}

func TestLoginLimiter_PrunesIdleAddresses(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newLoginLimiter(6, 2)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
	assert.Equal(t, 2, l.size())

	now = now.Add(limiterIdleTTL)
	l.allow("10.0.0.3")
	assert.Equal(t, 1, l.size())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:4242"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "203.0.113.9", clientIP(r))

	r.RemoteAddr = "weird"
	assert.Equal(t, "weird", clientIP(r))
}
