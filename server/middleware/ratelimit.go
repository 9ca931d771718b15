package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/auth"
	"github.com/kbukum/voicenotes/errors"
)

// RateLimit allows perMinute requests per caller in a sliding one-minute
// window. Callers are keyed by token subject when authenticated, otherwise
// by client IP. Zero or negative perMinute disables the limit.
func RateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	rl := newRateLimiter(perMinute, time.Now)
	return func(c *gin.Context) {
		if !rl.allow(callerKey(c)) {
			c.Header("Retry-After", "60")
			abort(c, errors.RateLimited())
			return
		}
		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	if claims, ok := auth.ClaimsFrom(c.Request.Context()); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return "ip:" + c.ClientIP()
}

type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	now       func() time.Time
	requests  map[string][]time.Time
	lastSweep time.Time
}

func newRateLimiter(limit int, now func() time.Time) *rateLimiter {
	return &rateLimiter{limit: limit, now: now, requests: make(map[string][]time.Time), lastSweep: now()}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-time.Minute)
	if now.Sub(rl.lastSweep) > 5*time.Minute {
		for k, times := range rl.requests {
			if kept := after(times, cutoff); len(kept) == 0 {
				delete(rl.requests, k)
			} else {
				rl.requests[k] = kept
			}
		}
		rl.lastSweep = now
	}

	valid := after(rl.requests[key], cutoff)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

func after(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
