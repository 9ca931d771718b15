package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterWindowSlides(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1, func() time.Time { return now })

	if !rl.allow("a") {
		t.Fatal("first request rejected")
	}
	if rl.allow("a") {
		t.Fatal("second request allowed")
	}
	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Fatal("request after window rejected")
	}

	now = now.Add(10 * time.Minute)
	rl.allow("b")
	if _, ok := rl.requests["a"]; ok {
		t.Error("stale key not swept")
	}
}
