package bragapi

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MaxRequests: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		if !rl.Allow("cases") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("cases") {
		t.Error("request beyond MaxRequests should be rejected")
	}
}

func TestRateLimiterRejectionDoesNotConsume(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MaxRequests: 2, Window: time.Minute})

	rl.Allow("cases")
	rl.Allow("cases")
	rl.Allow("cases") // rejected
	rl.Allow("cases") // rejected

	if got := rl.Remaining("cases"); got != 0 {
		t.Errorf("Remaining() = %d, want 0 (rejections must not go negative)", got)
	}
}

func TestRateLimiterNewWindowAccepts(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MaxRequests: 1, Window: 20 * time.Millisecond})

	if !rl.Allow("cases") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("cases") {
		t.Fatal("second request in the same window should be rejected")
	}

	time.Sleep(30 * time.Millisecond)
	if !rl.Allow("cases") {
		t.Error("request in a fresh window should be allowed")
	}
}

func TestRateLimiterEndpointsAreIsolated(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MaxRequests: 1, Window: time.Minute})

	if !rl.Allow("cases") {
		t.Fatal("cases should be allowed")
	}
	if rl.Allow("cases") {
		t.Fatal("cases should now be exhausted")
	}
	if !rl.Allow("sitemap") {
		t.Error("sitemap should have its own window")
	}
}

func TestRateLimiterRemaining(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MaxRequests: 5, Window: time.Minute})

	if got := rl.Remaining("cases"); got != 5 {
		t.Errorf("Remaining() = %d, want 5 before any request", got)
	}

	rl.Allow("cases")
	rl.Allow("cases")
	if got := rl.Remaining("cases"); got != 3 {
		t.Errorf("Remaining() = %d, want 3", got)
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})

	if rl.config.MaxRequests != 30 {
		t.Errorf("MaxRequests = %d, want 30", rl.config.MaxRequests)
	}
	if rl.config.Window != time.Minute {
		t.Errorf("Window = %v, want 1m", rl.config.Window)
	}
}

func TestRateLimiterConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MaxRequests: 100, Window: time.Minute})

	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		go func() {
			allowed <- rl.Allow("cases")
		}()
	}

	granted := 0
	for i := 0; i < 200; i++ {
		if <-allowed {
			granted++
		}
	}
	if granted != 100 {
		t.Errorf("granted %d requests, want exactly 100", granted)
	}
}
