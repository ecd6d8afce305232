package bragapi

import (
	"sync"
	"time"
)

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	// MaxRequests is the number of requests permitted per window.
	MaxRequests int
	// Window is the fixed window duration.
	Window time.Duration
}

type rateWindow struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// RateLimiter bounds requests per endpoint with a fixed window counter.
// The first request of a window initializes count=1; requests after window
// expiry start a new window. A request that would exceed MaxRequests is
// rejected without incrementing. Fixed windows are approximate: a burst
// spanning a window boundary can briefly reach 2x the nominal rate, the
// accepted cost of O(1) state per endpoint.
type RateLimiter struct {
	config RateLimiterConfig

	mu      sync.RWMutex
	windows map[string]*rateWindow
}

// NewRateLimiter creates a per-endpoint fixed-window rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxRequests == 0 {
		config.MaxRequests = 30
	}
	if config.Window == 0 {
		config.Window = time.Minute
	}
	return &RateLimiter{
		config:  config,
		windows: make(map[string]*rateWindow),
	}
}

func (rl *RateLimiter) window(endpoint string) *rateWindow {
	rl.mu.RLock()
	w, ok := rl.windows[endpoint]
	rl.mu.RUnlock()
	if ok {
		return w
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if w, ok = rl.windows[endpoint]; ok {
		return w
	}
	w = &rateWindow{}
	rl.windows[endpoint] = w
	return w
}

// Allow atomically checks and increments the endpoint's window counter.
func (rl *RateLimiter) Allow(endpoint string) bool {
	w := rl.window(endpoint)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if w.windowStart.IsZero() || now.Sub(w.windowStart) >= rl.config.Window {
		w.windowStart = now
		w.count = 1
		return true
	}
	if w.count >= rl.config.MaxRequests {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests are left in the endpoint's current
// window.
func (rl *RateLimiter) Remaining(endpoint string) int {
	w := rl.window(endpoint)
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.windowStart.IsZero() || time.Since(w.windowStart) >= rl.config.Window {
		return rl.config.MaxRequests
	}
	remaining := rl.config.MaxRequests - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}
