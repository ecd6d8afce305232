package bragapi

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// CallResult is the uniform value returned by every public operation.
// Either Err is nil and StatusCode/Payload/Headers describe a decoded 2xx
// response, or Err carries the typed failure. Immutable once produced;
// owned by the caller after return.
type CallResult struct {
	StatusCode int
	Payload    any
	Headers    http.Header
	Err        *APIError

	// raw is the undecoded response body, kept so cache writes and
	// coalesced GET waiters can re-decode without sharing Payload.
	raw []byte
}

// OK reports whether the call succeeded.
func (r CallResult) OK() bool {
	return r.Err == nil
}

// errResult wraps an APIError into a CallResult.
func errResult(err *APIError) CallResult {
	return CallResult{Err: err}
}

// PersistentStore is the durable cache tier consumed by the client. The
// store enforces TTL expiry itself; Get must never return an expired value.
// Implementations must be safe for concurrent use.
type PersistentStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPattern removes all keys matching a glob pattern ("prefix:*").
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Settings is a read-only configuration provider. WithSettings copies the
// provider's values onto the client at construction time.
type Settings interface {
	BaseURL() string
	APITokens() []string
	WebsitePropertyIDs() []string
	Timeout() time.Duration
	RateLimitMax() int
	CacheEnabled() bool
}

// StaticSettings is a plain-struct Settings implementation.
type StaticSettings struct {
	URL         string
	Tokens      []string
	PropertyIDs []string
	CallTimeout time.Duration
	RateMax     int
	Cache       bool
}

func (s StaticSettings) BaseURL() string              { return s.URL }
func (s StaticSettings) APITokens() []string          { return s.Tokens }
func (s StaticSettings) WebsitePropertyIDs() []string { return s.PropertyIDs }
func (s StaticSettings) Timeout() time.Duration       { return s.CallTimeout }
func (s StaticSettings) RateLimitMax() int            { return s.RateMax }
func (s StaticSettings) CacheEnabled() bool           { return s.Cache }

// BatchRequest describes one entry of a Batch call.
type BatchRequest struct {
	Endpoint string
	Method   string
	Args     map[string]any
	Query    map[string]string
}

// DebugConfig controls which lifecycle events are logged when a Logger is set.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogCache     bool
	LogRetries   bool
	LogRateLimit bool
	LogCircuit   bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a DebugConfig with all categories enabled but
// debug itself off.
func DefaultDebugConfig() *DebugConfig {
	var counter atomic.Int64
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogCache:     true,
		LogRetries:   true,
		LogRateLimit: true,
		LogCircuit:   true,
		RequestIDGen: func() string {
			return "req-" + strconv.FormatInt(counter.Add(1), 10)
		},
	}
}

// Option configures a Client.
type Option func(*Client)
