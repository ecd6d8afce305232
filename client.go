package bragapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bragbook2/brag-book-gallery-sub010/internal/backoff"
)

// Client is a resilient client for the gallery API. It layers caching,
// rate limiting, circuit breaking and retries around an injected net/http
// transport. It is safe for concurrent use; all reliability state is held
// on the instance, never in package globals.
type Client struct {
	httpClient *http.Client

	baseURL     string
	apiTokens   []string
	propertyIDs []string

	maxAttempts       int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	backoffStrategy   backoff.Strategy

	cache           *TieredCache
	cacheEnabled    bool
	defaultCacheTTL time.Duration

	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker

	metrics          *metricsRegistry
	metricsCollector *MetricsCollector
	events           *EventLog
	logger           Logger
	debug            *DebugConfig

	batchPause time.Duration

	flight singleflight.Group

	// sleep is swapped out in tests so backoff does not stall the suite.
	sleep func(ctx context.Context, d time.Duration) error

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	c := &Client{
		httpClient:        defaultHTTPClient(),
		maxAttempts:       3,
		initialBackoff:    time.Second,
		maxBackoff:        10 * time.Second,
		backoffMultiplier: 2.0,
		jitter:            0,
		backoffStrategy:   backoff.Exponential{},
		cacheEnabled:      true,
		defaultCacheTTL:   5 * time.Minute,
		rateLimiter:       NewRateLimiter(RateLimiterConfig{}),
		circuitBreaker:    NewCircuitBreaker(CircuitBreakerConfig{}),
		metrics:           newMetricsRegistry(),
		events:            NewEventLog(DefaultEventLogCapacity),
		debug:             DefaultDebugConfig(),
		batchPause:        100 * time.Millisecond,
		sleep:             sleepWithContext,
	}

	for _, option := range options {
		option(c)
	}

	if c.cache == nil {
		c.cache = NewTieredCache(nil)
	}

	c.circuitBreaker.onOpen = func(endpoint string) {
		c.events.Append(endpoint, "circuit breaker opened", nil)
		if c.debugEnabled(c.debug.LogCircuit) {
			c.logger.Warn("Circuit breaker opened", "endpoint", endpoint)
		}
	}
	c.circuitBreaker.onClose = func(endpoint string) {
		c.events.Append(endpoint, "circuit breaker closed", nil)
		if c.debugEnabled(c.debug.LogCircuit) {
			c.logger.Info("Circuit breaker closed", "endpoint", endpoint)
		}
	}

	if err := c.ValidateConfiguration(); err != nil {
		c.validationError = err
	}
	return c
}

// Get performs a GET against the endpoint, serving from the cache when a
// positive cacheTTL is given. Passing a negative cacheTTL uses the
// configured default TTL; zero disables caching for this call. Cache hits
// bypass the rate limiter and the circuit breaker entirely. Concurrent
// identical GETs are coalesced into a single network call.
func (c *Client) Get(ctx context.Context, endpoint string, query map[string]string, cacheTTL time.Duration) CallResult {
	if cacheTTL < 0 {
		cacheTTL = c.defaultCacheTTL
	}
	key := cacheKey(endpoint, query)
	useCache := c.cacheEnabled && cacheTTL > 0

	if useCache {
		if entry, ok := c.cache.Get(ctx, key); ok {
			c.metricsCollector.RecordCacheHit(endpoint)
			if c.debugEnabled(c.debug.LogCache) {
				c.logger.Debug("Cache hit", "endpoint", endpoint, "key", key)
			}
			return resultFromEntry(endpoint, entry)
		}
		c.metricsCollector.RecordCacheMiss(endpoint)
		if c.debugEnabled(c.debug.LogCache) {
			c.logger.Debug("Cache miss", "endpoint", endpoint, "key", key)
		}
	}

	shared, _, _ := c.flight.Do(key, func() (any, error) {
		res := c.doRequest(ctx, endpoint, http.MethodGet, nil, query, c.maxAttempts)
		if res.Err == nil && useCache {
			entry := &CacheEntry{
				StatusCode: res.StatusCode,
				Body:       res.raw,
				Header:     res.Headers,
			}
			if err := c.cache.Set(ctx, key, entry, cacheTTL); err == nil {
				if c.debugEnabled(c.debug.LogCache) {
					c.logger.Debug("Response cached", "endpoint", endpoint, "key", key, "ttl", cacheTTL)
				}
			}
		}
		return res, nil
	})

	res := shared.(CallResult)
	if res.Err != nil {
		return errResult(res.Err)
	}
	// Waiters decode their own payload copy so no caller shares maps.
	return decodeShared(endpoint, res)
}

// Post performs a POST with the given body after verifying that every
// required field is present. Presence only: a present zero value passes.
func (c *Client) Post(ctx context.Context, endpoint string, body map[string]any, requiredFields []string) CallResult {
	if err := checkRequiredFields(endpoint, body, requiredFields); err != nil {
		c.events.Append(endpoint, err.Message, err.Context)
		return errResult(err)
	}
	return c.doRequest(ctx, endpoint, http.MethodPost, body, nil, c.maxAttempts)
}

// Put performs a PUT with the given body.
func (c *Client) Put(ctx context.Context, endpoint string, body map[string]any) CallResult {
	return c.doRequest(ctx, endpoint, http.MethodPut, body, nil, c.maxAttempts)
}

// Patch performs a PATCH with the given body.
func (c *Client) Patch(ctx context.Context, endpoint string, body map[string]any) CallResult {
	return c.doRequest(ctx, endpoint, http.MethodPatch, body, nil, c.maxAttempts)
}

// Delete performs a DELETE with the given body.
func (c *Client) Delete(ctx context.Context, endpoint string, body map[string]any) CallResult {
	return c.doRequest(ctx, endpoint, http.MethodDelete, body, nil, c.maxAttempts)
}

// RequestWithRetry executes an arbitrary call with an explicit attempt
// budget. For GET, args become query parameters; for write methods they
// form the request body.
func (c *Client) RequestWithRetry(ctx context.Context, endpoint, method string, args map[string]any, maxAttempts int) CallResult {
	if maxAttempts <= 0 {
		maxAttempts = c.maxAttempts
	}
	if method == http.MethodGet {
		return c.doRequest(ctx, endpoint, method, nil, stringifyArgs(args), maxAttempts)
	}
	return c.doRequest(ctx, endpoint, method, args, nil, maxAttempts)
}

// Batch executes requests sequentially with a fixed pause between them to
// avoid bursting the remote service. Every index gets an independent
// result; one failing request never aborts the rest.
func (c *Client) Batch(ctx context.Context, requests []BatchRequest) []CallResult {
	results := make([]CallResult, len(requests))
	for i, req := range requests {
		if i > 0 && c.batchPause > 0 {
			if err := c.sleep(ctx, c.batchPause); err != nil {
				results[i] = errResult(newAPIError(KindTransport, "batch cancelled", req.Endpoint, 0, err, nil))
				continue
			}
		}

		method := req.Method
		if method == "" {
			method = http.MethodGet
		}
		if method == http.MethodGet {
			results[i] = c.doRequest(ctx, req.Endpoint, method, nil, req.Query, c.maxAttempts)
		} else {
			results[i] = c.doRequest(ctx, req.Endpoint, method, req.Args, nil, c.maxAttempts)
		}
	}
	return results
}

// MetricsSnapshot returns a copy of the per-endpoint request statistics.
func (c *Client) MetricsSnapshot() map[string]EndpointMetrics {
	return c.metrics.snapshot()
}

// Events returns the retained event log entries, oldest first.
func (c *Client) Events() []Event {
	return c.events.Events()
}

// ClearCache invalidates cached responses in both tiers. An empty pattern
// flushes everything; otherwise pattern is a glob matched against cache
// keys ("cases*" clears every cases entry). Clearing an empty cache is a
// no-op.
func (c *Client) ClearCache(ctx context.Context, pattern string) error {
	if pattern == "" {
		return c.cache.Clear(ctx)
	}
	return c.cache.DeleteByPattern(ctx, cacheKeyPrefix+pattern)
}

// doRequest is the shared pipeline: build the request, pass the rate
// limiter gate once, then run the bounded retry loop with a circuit
// breaker check before every attempt.
func (c *Client) doRequest(ctx context.Context, endpoint, method string, body map[string]any, query map[string]string, maxAttempts int) CallResult {
	fullURL, apiErr := c.buildURL(endpoint, query, method == http.MethodGet)
	if apiErr != nil {
		c.metricsCollector.RecordError(apiErr.Kind, method, endpoint)
		return errResult(apiErr)
	}

	var rawBody []byte
	if isWriteMethod(method) && body != nil {
		if rawBody, apiErr = c.buildBody(endpoint, body); apiErr != nil {
			return errResult(apiErr)
		}
	}

	if !c.rateLimiter.Allow(endpoint) {
		c.events.Append(endpoint, "rate limit exceeded", map[string]any{"method": method})
		c.metricsCollector.RecordError(KindRateLimited, method, endpoint)
		if c.debugEnabled(c.debug.LogRateLimit) {
			c.logger.Warn("Rate limit exceeded", "endpoint", endpoint, "method", method)
		}
		return errResult(newAPIError(KindRateLimited, "local rate limit exceeded", endpoint, 0, ErrRateLimited, nil))
	}
	c.metricsCollector.RecordRateLimiterRemaining(endpoint, c.rateLimiter.Remaining(endpoint))

	var requestID string
	if c.debugEnabled(c.debug.LogRequests) {
		requestID = c.debug.RequestIDGen()
		c.logger.Debug("Starting request", "requestID", requestID, "method", method, "endpoint", endpoint)
	}

	var lastErr *APIError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.metricsCollector.RecordRetry(method, endpoint)
			if c.debugEnabled(c.debug.LogRetries) {
				c.logger.Info("Retry attempt", "requestID", requestID, "attempt", attempt, "maxAttempts", maxAttempts, "endpoint", endpoint)
			}
		}

		if !c.circuitBreaker.Allow(endpoint) {
			// The open circuit consumes this attempt slot without a
			// network call; the next iteration re-checks breaker state.
			lastErr = newAPIError(KindCircuitOpen, "circuit breaker is open", endpoint, 0, ErrCircuitOpen, nil)
			c.metricsCollector.RecordError(KindCircuitOpen, method, endpoint)
			if c.debugEnabled(c.debug.LogCircuit) {
				c.logger.Warn("Circuit breaker open, skipping attempt", "requestID", requestID, "endpoint", endpoint, "attempt", attempt)
			}
		} else {
			res := c.invoke(ctx, endpoint, method, fullURL, rawBody)
			if res.Err == nil {
				return res
			}
			lastErr = res.Err

			if !lastErr.Retryable() && lastErr.Kind != KindCircuitOpen {
				c.events.Append(endpoint, lastErr.Message, lastErr.Context)
				return errResult(lastErr)
			}
		}

		if attempt < maxAttempts {
			delay := c.backoffStrategy.Calculate(attempt, c.initialBackoff, c.maxBackoff, c.backoffMultiplier, c.jitter)
			if c.debugEnabled(c.debug.LogRetries) {
				c.logger.Info("Scheduling retry", "requestID", requestID, "attempt", attempt+1, "backoff", delay, "endpoint", endpoint)
			}
			if err := c.sleep(ctx, delay); err != nil {
				return errResult(newAPIError(KindTransport, "request cancelled during backoff", endpoint, 0, err, nil))
			}
		}
	}

	if lastErr == nil {
		lastErr = newAPIError(KindMaxRetries, fmt.Sprintf("no result after %d attempts", maxAttempts), endpoint, 0, nil, nil)
	}
	c.events.Append(endpoint, lastErr.Message, lastErr.Context)
	return errResult(lastErr)
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func (c *Client) debugEnabled(flag bool) bool {
	return c.debug != nil && c.debug.Enabled && flag && c.logger != nil
}

// resultFromEntry decodes a cache entry into a fresh CallResult.
func resultFromEntry(endpoint string, entry *CacheEntry) CallResult {
	var payload any
	if err := json.Unmarshal(entry.Body, &payload); err != nil {
		return errResult(newAPIError(KindJSONDecode, "cached response is not valid JSON", endpoint, entry.StatusCode, err, nil))
	}
	return CallResult{
		StatusCode: entry.StatusCode,
		Payload:    payload,
		Headers:    entry.Header.Clone(),
		raw:        entry.Body,
	}
}

// decodeShared re-decodes a coalesced result so each waiter owns its payload.
func decodeShared(endpoint string, shared CallResult) CallResult {
	var payload any
	if err := json.Unmarshal(shared.raw, &payload); err != nil {
		return errResult(newAPIError(KindJSONDecode, "response body is not valid JSON", endpoint, shared.StatusCode, err, nil))
	}
	return CallResult{
		StatusCode: shared.StatusCode,
		Payload:    payload,
		Headers:    shared.Headers.Clone(),
		raw:        shared.raw,
	}
}

func stringifyArgs(args map[string]any) map[string]string {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// sleepWithContext pauses for d or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
