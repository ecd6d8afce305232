package bragapi

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WithBaseURL sets the gallery API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithCredentials sets the API token and website property ID lists injected
// into write-request bodies.
func WithCredentials(apiTokens, websitePropertyIDs []string) Option {
	return func(c *Client) {
		c.apiTokens = append([]string(nil), apiTokens...)
		c.propertyIDs = append([]string(nil), websitePropertyIDs...)
	}
}

// WithSettings copies values from a read-only configuration provider onto
// the client. Later options still override individual values.
func WithSettings(s Settings) Option {
	return func(c *Client) {
		c.baseURL = s.BaseURL()
		c.apiTokens = append([]string(nil), s.APITokens()...)
		c.propertyIDs = append([]string(nil), s.WebsitePropertyIDs()...)
		c.cacheEnabled = s.CacheEnabled()
		if timeout := s.Timeout(); timeout > 0 {
			c.httpClient.Timeout = timeout
		}
		if max := s.RateLimitMax(); max > 0 {
			c.rateLimiter = NewRateLimiter(RateLimiterConfig{MaxRequests: max})
		}
	}
}

// WithHTTPClient sets a custom HTTP client. TLS verification must stay
// enabled on any injected transport; this package never disables it.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMaxAttempts sets the default attempt budget for every call.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithBackoff sets the retry delay parameters.
func WithBackoff(initial, max time.Duration, multiplier float64) Option {
	return func(c *Client) {
		c.initialBackoff = initial
		c.maxBackoff = max
		c.backoffMultiplier = multiplier
	}
}

// WithJitter sets the jitter factor for backoff (0.0 to 1.0).
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.jitter = f
	}
}

// WithRateLimit bounds requests per endpoint to max per window.
func WithRateLimit(max int, window time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(RateLimiterConfig{MaxRequests: max, Window: window})
	}
}

// WithCircuitBreaker sets the circuit breaker configuration.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.circuitBreaker = NewCircuitBreaker(config)
	}
}

// WithPersistentStore enables the durable cache tier.
func WithPersistentStore(store PersistentStore) Option {
	return func(c *Client) {
		c.cache = NewTieredCache(store)
	}
}

// WithCacheDisabled turns response caching off entirely.
func WithCacheDisabled() Option {
	return func(c *Client) {
		c.cacheEnabled = false
	}
}

// WithDefaultCacheTTL sets the TTL used when callers pass none.
func WithDefaultCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.defaultCacheTTL = ttl
	}
}

// WithBatchPause sets the pause between sequential batch requests.
func WithBatchPause(d time.Duration) Option {
	return func(c *Client) {
		c.batchPause = d
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metricsCollector = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metricsCollector = collector
	}
}

// WithEventLogCapacity sets how many events the ring buffer retains.
func WithEventLogCapacity(n int) Option {
	return func(c *Client) {
		c.events = NewEventLog(n)
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a plain console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with the current configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error describing every problem found.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateURLConfig()...)
	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateReliabilityConfig()...)
	problems = append(problems, c.validateDebugConfig()...)

	if len(problems) > 0 {
		return newAPIError(KindValidation, "configuration validation failed", "", 0,
			fmt.Errorf("validation errors: %v", problems), nil)
	}
	return nil
}

func (c *Client) validateURLConfig() []string {
	var problems []string

	if c.baseURL == "" {
		problems = append(problems, "baseURL must be set")
	} else if parsed, err := url.Parse(c.baseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		problems = append(problems, "baseURL must be an absolute URL")
	}
	return problems
}

func (c *Client) validateRetryConfig() []string {
	var problems []string

	if c.maxAttempts < 1 {
		problems = append(problems, "maxAttempts must be at least 1")
	}
	if c.initialBackoff <= 0 {
		problems = append(problems, "initialBackoff must be positive")
	}
	if c.maxBackoff < c.initialBackoff {
		problems = append(problems, "maxBackoff must be greater than or equal to initialBackoff")
	}
	if c.backoffMultiplier <= 0 {
		problems = append(problems, "backoffMultiplier must be positive")
	}
	if c.jitter < 0 || c.jitter > 1 {
		problems = append(problems, "jitter must be between 0 and 1")
	}
	return problems
}

func (c *Client) validateReliabilityConfig() []string {
	var problems []string

	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	if c.rateLimiter != nil {
		if c.rateLimiter.config.MaxRequests <= 0 {
			problems = append(problems, "rate limiter MaxRequests must be positive")
		}
		if c.rateLimiter.config.Window <= 0 {
			problems = append(problems, "rate limiter Window must be positive")
		}
	}
	if c.circuitBreaker != nil {
		if c.circuitBreaker.config.FailureThreshold <= 0 {
			problems = append(problems, "circuit breaker FailureThreshold must be positive")
		}
		if c.circuitBreaker.config.OpenTimeout <= 0 {
			problems = append(problems, "circuit breaker OpenTimeout must be positive")
		}
	}
	if c.cacheEnabled && c.defaultCacheTTL <= 0 {
		problems = append(problems, "defaultCacheTTL must be positive when caching is enabled")
	}
	return problems
}

func (c *Client) validateDebugConfig() []string {
	var problems []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}
	return problems
}
