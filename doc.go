// Package bragapi is a resilient client for the BRAG book gallery API.
// It layers the reliability primitives a plugin-facing data client needs
// around a single injected net/http transport:
//
//   - Request building with credential injection and cache-busting
//   - Two-tier response caching (in-process + persistent store with TTL)
//   - Per-endpoint fixed-window rate limiting
//   - Per-endpoint circuit breaking with lazy half-open trials
//   - Bounded retries with exponential backoff
//   - Response decoding, shape validation and per-endpoint metrics
//
// Design goals:
//   - Uniform success/error contract: every operation returns a CallResult,
//     never a panic or an untyped error
//   - Small surface area: functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - Extensibility via pluggable persistent store, logger and metrics
//
// Typical usage:
//
//	client := bragapi.New(
//	    bragapi.WithBaseURL("https://app.bragbookgallery.com/api/plugin"),
//	    bragapi.WithCredentials([]string{token}, []string{propertyID}),
//	    bragapi.WithRateLimit(30, time.Minute),
//	    bragapi.WithPersistentStore(store),
//	)
//	result := client.Get(ctx, "cases/42", nil, 5*time.Minute)
//	if result.Err != nil {
//	    // result.Err.Kind tells you what happened and whether a retry could help
//	}
//
// Cache hits bypass the rate limiter and circuit breaker entirely; only
// successful, well-formed JSON responses are ever cached. The client avoids
// opinionated logging: provide a Logger (e.g. via WithSimpleLogger or
// NewZapLogger) and enable debug flags selectively for insight without noise.
package bragapi
