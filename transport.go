package bragapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes bounds how much of a response body is read and cached.
const maxResponseBytes = 10 * 1024 * 1024

// defaultHTTPClient builds the transport used when the caller injects none:
// 30s per-attempt timeout and at most 5 redirects. TLS verification is left
// at the standard library default and is never disabled by this package.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			return nil
		},
	}
}

// invoke performs one network attempt: issues the HTTP call, maps transport
// and status failures onto the error taxonomy, decodes the JSON body, and
// records the outcome against the circuit breaker and metrics.
func (c *Client) invoke(ctx context.Context, endpoint, method, fullURL string, body []byte) CallResult {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return errResult(newAPIError(KindInvalidURL, "could not construct request", endpoint, 0, err, nil))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "bragapi/"+Version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.recordFailure(endpoint)
		return errResult(newAPIError(KindTransport, "network request failed", endpoint, 0, err, nil))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure(endpoint)
		return errResult(newAPIError(KindTransport, "could not read response body", endpoint, resp.StatusCode, err, nil))
	}

	c.metricsCollector.RecordRequest(method, endpoint, resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := kindForStatus(resp.StatusCode)
		c.recordFailure(endpoint)
		c.metricsCollector.RecordError(kind, method, endpoint)
		return errResult(newAPIError(kind, httpErrorMessage(resp.StatusCode), endpoint, resp.StatusCode, nil, map[string]any{
			"status": resp.StatusCode,
			"body":   truncate(string(raw), 512),
		}))
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		// A malformed success body is structural, not transient: no breaker
		// success is recorded and the error is terminal.
		c.metricsCollector.RecordError(KindJSONDecode, method, endpoint)
		return errResult(newAPIError(KindJSONDecode, "response body is not valid JSON", endpoint, resp.StatusCode, err, map[string]any{
			"body": truncate(string(raw), 512),
		}))
	}

	c.circuitBreaker.RecordSuccess(endpoint)
	c.metricsCollector.RecordCircuitBreakerState(endpoint, c.circuitBreaker.State(endpoint))
	c.metrics.record(endpoint, duration)

	return CallResult{
		StatusCode: resp.StatusCode,
		Payload:    payload,
		Headers:    resp.Header.Clone(),
		raw:        raw,
	}
}

// recordFailure counts a failed attempt against the endpoint's breaker.
func (c *Client) recordFailure(endpoint string) {
	c.circuitBreaker.RecordFailure(endpoint)
	c.metricsCollector.RecordCircuitBreakerState(endpoint, c.circuitBreaker.State(endpoint))
}

func httpErrorMessage(status int) string {
	switch kindForStatus(status) {
	case KindAuthentication:
		return "authentication failed"
	case KindAuthorization:
		return "access forbidden"
	case KindNotFound:
		return "resource not found"
	case KindRateLimited:
		return "remote rate limit exceeded"
	case KindServer:
		return "server error"
	default:
		return "unexpected API response"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
