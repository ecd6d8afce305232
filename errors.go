package bragapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrCircuitOpen is returned when the circuit breaker short-circuits a call.
	ErrCircuitOpen = errors.New("bragapi: circuit open")

	// ErrRateLimited is returned when a request is denied by the local rate limiter.
	ErrRateLimited = errors.New("bragapi: rate limited")

	// ErrCacheMiss is returned by cache lookups that find nothing.
	ErrCacheMiss = errors.New("bragapi: cache miss")
)

// ErrorKind is the closed set of failure categories the client produces.
// Every non-2xx status, transport fault and local gate rejection maps onto
// exactly one kind, so call sites can switch exhaustively.
type ErrorKind int

const (
	KindInvalidURL ErrorKind = iota
	KindMissingField
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindRateLimited
	KindServer
	KindTransport
	KindJSONDecode
	KindCircuitOpen
	KindValidation
	KindMaxRetries
	KindAPI
)

// String returns the canonical name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidURL:
		return "InvalidURL"
	case KindMissingField:
		return "MissingField"
	case KindAuthentication:
		return "AuthenticationError"
	case KindAuthorization:
		return "AuthorizationError"
	case KindNotFound:
		return "NotFound"
	case KindRateLimited:
		return "RateLimitExceeded"
	case KindServer:
		return "ServerError"
	case KindTransport:
		return "TransportFailure"
	case KindJSONDecode:
		return "JSONDecodeError"
	case KindCircuitOpen:
		return "CircuitOpenError"
	case KindValidation:
		return "ValidationError"
	case KindMaxRetries:
		return "MaxRetriesExceeded"
	case KindAPI:
		return "ApiError"
	default:
		return "Unknown"
	}
}

// Retryable reports whether another attempt against the same endpoint could
// plausibly succeed. Credential, shape and caller errors are terminal.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTransport, KindServer, KindRateLimited:
		return true
	default:
		return false
	}
}

// APIError is the typed error carried inside a CallResult. It is immutable
// once produced; callers own the returned value.
type APIError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Endpoint   string
	Cause      error
	Context    map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s (endpoint %s)", msg, e.Endpoint)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches two APIErrors by kind, so errors.Is(err, &APIError{Kind: k})
// works without comparing incidental fields.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*APIError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Retryable reports whether the error's kind is retryable.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Kind.Retryable()
}

// newAPIError builds an APIError with an optional context map. The context
// map is copied so the error stays immutable.
func newAPIError(kind ErrorKind, message, endpoint string, statusCode int, cause error, contextData map[string]any) *APIError {
	var ctx map[string]any
	if len(contextData) > 0 {
		ctx = make(map[string]any, len(contextData))
		for k, v := range contextData {
			ctx[k] = v
		}
	}
	return &APIError{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Cause:      cause,
		Context:    ctx,
	}
}

// kindForStatus maps an HTTP status code to an error kind. 2xx statuses
// never reach this function.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == 401:
		return KindAuthentication
	case status == 403:
		return KindAuthorization
	case status == 404:
		return KindNotFound
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindAPI
	}
}
