package bragapi

import (
	"sync"
	"time"
)

// CircuitState describes the derived state of an endpoint's breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// String returns a printable state name.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the failure count within FailureWindow that opens
	// the circuit.
	FailureThreshold int
	// FailureWindow is the rolling window failures are counted in.
	FailureWindow time.Duration
	// OpenTimeout is how long an open circuit blocks calls before the next
	// call is let through as a trial.
	OpenTimeout time.Duration
}

type endpointCircuit struct {
	mu          sync.Mutex
	failures    int
	windowStart time.Time
	openedAt    time.Time // zero while closed
}

// CircuitBreaker tracks failures per endpoint and short-circuits calls to
// endpoints that keep failing. Half-open is not a stored state: an open
// circuit past its timeout simply allows the next call through as a trial,
// and only that trial's success clears the open marker. A failing trial
// re-arms the timeout. Endpoints are fully isolated from each other.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu       sync.RWMutex
	circuits map[string]*endpointCircuit

	onOpen  func(endpoint string)
	onClose func(endpoint string)
}

// NewCircuitBreaker creates a per-endpoint circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.FailureWindow == 0 {
		config.FailureWindow = 5 * time.Minute
	}
	if config.OpenTimeout == 0 {
		config.OpenTimeout = 300 * time.Second
	}
	return &CircuitBreaker{
		config:   config,
		circuits: make(map[string]*endpointCircuit),
	}
}

func (cb *CircuitBreaker) circuit(endpoint string) *endpointCircuit {
	cb.mu.RLock()
	c, ok := cb.circuits[endpoint]
	cb.mu.RUnlock()
	if ok {
		return c
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if c, ok = cb.circuits[endpoint]; ok {
		return c
	}
	c = &endpointCircuit{}
	cb.circuits[endpoint] = c
	return c
}

// Allow reports whether a call to the endpoint may proceed. An open circuit
// whose timeout has elapsed allows the call (the trial) without mutating
// state.
func (cb *CircuitBreaker) Allow(endpoint string) bool {
	c := cb.circuit(endpoint)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openedAt.IsZero() {
		return true
	}
	return time.Since(c.openedAt) >= cb.config.OpenTimeout
}

// State returns the derived state for the endpoint.
func (cb *CircuitBreaker) State(endpoint string) CircuitState {
	c := cb.circuit(endpoint)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openedAt.IsZero() {
		return StateClosed
	}
	if time.Since(c.openedAt) >= cb.config.OpenTimeout {
		return StateHalfOpen
	}
	return StateOpen
}

// RecordFailure counts a failed call. Failures inside the rolling window
// accumulate; reaching the threshold opens the circuit and resets the
// counter. A failure while the open marker is set re-arms the timeout.
func (cb *CircuitBreaker) RecordFailure(endpoint string) {
	c := cb.circuit(endpoint)
	c.mu.Lock()

	now := time.Now()
	opened := false

	if !c.openedAt.IsZero() {
		// Trial failed (or a straggler failed while open): re-arm.
		c.openedAt = now
		c.mu.Unlock()
		return
	}

	if c.windowStart.IsZero() || now.Sub(c.windowStart) > cb.config.FailureWindow {
		c.windowStart = now
		c.failures = 0
	}
	c.failures++
	if c.failures >= cb.config.FailureThreshold {
		c.openedAt = now
		c.failures = 0
		c.windowStart = time.Time{}
		opened = true
	}
	c.mu.Unlock()

	if opened && cb.onOpen != nil {
		cb.onOpen(endpoint)
	}
}

// RecordSuccess clears the failure counter and, if the circuit was open,
// closes it. This is the only transition back to closed.
func (cb *CircuitBreaker) RecordSuccess(endpoint string) {
	c := cb.circuit(endpoint)
	c.mu.Lock()

	wasOpen := !c.openedAt.IsZero()
	c.openedAt = time.Time{}
	c.failures = 0
	c.windowStart = time.Time{}
	c.mu.Unlock()

	if wasOpen && cb.onClose != nil {
		cb.onClose(endpoint)
	}
}

// Failures returns the current failure count for the endpoint.
func (cb *CircuitBreaker) Failures(endpoint string) int {
	c := cb.circuit(endpoint)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}
