package bragapi

import (
	"testing"
	"time"
)

func TestCircuitBreakerStartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if !cb.Allow("cases") {
		t.Error("new breaker should allow calls")
	}
	if got := cb.State("cases"); got != StateClosed {
		t.Errorf("State() = %v, want StateClosed", got)
	}
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	cb.RecordFailure("cases")
	cb.RecordFailure("cases")
	if !cb.Allow("cases") {
		t.Error("breaker should still allow below threshold")
	}

	cb.RecordFailure("cases")
	if cb.Allow("cases") {
		t.Error("breaker should reject after reaching threshold")
	}
	if got := cb.State("cases"); got != StateOpen {
		t.Errorf("State() = %v, want StateOpen", got)
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	cb.RecordFailure("cases")
	cb.RecordFailure("cases")
	cb.RecordSuccess("cases")

	if got := cb.Failures("cases"); got != 0 {
		t.Errorf("Failures() = %d, want 0 after success", got)
	}

	// Two more failures must not open: the counter restarted.
	cb.RecordFailure("cases")
	cb.RecordFailure("cases")
	if !cb.Allow("cases") {
		t.Error("breaker should remain closed after counter reset")
	}
}

func TestCircuitBreakerWindowExpiryResetsCounter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		FailureWindow:    20 * time.Millisecond,
	})

	cb.RecordFailure("cases")
	cb.RecordFailure("cases")
	time.Sleep(30 * time.Millisecond)

	// Stale window: this failure starts a fresh count of 1.
	cb.RecordFailure("cases")
	if got := cb.Failures("cases"); got != 1 {
		t.Errorf("Failures() = %d, want 1 after window expiry", got)
	}
	if !cb.Allow("cases") {
		t.Error("breaker should remain closed after window expiry")
	}
}

func TestCircuitBreakerTrialAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenTimeout:      20 * time.Millisecond,
	})

	cb.RecordFailure("cases")
	if cb.Allow("cases") {
		t.Error("breaker should be open immediately after threshold")
	}

	time.Sleep(30 * time.Millisecond)
	if !cb.Allow("cases") {
		t.Error("breaker should allow a trial call after OpenTimeout")
	}
	if got := cb.State("cases"); got != StateHalfOpen {
		t.Errorf("State() = %v, want StateHalfOpen", got)
	}
}

func TestCircuitBreakerTrialSuccessCloses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenTimeout:      20 * time.Millisecond,
	})

	cb.RecordFailure("cases")
	time.Sleep(30 * time.Millisecond)

	cb.RecordSuccess("cases")
	if got := cb.State("cases"); got != StateClosed {
		t.Errorf("State() = %v, want StateClosed after trial success", got)
	}
	if !cb.Allow("cases") {
		t.Error("breaker should allow calls after closing")
	}
}

func TestCircuitBreakerTrialFailureRearms(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenTimeout:      40 * time.Millisecond,
	})

	cb.RecordFailure("cases")
	time.Sleep(50 * time.Millisecond)
	if !cb.Allow("cases") {
		t.Fatal("breaker should allow a trial call")
	}

	// The failing trial re-arms the full timeout from now.
	cb.RecordFailure("cases")
	if cb.Allow("cases") {
		t.Error("breaker should block again after a failed trial")
	}
	if got := cb.State("cases"); got != StateOpen {
		t.Errorf("State() = %v, want StateOpen after failed trial", got)
	}
}

func TestCircuitBreakerEndpointsAreIsolated(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	cb.RecordFailure("cases")
	if cb.Allow("cases") {
		t.Error("cases endpoint should be open")
	}
	if !cb.Allow("sitemap") {
		t.Error("sitemap endpoint should be unaffected")
	}
	if got := cb.State("sitemap"); got != StateClosed {
		t.Errorf("State(sitemap) = %v, want StateClosed", got)
	}
}

func TestCircuitBreakerCallbacks(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	var opened, closed []string
	cb.onOpen = func(endpoint string) { opened = append(opened, endpoint) }
	cb.onClose = func(endpoint string) { closed = append(closed, endpoint) }

	cb.RecordFailure("cases")
	cb.RecordSuccess("cases")

	if len(opened) != 1 || opened[0] != "cases" {
		t.Errorf("onOpen calls = %v, want [cases]", opened)
	}
	if len(closed) != 1 || closed[0] != "cases" {
		t.Errorf("onClose calls = %v, want [cases]", closed)
	}

	// A success on a closed circuit must not fire onClose again.
	cb.RecordSuccess("cases")
	if len(closed) != 1 {
		t.Errorf("onClose fired %d times, want 1", len(closed))
	}
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cb.config.FailureThreshold)
	}
	if cb.config.FailureWindow != 5*time.Minute {
		t.Errorf("FailureWindow = %v, want 5m", cb.config.FailureWindow)
	}
	if cb.config.OpenTimeout != 300*time.Second {
		t.Errorf("OpenTimeout = %v, want 300s", cb.config.OpenTimeout)
	}
}

func TestCircuitBreakerConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1000})

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				cb.Allow("cases")
				cb.RecordFailure("cases")
				cb.State("cases")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if got := cb.Failures("cases"); got != 800 {
		t.Errorf("Failures() = %d, want 800", got)
	}
}
