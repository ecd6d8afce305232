package bragapi

import (
	"sync"
	"time"
)

// DefaultEventLogCapacity bounds the event ring buffer.
const DefaultEventLogCapacity = 100

// Event is one append-only entry in the client's event log: rate limit
// rejections, breaker transitions, terminal call failures.
type Event struct {
	Endpoint  string
	Message   string
	Context   map[string]any
	Timestamp time.Time
}

// EventLog is a bounded ring buffer of the most recent events. When full,
// the oldest entry is evicted first. Safe for concurrent use.
type EventLog struct {
	mu      sync.Mutex
	entries []Event
	start   int
	count   int
}

// NewEventLog creates an event log with the given capacity (values < 1 fall
// back to DefaultEventLogCapacity).
func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = DefaultEventLogCapacity
	}
	return &EventLog{
		entries: make([]Event, capacity),
	}
}

// Append records an event, evicting the oldest entry when full.
func (el *EventLog) Append(endpoint, message string, contextData map[string]any) {
	var ctx map[string]any
	if len(contextData) > 0 {
		ctx = make(map[string]any, len(contextData))
		for k, v := range contextData {
			ctx[k] = v
		}
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	idx := (el.start + el.count) % len(el.entries)
	el.entries[idx] = Event{
		Endpoint:  endpoint,
		Message:   message,
		Context:   ctx,
		Timestamp: time.Now(),
	}
	if el.count < len(el.entries) {
		el.count++
	} else {
		el.start = (el.start + 1) % len(el.entries)
	}
}

// Events returns a copy of the current entries, oldest first.
func (el *EventLog) Events() []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	out := make([]Event, el.count)
	for i := 0; i < el.count; i++ {
		out[i] = el.entries[(el.start+i)%len(el.entries)]
	}
	return out
}

// Len returns the number of retained events.
func (el *EventLog) Len() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.count
}
