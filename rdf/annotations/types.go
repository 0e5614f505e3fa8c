// Package annotations records timed events while a BGP executes and
// renders them for humans.
package annotations

import (
	"sync"
	"time"
)

// Event names, hierarchical: area/what
const (
	// Execution lifecycle
	BGPBegin    = "bgp/begin"
	BGPComplete = "bgp/complete"

	// Per-pattern index resolution and ordering
	PatternResolved = "bgp/pattern.resolved"
	PlanOrdered     = "bgp/plan.ordered"

	// Join and collection
	JoinStep          = "bgp/join.step"
	BindingsCollected = "bgp/bindings.collected"

	// Outer filter stage
	FilterApplied = "filter/applied"

	// Errors
	ErrorPatternResolution = "error/pattern.resolution"
	ErrorJoin              = "error/join"
)

// Event is one annotation emitted during execution
type Event struct {
	Name    string                 // One of the constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // End - Start
	Data    map[string]interface{} // Event-specific values, dotted keys
}

// Handler receives events as they occur
type Handler func(event Event)

// Collector keeps the events of one or more executions and forwards each
// to its handler. A collector without a handler is disabled.
type Collector struct {
	enabled bool
	handler Handler

	mu     sync.Mutex
	events []Event
}

// NewCollector creates a collector; nil handler disables collection
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 32),
	}
}

// Enabled reports whether events are recorded
func (c *Collector) Enabled() bool {
	return c != nil && c.enabled
}

// Handler returns the underlying event handler
func (c *Collector) Handler() Handler {
	return c.handler
}

// Add records an event. Safe for concurrent use.
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Outside the lock: handlers may be slow or call back in
	c.handler(event)
}

// AddTiming records an event that started at start and ends now
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}

	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// Events returns a copy of the recorded events
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Named returns the recorded events with the given name
func (c *Collector) Named(name string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops recorded events, keeping the handler
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
