// Package collectors defines the probe contract for statusfeed widgets and
// the registry that tracks how each probe is doing. Every probe (clock,
// battery, volume, load, mpd, sysmetrics, command) implements Producer and
// lives in its own sub-package; the registry binds a probe to the
// zero-argument function a widget's cache recomputes.
package collectors

import (
	"context"
	"time"
)

// Producer is the interface all data sources implement. A producer renders
// its own display text; failures are reported as errors and turned into a
// sentinel by the widget cache, never shown raw.
type Producer interface {
	// Name returns a short identifier for this probe (e.g., "battery").
	Name() string

	// Produce performs one probe and returns the display text.
	Produce(ctx context.Context) (string, error)
}

// ProducerFunc adapts a plain function to the Producer interface.
type ProducerFunc struct {
	ID string
	Fn func(ctx context.Context) (string, error)
}

// Name returns the configured identifier.
func (p ProducerFunc) Name() string { return p.ID }

// Produce calls the wrapped function.
func (p ProducerFunc) Produce(ctx context.Context) (string, error) {
	return p.Fn(ctx)
}

// Status tracks the runtime state of a single bound producer. It is updated
// after every probe.
type Status struct {
	Name        string        `json:"name"`
	Producer    string        `json:"producer"`
	Healthy     bool          `json:"healthy"`
	LastRun     time.Time     `json:"last_run"`
	LastError   string        `json:"last_error,omitempty"`
	RunCount    int64         `json:"run_count"`
	ErrorCount  int64         `json:"error_count"`
	LastLatency time.Duration `json:"last_latency"`
}
