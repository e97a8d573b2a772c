// Package cache provides the time-to-live cache that sits between a widget
// and its probe. A Timed cache serves the last produced value until it
// expires, then recomputes synchronously on the next read.
package cache

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Sentinel is the default text served when a producer fails.
const Sentinel = "ERROR"

// Producer computes a fresh value. It takes no arguments: the cache always
// recomputes the same closure, so every caller sharing a Timed sees the same
// value.
type Producer func() (string, error)

// Stats holds runtime counters for a Timed cache.
type Stats struct {
	Hits        int64
	Misses      int64
	Failures    int64
	LastLatency time.Duration
	ComputedAt  time.Time
	LastError   error
}

// Option configures a Timed cache.
type Option func(*Timed)

// WithClock replaces the real clock. Tests pass a fake clock here.
func WithClock(c clock.PassiveClock) Option {
	return func(t *Timed) { t.clock = c }
}

// WithSentinel overrides the text served when the producer fails.
func WithSentinel(s string) Option {
	return func(t *Timed) { t.sentinel = s }
}

// WithLogger sets the logger used to report producer failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Timed) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithName labels log records emitted by the cache.
func WithName(name string) Option {
	return func(t *Timed) { t.name = name }
}

// Timed is a single-entry cache with a time-to-live.
//
// Read never returns an error. A failing producer yields the sentinel, which
// is cached for the TTL like any other value so a broken probe is retried at
// its own cadence rather than on every read.
//
// Producer calls are serialized. While one caller is recomputing, other
// readers get the previous value instead of waiting; only the very first
// read, when there is nothing to fall back on, blocks.
type Timed struct {
	ttl      time.Duration
	produce  Producer
	clock    clock.PassiveClock
	sentinel string
	logger   *slog.Logger
	name     string

	run sync.Mutex // held for the duration of a producer call

	mu         sync.Mutex
	value      string
	computedAt time.Time
	valid      bool
	expired    bool
	computing  bool
	stats      Stats
}

// New creates a Timed cache around produce. A negative ttl is treated as 0,
// meaning every read recomputes.
func New(ttl time.Duration, produce Producer, opts ...Option) *Timed {
	if ttl < 0 {
		ttl = 0
	}
	t := &Timed{
		ttl:      ttl,
		produce:  produce,
		clock:    clock.RealClock{},
		sentinel: Sentinel,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TTL returns the configured time-to-live.
func (t *Timed) TTL() time.Duration { return t.ttl }

// Read returns the cached value if it is still fresh, recomputing it first
// otherwise.
func (t *Timed) Read() string {
	t.mu.Lock()
	if t.freshLocked() {
		t.stats.Hits++
		v := t.value
		t.mu.Unlock()
		return v
	}
	if t.computing && t.valid {
		// Someone else is already paying for the refresh.
		v := t.value
		t.mu.Unlock()
		return v
	}
	t.mu.Unlock()

	t.run.Lock()
	defer t.run.Unlock()

	t.mu.Lock()
	if t.freshLocked() {
		// Computed while we waited for the run lock.
		t.stats.Hits++
		v := t.value
		t.mu.Unlock()
		return v
	}
	t.computing = true
	t.stats.Misses++
	t.mu.Unlock()

	start := t.clock.Now()
	value, err := t.call()
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.computing = false
	t.stats.LastLatency = now.Sub(start)
	t.stats.LastError = err
	if err != nil {
		t.stats.Failures++
		t.logger.Debug("producer failed", "widget", t.name, "error", err)
		value = t.sentinel
	}
	t.value = value
	t.computedAt = now
	t.stats.ComputedAt = now
	t.valid = true
	t.expired = false
	return value
}

// Invalidate marks the current value as expired. The next Read recomputes;
// concurrent readers keep seeing the old value until it has.
func (t *Timed) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expired = true
}

// Peek returns the last computed value without triggering a recompute.
// ok is false if nothing has been computed yet.
func (t *Timed) Peek() (value string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.valid
}

// Stats returns a copy of the cache counters.
func (t *Timed) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// freshLocked reports whether the cached value may be served as is. The TTL
// bound is inclusive. Caller must hold t.mu.
func (t *Timed) freshLocked() bool {
	if !t.valid || t.expired {
		return false
	}
	return t.clock.Since(t.computedAt) <= t.ttl
}

// call runs the producer, turning a panic into an error.
func (t *Timed) call() (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
	}()
	if t.produce == nil {
		return "", fmt.Errorf("no producer")
	}
	return t.produce()
}
