// Package widgets holds the pieces a status line is built from. A Static
// widget is fixed text; a Periodic widget is a named source whose text comes
// from a TTL cache refreshed at its own interval.
package widgets

import (
	"time"

	"gitlab.com/tinyland/lab/statusfeed/pkg/cache"
)

// Widget is one segment of the status line.
type Widget interface {
	// Name identifies the widget in logs and health output.
	Name() string
	// Render returns the current text. It must not block for long.
	Render() string
	// Interval is the refresh period; 0 means the widget never changes.
	Interval() time.Duration
}

// Refresher is implemented by widgets whose value can be recomputed on
// demand. Refresh returns the new text.
type Refresher interface {
	Refresh() string
}

// Static is fixed text such as a separator.
type Static struct {
	text string
}

// NewStatic returns a widget that always renders text.
func NewStatic(text string) *Static {
	return &Static{text: text}
}

func (s *Static) Name() string            { return "static" }
func (s *Static) Render() string          { return s.text }
func (s *Static) Interval() time.Duration { return 0 }

// Periodic is a source: a producer behind a cache whose TTL equals the
// refresh interval.
type Periodic struct {
	name     string
	interval time.Duration
	cache    *cache.Timed
}

// NewPeriodic wraps produce in a cache with TTL interval. Cache options such
// as the clock, logger or sentinel are passed through.
func NewPeriodic(name string, interval time.Duration, produce cache.Producer, opts ...cache.Option) *Periodic {
	opts = append([]cache.Option{cache.WithName(name)}, opts...)
	return &Periodic{
		name:     name,
		interval: interval,
		cache:    cache.New(interval, produce, opts...),
	}
}

func (p *Periodic) Name() string            { return p.name }
func (p *Periodic) Interval() time.Duration { return p.interval }

// Render returns the cached text, recomputing it if it has expired.
func (p *Periodic) Render() string { return p.cache.Read() }

// Refresh forces a recompute regardless of age.
func (p *Periodic) Refresh() string {
	p.cache.Invalidate()
	return p.cache.Read()
}

// Stats exposes the cache counters.
func (p *Periodic) Stats() cache.Stats { return p.cache.Stats() }
