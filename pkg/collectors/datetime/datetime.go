// Package datetime provides the clock probe. Templates use strftime
// conversions (see strftime(3)) and may embed display markup such as dzen2's
// ^fg() commands, which pass through untouched.
package datetime

import (
	"context"
	"time"

	"github.com/ncruces/go-strftime"
	"k8s.io/utils/clock"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = "%a, %d %b %Y, %H:%M"

// Clock renders the current local time.
type Clock struct {
	template string
	clock    clock.PassiveClock
	location *time.Location
}

// Option configures a Clock.
type Option func(*Clock)

// WithClock replaces the real clock.
func WithClock(c clock.PassiveClock) Option {
	return func(cl *Clock) { cl.clock = c }
}

// WithLocation renders in loc instead of the local zone.
func WithLocation(loc *time.Location) Option {
	return func(cl *Clock) { cl.location = loc }
}

// New creates a clock probe for the given strftime template.
func New(template string, opts ...Option) *Clock {
	if template == "" {
		template = DefaultTemplate
	}
	c := &Clock{
		template: template,
		clock:    clock.RealClock{},
		location: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the probe identifier.
func (c *Clock) Name() string { return "clock" }

// Produce formats the current time.
func (c *Clock) Produce(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strftime.Format(c.template, c.clock.Now().In(c.location)), nil
}
