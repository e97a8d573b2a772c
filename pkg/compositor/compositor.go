// Package compositor joins widget texts into one status line and writes it
// to a sink. Every tick renders the whole line; widgets that are not due
// serve their cached value.
package compositor

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"gitlab.com/tinyland/lab/statusfeed/pkg/scheduler"
	"gitlab.com/tinyland/lab/statusfeed/pkg/sink"
	"gitlab.com/tinyland/lab/statusfeed/pkg/widgets"
)

// RefreshPriority is the scheduler priority of widget refresh events.
const RefreshPriority = 1

// Option configures a Compositor.
type Option func(*Compositor)

// WithMaxWidth truncates lines to n terminal cells. 0 disables truncation.
func WithMaxWidth(n int) Option {
	return func(c *Compositor) {
		if n > 0 {
			c.maxWidth = n
		}
	}
}

// WithEllipsis sets the tail appended to truncated lines.
func WithEllipsis(tail string) Option {
	return func(c *Compositor) { c.ellipsis = tail }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compositor) {
		if l != nil {
			c.logger = l
		}
	}
}

// Compositor renders widgets left to right with no implicit delimiter.
// Separators are ordinary static widgets.
type Compositor struct {
	sink     sink.Sink
	maxWidth int
	ellipsis string
	logger   *slog.Logger

	mu      sync.RWMutex
	widgets []widgets.Widget

	ticks atomic.Int64
}

// New creates a compositor writing to s.
func New(s sink.Sink, ws []widgets.Widget, opts ...Option) *Compositor {
	c := &Compositor{
		sink:    s,
		logger:  slog.New(slog.DiscardHandler),
		widgets: append([]widgets.Widget(nil), ws...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Widgets returns a copy of the current widget list.
func (c *Compositor) Widgets() []widgets.Widget {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]widgets.Widget(nil), c.widgets...)
}

// SetWidgets replaces the widget list. The next tick renders the new set.
func (c *Compositor) SetWidgets(ws []widgets.Widget) {
	c.mu.Lock()
	c.widgets = append([]widgets.Widget(nil), ws...)
	c.mu.Unlock()
}

// RenderLine concatenates every widget's current text. Newlines inside a
// widget's text are flattened to spaces so one tick is always one line.
func (c *Compositor) RenderLine() string {
	ws := c.Widgets()
	var b strings.Builder
	for _, w := range ws {
		b.WriteString(w.Render())
	}
	line := flatten(b.String())
	return fit(line, c.maxWidth, c.ellipsis)
}

// Tick renders the line and writes it to the sink. A sink failure is fatal
// for the feeder, so it is returned wrapped in scheduler.Halt.
func (c *Compositor) Tick() error {
	line := c.RenderLine()
	if err := c.sink.WriteLine(line); err != nil {
		return scheduler.Halt(fmt.Errorf("write status line: %w", err))
	}
	n := c.ticks.Add(1)
	c.logger.Debug("status line written", "tick", n, "width", width(line))
	return nil
}

// Ticks returns how many lines have been written.
func (c *Compositor) Ticks() int64 { return c.ticks.Load() }

// Schedule enters one recurring event per periodic widget. Each event
// refreshes its widget and then writes a full line, so the line changes
// exactly when some widget's interval elapses. Static widgets are never
// scheduled.
func (c *Compositor) Schedule(s *scheduler.Scheduler) ([]scheduler.EventID, error) {
	var ids []scheduler.EventID
	for _, w := range c.Widgets() {
		if w.Interval() <= 0 {
			continue
		}
		w := w
		id, err := s.Every(w.Interval(), RefreshPriority, func() error {
			if r, ok := w.(widgets.Refresher); ok {
				r.Refresh()
			}
			return c.Tick()
		})
		if err != nil {
			for _, prev := range ids {
				s.Cancel(prev)
			}
			return nil, fmt.Errorf("schedule %s: %w", w.Name(), err)
		}
		ids = append(ids, id)
	}
	c.logger.Debug("widgets scheduled", "events", len(ids))
	return ids, nil
}

func flatten(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
