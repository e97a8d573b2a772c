// Package daemon wires a configuration into a running feeder: widgets are
// built from the config, refreshed by the scheduler, composed into a line
// and written to the sink. It also handles reload and health snapshots.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/sys/unix"
	"k8s.io/utils/clock"

	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
	"gitlab.com/tinyland/lab/statusfeed/pkg/compositor"
	"gitlab.com/tinyland/lab/statusfeed/pkg/config"
	"gitlab.com/tinyland/lab/statusfeed/pkg/scheduler"
	"gitlab.com/tinyland/lab/statusfeed/pkg/sink"
	"gitlab.com/tinyland/lab/statusfeed/pkg/widgets"
)

// HealthPriority orders health snapshots after widget refreshes that are
// due at the same instant.
const HealthPriority = 2

// Option configures a Daemon.
type Option func(*Daemon)

// WithClock replaces the real clock for the scheduler, caches and probes.
func WithClock(c clock.Clock) Option {
	return func(d *Daemon) { d.env.Clock = c }
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(d *Daemon) {
		if l != nil {
			d.env.Logger = l
		}
	}
}

// WithEnv replaces the probe environment. Unset fields keep their real
// implementations.
func WithEnv(env Env) Option {
	return func(d *Daemon) {
		clk, logger := d.env.Clock, d.env.Logger
		d.env = env
		if d.env.Clock == nil {
			d.env.Clock = clk
		}
		if d.env.Logger == nil {
			d.env.Logger = logger
		}
	}
}

// Daemon is a running statusfeed instance.
type Daemon struct {
	env    Env
	logger *slog.Logger
	sink   sink.Sink
	sched  *scheduler.Scheduler
	comp   *compositor.Compositor

	startedAt time.Time

	mu       sync.Mutex
	cfg      *config.Config
	registry *collectors.Registry
	events   []scheduler.EventID
}

// New builds the widgets for cfg and prepares them to write to s. Nothing
// runs until Run.
func New(cfg *config.Config, s sink.Sink, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Daemon{sink: s}
	for _, opt := range opts {
		opt(d)
	}
	d.env.fill()
	d.logger = d.env.Logger
	d.startedAt = d.env.Clock.Now()

	if d.env.Styler == nil {
		d.env.Styler = stylerFor(cfg.Output.Markup, s)
	}

	ws, reg, err := BuildWidgets(cfg, d.env)
	if err != nil {
		return nil, err
	}
	d.cfg, d.registry = cloneConfig(cfg), reg
	d.sched = scheduler.New(scheduler.WithClock(d.env.Clock), scheduler.WithLogger(d.logger))
	d.comp = compositor.New(s, ws,
		compositor.WithMaxWidth(maxWidth(cfg.Output.MaxWidth, s)),
		compositor.WithEllipsis(cfg.Output.Ellipsis),
		compositor.WithLogger(d.logger),
	)
	return d, nil
}

// Scheduler exposes the event queue, mainly for tests that drive it with
// RunDue.
func (d *Daemon) Scheduler() *scheduler.Scheduler { return d.sched }

// Compositor exposes the line builder.
func (d *Daemon) Compositor() *compositor.Compositor { return d.comp }

// Once writes a single line and returns.
func (d *Daemon) Once() error {
	return d.comp.Tick()
}

// Start writes the first line immediately and enters the recurring events.
// Run calls it; tests call it before driving the scheduler by hand.
func (d *Daemon) Start() error {
	if err := d.comp.Tick(); err != nil {
		return err
	}
	ids, err := d.comp.Schedule(d.sched)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.events = ids
	health := d.cfg.Output.HealthFile
	interval := d.cfg.Output.HealthInterval.Duration
	d.mu.Unlock()

	if health != "" {
		if _, err := d.sched.Every(interval, HealthPriority, d.writeHealth); err != nil {
			return fmt.Errorf("health file: %w", err)
		}
	}
	d.logger.Info("statusfeed started", "widgets", len(d.comp.Widgets()), "events", len(ids))
	return nil
}

// Run starts the feeder and blocks until ctx is cancelled or the sink fails.
// A sink failure is returned; cancellation returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	err := d.Start()
	if err == nil {
		err = d.sched.Run(ctx)
	}
	if d.cfg.Output.HealthFile != "" {
		_ = d.writeHealth()
	}
	var halt *scheduler.HaltError
	if errors.As(err, &halt) {
		return halt.Err
	}
	return err
}

// Reload swaps in the widgets of a new configuration. Output settings are
// fixed for the lifetime of the daemon; only the widget list changes.
func (d *Daemon) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ws, reg, err := BuildWidgets(cfg, d.env)
	if err != nil {
		return err
	}

	d.mu.Lock()
	for _, id := range d.events {
		d.sched.Cancel(id)
	}
	d.comp.SetWidgets(ws)
	ids, err := d.comp.Schedule(d.sched)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.events = ids
	d.registry = reg
	d.cfg.Widgets = append([]config.WidgetConfig(nil), cfg.Widgets...)
	d.mu.Unlock()

	d.logger.Info("configuration reloaded", "widgets", len(ws), "events", len(ids))
	// The scheduler stops on a failed write; no need to act on it here.
	_ = d.comp.Tick()
	return nil
}

// WatchReload reloads the configuration from path on SIGHUP and, when watch
// is set, whenever the file changes. It returns when ctx is done. Reload
// errors are logged and the old widgets keep running.
func (d *Daemon) WatchReload(ctx context.Context, path string, watch bool) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, unix.SIGHUP)
	defer signal.Stop(hup)

	var changes <-chan struct{}
	if watch && path != "" {
		c, err := config.Watch(ctx, path, config.DefaultDebounce, d.logger)
		if err != nil {
			return err
		}
		changes = c
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			d.logger.Info("SIGHUP received, reloading", "path", path)
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			d.logger.Info("config file changed, reloading", "path", path)
		}
		if err := d.reloadFrom(path); err != nil {
			d.logger.Error("reload failed", "error", err)
		}
	}
}

func (d *Daemon) reloadFrom(path string) error {
	var cfg *config.Config
	var err error
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFromFile(path)
	}
	if err != nil {
		return err
	}
	return d.Reload(cfg)
}

// Health returns a snapshot of the feeder's state.
func (d *Daemon) Health() *HealthStatus {
	d.mu.Lock()
	reg, path := d.registry, d.cfg.Path
	d.mu.Unlock()
	return &HealthStatus{
		PID:        os.Getpid(),
		StartedAt:  d.startedAt,
		UpdatedAt:  d.env.Clock.Now(),
		ConfigPath: path,
		Lines:      d.comp.Ticks(),
		Scheduler:  d.sched.Stats(),
		Widgets:    reg.AllStatus(),
	}
}

func (d *Daemon) writeHealth() error {
	d.mu.Lock()
	path := d.cfg.Output.HealthFile
	d.mu.Unlock()
	return WriteHealthFile(path, d.Health())
}

// cloneConfig copies cfg so reloads never write to the caller's value.
func cloneConfig(cfg *config.Config) *config.Config {
	c := *cfg
	c.Widgets = append([]config.WidgetConfig(nil), cfg.Widgets...)
	return &c
}

// stylerFor resolves the markup mode into a style decorator.
func stylerFor(markup string, s sink.Sink) func(widgets.Style) widgets.Styler {
	if markup == config.MarkupAuto {
		markup = config.MarkupNone
		if w, ok := s.(*sink.Writer); ok && w.IsTerminal() {
			markup = config.MarkupANSI
		}
	}
	switch markup {
	case config.MarkupANSI:
		profile := termenv.EnvColorProfile()
		if profile == termenv.Ascii {
			profile = termenv.ANSI256
		}
		return func(st widgets.Style) widgets.Styler {
			return widgets.NewANSI(st, io.Discard, profile)
		}
	case config.MarkupDzen:
		return func(st widgets.Style) widgets.Styler {
			return widgets.NewDzen(st)
		}
	}
	return nil
}

// maxWidth resolves -1 to the terminal width of a writer sink.
func maxWidth(configured int, s sink.Sink) int {
	if configured >= 0 {
		return configured
	}
	if w, ok := s.(*sink.Writer); ok {
		return w.Width()
	}
	return 0
}
