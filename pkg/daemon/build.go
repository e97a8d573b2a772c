package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"k8s.io/utils/clock"

	"gitlab.com/tinyland/lab/statusfeed/pkg/cache"
	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors/battery"
	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors/command"
	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors/datetime"
	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors/load"
	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors/mpd"
	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors/volume"
	"gitlab.com/tinyland/lab/statusfeed/pkg/config"
	"gitlab.com/tinyland/lab/statusfeed/pkg/widgets"
)

// Env is what widget construction draws on besides the configuration.
// Zero fields are filled with the real implementations.
type Env struct {
	Clock  clock.Clock
	Logger *slog.Logger
	Runner collectors.Runner
	Fs     afero.Fs
	System *sysmetrics.Source

	// Styler turns a widget style into a decorator. Nil disables styling.
	Styler func(widgets.Style) widgets.Styler
}

func (e *Env) fill() {
	if e.Clock == nil {
		e.Clock = clock.RealClock{}
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}
	if e.Runner == nil {
		e.Runner = collectors.ExecRunner
	}
	if e.Fs == nil {
		e.Fs = afero.NewOsFs()
	}
	if e.System == nil {
		src := sysmetrics.Host()
		e.System = &src
	}
}

// BuildWidgets turns the configured widget list into widgets, registering
// every probe in a fresh registry. Each periodic widget caches its probe for
// its own interval.
func BuildWidgets(cfg *config.Config, env Env) ([]widgets.Widget, *collectors.Registry, error) {
	env.fill()
	reg := collectors.NewRegistryWithClock(env.Clock)
	out := make([]widgets.Widget, 0, len(cfg.Widgets))

	for i, wc := range cfg.Widgets {
		id := wc.ID(i)

		var w widgets.Widget
		if wc.Type == config.TypeStatic {
			text := wc.Text
			if text == "" {
				text = wc.Template
			}
			w = widgets.NewStatic(text)
		} else {
			p, err := newProducer(wc, env)
			if err != nil {
				return nil, nil, fmt.Errorf("widget %s: %w", id, err)
			}
			if err := reg.Register(id, p); err != nil {
				return nil, nil, err
			}
			w = widgets.NewPeriodic(id, wc.Interval.Duration,
				reg.Bind(id, probeTimeout(cfg, wc)),
				cache.WithClock(env.Clock),
				cache.WithSentinel(cfg.Output.Sentinel),
				cache.WithLogger(env.Logger),
			)
		}

		style := widgets.Style{
			Foreground: wc.Style.Foreground,
			Background: wc.Style.Background,
			Bold:       wc.Style.Bold,
		}
		if env.Styler != nil && !style.IsZero() {
			w = widgets.WithStyler(w, env.Styler(style))
		}
		out = append(out, w)
	}
	return out, reg, nil
}

// probeTimeout keeps a probe from outliving its own interval.
func probeTimeout(cfg *config.Config, wc config.WidgetConfig) time.Duration {
	timeout := cfg.Output.ProbeTimeout.Duration
	if timeout <= 0 {
		timeout = collectors.DefaultTimeout
	}
	if wc.Interval.Duration > 0 && wc.Interval.Duration < timeout {
		timeout = wc.Interval.Duration
	}
	return timeout
}

func newProducer(wc config.WidgetConfig, env Env) (collectors.Producer, error) {
	switch wc.Type {
	case config.TypeClock:
		opts := []datetime.Option{datetime.WithClock(env.Clock)}
		if wc.Timezone != "" {
			loc, err := time.LoadLocation(wc.Timezone)
			if err != nil {
				return nil, err
			}
			opts = append(opts, datetime.WithLocation(loc))
		}
		return datetime.New(wc.Template, opts...), nil

	case config.TypeBattery:
		fullDesign := true
		if wc.FullDesign != nil {
			fullDesign = *wc.FullDesign
		}
		return battery.New(battery.Config{
			Battery:             wc.Battery,
			FullDesign:          fullDesign,
			Template:            wc.Template,
			TemplateDischarging: wc.TemplateDischarging,
			TemplateCharging:    wc.TemplateCharging,
		}, battery.WithFs(env.Fs), battery.WithClock(env.Clock)), nil

	case config.TypeVolume:
		return volume.New(volume.Config{
			Template:      wc.Template,
			TemplateMuted: wc.TemplateMuted,
			Mixer:         wc.Mixer,
			Card:          wc.Card,
			Device:        wc.Device,
		}, volume.WithRunner(env.Runner)), nil

	case config.TypeLoad:
		return load.New(wc.Template), nil

	case config.TypeMPD:
		return mpd.New(mpd.Config{
			Template:        wc.Template,
			TemplateStopped: wc.TemplateStopped,
			Host:            wc.Host,
		}, mpd.WithRunner(env.Runner)), nil

	case config.TypeMemory:
		return sysmetrics.NewMemory(wc.Template, *env.System), nil
	case config.TypeCPU:
		return sysmetrics.NewCPU(wc.Template, *env.System), nil
	case config.TypeUptime:
		return sysmetrics.NewUptime(wc.Template, *env.System), nil
	case config.TypeDisk:
		return sysmetrics.NewDisk(wc.Template, wc.Mount, *env.System), nil

	case config.TypeCommand:
		return command.New(wc.Command,
			command.WithTemplate(wc.Template),
			command.WithRunner(env.Runner),
		), nil
	}
	return nil, fmt.Errorf("unknown widget type %q", wc.Type)
}
