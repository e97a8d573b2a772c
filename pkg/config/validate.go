package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ErrNoWidgets is returned by Validate when the widget list is empty.
var ErrNoWidgets = errors.New("no widgets configured")

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if len(c.Widgets) == 0 {
		result = multierror.Append(result, ErrNoWidgets)
	}

	switch c.Output.Markup {
	case MarkupAuto, MarkupNone, MarkupANSI, MarkupDzen:
	default:
		result = multierror.Append(result, fmt.Errorf("output.markup: unknown mode %q", c.Output.Markup))
	}
	if c.Output.MaxWidth < -1 {
		result = multierror.Append(result, fmt.Errorf("output.max_width: %d is below -1", c.Output.MaxWidth))
	}
	if len(c.Output.Command.Argv) > 0 && strings.TrimSpace(c.Output.Command.Argv[0]) == "" {
		result = multierror.Append(result, errors.New("output.command: empty program name"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log.level: %w", err))
	}

	seen := make(map[string]int)
	for i, w := range c.Widgets {
		id := w.ID(i)
		if prev, dup := seen[id]; dup && w.Name != "" {
			result = multierror.Append(result, fmt.Errorf("widget %d: name %q already used by widget %d", i, id, prev))
		}
		seen[id] = i

		for _, err := range w.validate() {
			result = multierror.Append(result, fmt.Errorf("widget %d (%s): %w", i, id, err))
		}
	}

	return result.ErrorOrNil()
}

func (w WidgetConfig) validate() []error {
	var errs []error
	if _, ok := DefaultInterval(w.Type); !ok {
		return []error{fmt.Errorf("unknown type %q", w.Type)}
	}
	switch w.Type {
	case TypeStatic:
		if w.Interval.Duration != 0 {
			errs = append(errs, errors.New("static widgets take no interval"))
		}
	default:
		if w.Interval.Duration <= 0 {
			errs = append(errs, errors.New("interval must be positive"))
		}
	}
	switch w.Type {
	case TypeCommand:
		if strings.TrimSpace(w.Command) == "" {
			errs = append(errs, errors.New("command is required"))
		}
	case TypeClock:
		if w.Timezone != "" {
			if _, err := time.LoadLocation(w.Timezone); err != nil {
				errs = append(errs, fmt.Errorf("timezone: %w", err))
			}
		}
	}
	return errs
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}
