// Package load reports the system load average.
//
// Template placeholders: {load} (all three, space separated), {load1},
// {load5} and {load15}.
package load

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gopsload "github.com/shirou/gopsutil/v4/load"

	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
)

// DefaultTemplate shows all three averages.
const DefaultTemplate = "{load}"

// AvgFunc returns the 1, 5 and 15 minute load averages.
type AvgFunc func(ctx context.Context) (*gopsload.AvgStat, error)

// Load renders load averages from gopsutil.
type Load struct {
	template string
	avg      AvgFunc
}

// Option configures a Load.
type Option func(*Load)

// WithAvgFunc replaces the gopsutil call. Tests use it to pin values.
func WithAvgFunc(f AvgFunc) Option {
	return func(l *Load) { l.avg = f }
}

// New creates a load probe. An empty template uses DefaultTemplate.
func New(template string, opts ...Option) *Load {
	if template == "" {
		template = DefaultTemplate
	}
	l := &Load{template: template, avg: gopsload.AvgWithContext}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the probe identifier.
func (l *Load) Name() string { return "load" }

// Produce renders the current load averages.
func (l *Load) Produce(ctx context.Context) (string, error) {
	avg, err := l.avg(ctx)
	if err != nil {
		return "", fmt.Errorf("load: %w", err)
	}
	one, five, fifteen := format(avg.Load1), format(avg.Load5), format(avg.Load15)
	return collectors.Expand(l.template, map[string]string{
		"load":   strings.Join([]string{one, five, fifteen}, " "),
		"load1":  one,
		"load5":  five,
		"load15": fifteen,
	}), nil
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
