// Package mpd reports the current MPD song by running mpc.
//
// mpc is asked for every tag in one line, separated by "<>". When nothing is
// playing mpc prints only its status line, and TemplateStopped is used.
//
// Template placeholders use mpc's own names: %artist% %album%
// %albumartist% %composer% %title% %track% %time% %file% %position%.
package mpd

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
)

const separator = "<>"

// Tags lists the mpc format fields, in the order they are requested.
var Tags = []string{
	"artist", "album", "albumartist", "composer", "title",
	"track", "time", "file", "position",
}

// Config controls the mpd probe.
type Config struct {
	Template        string
	TemplateStopped string
	// Host is passed to mpc as --host when set.
	Host string
}

// MPD shells out to mpc.
type MPD struct {
	cfg Config
	run collectors.Runner
}

// Option configures an MPD.
type Option func(*MPD)

// WithRunner replaces the subprocess runner.
func WithRunner(r collectors.Runner) Option {
	return func(m *MPD) { m.run = r }
}

// New creates an mpd probe with defaults filled in.
func New(cfg Config, opts ...Option) *MPD {
	if cfg.Template == "" {
		cfg.Template = "%artist% - %title%"
	}
	m := &MPD{cfg: cfg, run: collectors.ExecRunner}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the probe identifier.
func (m *MPD) Name() string { return "mpd" }

// Args returns the mpc argument list.
func (m *MPD) Args() []string {
	var args []string
	if m.cfg.Host != "" {
		args = append(args, "--host", m.cfg.Host)
	}
	format := make([]string, len(Tags))
	for i, tag := range Tags {
		format[i] = "%" + tag + "%"
	}
	return append(args, "--format", strings.Join(format, separator)+separator)
}

// Produce runs mpc and renders the playing or stopped template.
func (m *MPD) Produce(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "mpc", m.Args()...)
	if err != nil {
		return "", fmt.Errorf("mpd: %w", err)
	}
	tags, playing := Parse(string(out))
	if !playing {
		return m.cfg.TemplateStopped, nil
	}
	pairs := make([]string, 0, len(Tags)*2)
	for _, tag := range Tags {
		pairs = append(pairs, "%"+tag+"%", tags[tag])
	}
	return strings.NewReplacer(pairs...).Replace(m.cfg.Template), nil
}

// Parse splits mpc output into tag values. playing is false when mpc printed
// a single line, which is what it does when stopped.
func Parse(out string) (tags map[string]string, playing bool) {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) <= 1 {
		return nil, false
	}
	fields := strings.Split(lines[0], separator)
	tags = make(map[string]string, len(Tags))
	for i, tag := range Tags {
		if i < len(fields) {
			tags[tag] = fields[i]
		}
	}
	return tags, true
}
