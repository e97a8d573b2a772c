// Package volume reports the ALSA mixer level by parsing `amixer get`.
//
// Template placeholders: {volume} (e.g. "55%") and {state} ("on" or "off").
package volume

import (
	"context"
	"fmt"
	"regexp"

	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
)

var (
	rxVolume = regexp.MustCompile(`(\d{1,3}%)`)
	rxMuted  = regexp.MustCompile(`\[off\]`)
)

// Config controls the volume probe.
type Config struct {
	Template      string
	TemplateMuted string // defaults to Template
	Mixer         string // default "Master"
	Card          string // default "0"
	Device        string // default "default"
}

// Volume shells out to amixer.
type Volume struct {
	cfg Config
	run collectors.Runner
}

// Option configures a Volume.
type Option func(*Volume)

// WithRunner replaces the subprocess runner.
func WithRunner(r collectors.Runner) Option {
	return func(v *Volume) { v.run = r }
}

// New creates a volume probe with defaults filled in.
func New(cfg Config, opts ...Option) *Volume {
	if cfg.Template == "" {
		cfg.Template = "Vol: {volume}"
	}
	if cfg.TemplateMuted == "" {
		cfg.TemplateMuted = cfg.Template
	}
	if cfg.Mixer == "" {
		cfg.Mixer = "Master"
	}
	if cfg.Card == "" {
		cfg.Card = "0"
	}
	if cfg.Device == "" {
		cfg.Device = "default"
	}
	v := &Volume{cfg: cfg, run: collectors.ExecRunner}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Name returns the probe identifier.
func (v *Volume) Name() string { return "volume" }

// Args returns the amixer argument list.
func (v *Volume) Args() []string {
	return []string{"-c", v.cfg.Card, "-D", v.cfg.Device, "get", v.cfg.Mixer}
}

// Produce runs amixer and renders the first volume it reports.
func (v *Volume) Produce(ctx context.Context) (string, error) {
	out, err := v.run(ctx, "amixer", v.Args()...)
	if err != nil {
		return "", fmt.Errorf("volume: %w", err)
	}
	level := rxVolume.Find(out)
	if level == nil {
		return "", fmt.Errorf("volume: no level in amixer output for %q", v.cfg.Mixer)
	}
	if rxMuted.Match(out) {
		return collectors.Expand(v.cfg.TemplateMuted, map[string]string{
			"volume": string(level), "state": "off",
		}), nil
	}
	return collectors.Expand(v.cfg.Template, map[string]string{
		"volume": string(level), "state": "on",
	}), nil
}
