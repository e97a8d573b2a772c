package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatForPath picks the syntax from the file extension. Anything that is
// not .yaml or .yml is TOML.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatTOML
}

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/statusfeed/config.{toml,yaml,yml}
//  2. ~/.config/statusfeed/config.{toml,yaml,yml}
//
// If no file exists, returns DefaultConfig().
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path. Unlike Load,
// a missing file is an error.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// LoadFromReader decodes configuration over the defaults. When the input
// has no widget list at all, the default widgets are kept; an explicitly
// empty list stays empty and fails validation.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Widgets = nil

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		md, err := toml.NewDecoder(r).Decode(cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys: %v", undecoded)
		}
	}

	if cfg.Widgets == nil {
		cfg.Widgets = DefaultWidgets()
	}
	applyEnvOverrides(cfg)
	cfg.applyDefaults()
	return cfg, nil
}

// DefaultConfig returns the built-in configuration: the classic
// load, battery, volume and clock bar written to stdout.
func DefaultConfig() *Config {
	cfg := &Config{
		Output: OutputConfig{
			Markup:         MarkupAuto,
			Sentinel:       "ERROR",
			ProbeTimeout:   Duration{5 * time.Second},
			HealthInterval: Duration{30 * time.Second},
		},
		Log: LogConfig{
			Level: "info",
		},
		Widgets: DefaultWidgets(),
	}
	cfg.applyDefaults()
	return cfg
}

// DefaultWidgets is the stock widget layout.
func DefaultWidgets() []WidgetConfig {
	sep := WidgetConfig{Type: TypeStatic, Text: " << "}
	return []WidgetConfig{
		{Type: TypeLoad, Name: "load", Template: "Load: {load5} {load15}"},
		sep,
		{
			Type:                TypeBattery,
			Name:                "battery",
			Template:            "BAT: {percentage}%",
			TemplateDischarging: "DCH: {percentage}% [{hours}:{minutes}:{seconds}]",
			TemplateCharging:    "CHR: {percentage}% [{hour_et}:{minute_et}]",
		},
		sep,
		{Type: TypeVolume, Name: "volume", Template: "Vol: {volume} [{state}]", TemplateMuted: "Vol: muted"},
		sep,
		{Type: TypeClock, Name: "clock", Template: "%a, %d %b %Y, %H:%M"},
	}
}

// applyDefaults fills per-widget intervals and output settings left empty.
func (c *Config) applyDefaults() {
	if c.Output.Markup == "" {
		c.Output.Markup = MarkupAuto
	}
	if c.Output.Sentinel == "" {
		c.Output.Sentinel = "ERROR"
	}
	if c.Output.ProbeTimeout.Duration == 0 {
		c.Output.ProbeTimeout = Duration{5 * time.Second}
	}
	if c.Output.HealthInterval.Duration == 0 {
		c.Output.HealthInterval = Duration{30 * time.Second}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	for i := range c.Widgets {
		w := &c.Widgets[i]
		w.Type = strings.ToLower(strings.TrimSpace(w.Type))
		if w.Interval.Duration == 0 {
			if d, ok := DefaultInterval(w.Type); ok {
				w.Interval = Duration{d}
			}
		}
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STATUSFEED_OUTPUT"); v != "" {
		if v == "-" || v == "stdout" {
			cfg.Output.Command = CommandSpec{}
		} else {
			cfg.Output.Command = CommandSpec{Shell: v}
		}
	}
	if v := os.Getenv("STATUSFEED_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// SearchPaths returns the ordered list of config file paths Load tries.
func SearchPaths() []string {
	return configSearchPaths()
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	dirs := []string{filepath.Join(xdgConfigHome(home), "statusfeed")}

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultDir := filepath.Join(home, ".config", "statusfeed")
	if dirs[0] != defaultDir {
		dirs = append(dirs, defaultDir)
	}

	var paths []string
	for _, d := range dirs {
		for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
			paths = append(paths, filepath.Join(d, name))
		}
	}
	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}
