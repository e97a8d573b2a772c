package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Widget types.
const (
	TypeStatic  = "static"
	TypeClock   = "clock"
	TypeBattery = "battery"
	TypeVolume  = "volume"
	TypeLoad    = "load"
	TypeMPD     = "mpd"
	TypeMemory  = "memory"
	TypeCPU     = "cpu"
	TypeUptime  = "uptime"
	TypeDisk    = "disk"
	TypeCommand = "command"
)

// Markup modes for widget styles.
const (
	MarkupAuto = "auto" // ansi on a terminal, none otherwise
	MarkupNone = "none"
	MarkupANSI = "ansi"
	MarkupDzen = "dzen"
)

// defaultIntervals are the refresh periods used when a widget sets none.
var defaultIntervals = map[string]time.Duration{
	TypeStatic:  0,
	TypeClock:   60 * time.Second,
	TypeBattery: 43 * time.Second,
	TypeVolume:  55 * time.Second,
	TypeLoad:    5 * time.Minute,
	TypeMPD:     30 * time.Second,
	TypeMemory:  5 * time.Second,
	TypeCPU:     2 * time.Second,
	TypeUptime:  60 * time.Second,
	TypeDisk:    5 * time.Minute,
	TypeCommand: 10 * time.Second,
}

// DefaultInterval returns the refresh period for a widget type, and false for
// unknown types.
func DefaultInterval(typ string) (time.Duration, bool) {
	d, ok := defaultIntervals[typ]
	return d, ok
}

// Config is the top-level statusfeed configuration.
type Config struct {
	Output  OutputConfig   `toml:"output" yaml:"output"`
	Log     LogConfig      `toml:"log" yaml:"log"`
	Widgets []WidgetConfig `toml:"widget" yaml:"widget"`

	// Path is the file the configuration was read from, empty for
	// built-in defaults.
	Path string `toml:"-" yaml:"-"`
}

// OutputConfig controls where and how lines are written.
type OutputConfig struct {
	// Command is the display process fed on stdin. Empty means stdout.
	Command CommandSpec `toml:"command" yaml:"command"`

	// MaxWidth truncates lines to this many cells. 0 disables truncation,
	// -1 uses the terminal width when writing to a terminal.
	MaxWidth int    `toml:"max_width" yaml:"max_width"`
	Ellipsis string `toml:"ellipsis" yaml:"ellipsis"`

	// Markup selects how widget styles are rendered: auto, none, ansi, dzen.
	Markup string `toml:"markup" yaml:"markup"`

	// Sentinel replaces the text of a widget whose probe failed.
	Sentinel string `toml:"sentinel" yaml:"sentinel"`

	// ProbeTimeout bounds a single probe run.
	ProbeTimeout Duration `toml:"probe_timeout" yaml:"probe_timeout"`

	// HealthFile, when set, receives a JSON status snapshot.
	HealthFile     string   `toml:"health_file" yaml:"health_file"`
	HealthInterval Duration `toml:"health_interval" yaml:"health_interval"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

// StyleConfig is optional widget decoration.
type StyleConfig struct {
	Foreground string `toml:"fg" yaml:"fg"`
	Background string `toml:"bg" yaml:"bg"`
	Bold       bool   `toml:"bold" yaml:"bold"`
}

// WidgetConfig describes one widget. Which fields apply depends on Type.
type WidgetConfig struct {
	Type     string   `toml:"type" yaml:"type"`
	Name     string   `toml:"name" yaml:"name"`
	Interval Duration `toml:"interval" yaml:"interval"`
	Template string   `toml:"template" yaml:"template"`

	// static
	Text string `toml:"text" yaml:"text"`

	// clock
	Timezone string `toml:"timezone" yaml:"timezone"`

	// battery
	Battery             string `toml:"battery" yaml:"battery"`
	FullDesign          *bool  `toml:"full_design" yaml:"full_design"`
	TemplateDischarging string `toml:"template_discharging" yaml:"template_discharging"`
	TemplateCharging    string `toml:"template_charging" yaml:"template_charging"`

	// volume
	TemplateMuted string `toml:"template_muted" yaml:"template_muted"`
	Mixer         string `toml:"mixer" yaml:"mixer"`
	Card          string `toml:"card" yaml:"card"`
	Device        string `toml:"device" yaml:"device"`

	// mpd
	TemplateStopped string `toml:"template_stopped" yaml:"template_stopped"`
	Host            string `toml:"host" yaml:"host"`

	// disk
	Mount string `toml:"mount" yaml:"mount"`

	// command
	Command string `toml:"command" yaml:"command"`

	Style StyleConfig `toml:"style" yaml:"style"`
}

// ID returns the widget's name, or "type#index" when none is set.
func (w WidgetConfig) ID(index int) string {
	if w.Name != "" {
		return w.Name
	}
	return fmt.Sprintf("%s#%d", w.Type, index)
}

// CommandSpec is a display command given either as a string, run through
// the shell, or as an argument list, executed directly.
type CommandSpec struct {
	Shell string
	Argv  []string
}

// IsZero reports whether no command is configured.
func (c CommandSpec) IsZero() bool {
	return c.Shell == "" && len(c.Argv) == 0
}

// String renders the command for logs.
func (c CommandSpec) String() string {
	if c.Shell != "" {
		return c.Shell
	}
	return fmt.Sprint(c.Argv)
}

// UnmarshalTOML accepts a string or an array of strings.
func (c *CommandSpec) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case string:
		*c = CommandSpec{Shell: v}
	case []any:
		argv := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("command: argument %v is not a string", item)
			}
			argv = append(argv, s)
		}
		*c = CommandSpec{Argv: argv}
	default:
		return fmt.Errorf("command: expected string or array, got %T", v)
	}
	return nil
}

// UnmarshalYAML accepts a string or a sequence of strings.
func (c *CommandSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*c = CommandSpec{Shell: node.Value}
		return nil
	case yaml.SequenceNode:
		var argv []string
		if err := node.Decode(&argv); err != nil {
			return fmt.Errorf("command: %w", err)
		}
		*c = CommandSpec{Argv: argv}
		return nil
	}
	return fmt.Errorf("line %d: command must be a string or a list", node.Line)
}
