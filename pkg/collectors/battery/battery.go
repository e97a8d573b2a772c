// Package battery provides the battery probe. It reads the kernel's
// power-supply uevent file (/sys/class/power_supply/<name>/uevent) and
// renders one of three templates depending on whether the battery is idle,
// discharging or charging.
//
// Capacity units follow the kernel: CHARGE_* values are µAh, ENERGY_* values
// are µWh, CURRENT_NOW is µA and VOLTAGE_NOW is µV.
//
// Template placeholders:
//
//	{percentage}                         estimated capacity in percent
//	{hours} {minutes} {seconds}          time left to empty or full
//	{hour_et} {minute_et} {second_et}    clock time of empty or full
//
// The time placeholders are only filled while charging or discharging.
package battery

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"k8s.io/utils/clock"

	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
)

// DefaultRoot is the sysfs directory holding power supplies.
const DefaultRoot = "/sys/class/power_supply"

// Config controls the battery probe.
type Config struct {
	// Battery is the power-supply name (default "BAT0").
	Battery string

	// FullDesign computes percentages against the design capacity rather
	// than the last full charge. A worn battery then never reaches 100%.
	FullDesign bool

	// Template is used when the battery is neither charging nor
	// discharging.
	Template string

	// TemplateDischarging and TemplateCharging default to Template.
	TemplateDischarging string
	TemplateCharging    string
}

// DefaultConfig mirrors the stock layout.
func DefaultConfig() Config {
	return Config{
		Battery:             "BAT0",
		FullDesign:          true,
		Template:            "BAT: {percentage}%",
		TemplateDischarging: "DCH: {percentage}% [{hours}:{minutes}:{seconds}]",
		TemplateCharging:    "CHR: {percentage}% [{hour_et}:{minute_et}]",
	}
}

// Battery reads and renders battery state.
type Battery struct {
	cfg   Config
	fs    afero.Fs
	root  string
	clock clock.PassiveClock
}

// Option configures a Battery.
type Option func(*Battery)

// WithFs reads sysfs through fs. Tests pass an in-memory filesystem.
func WithFs(fs afero.Fs) Option {
	return func(b *Battery) { b.fs = fs }
}

// WithRoot overrides the power-supply directory.
func WithRoot(root string) Option {
	return func(b *Battery) { b.root = root }
}

// WithClock replaces the clock used for the empty/full estimate.
func WithClock(c clock.PassiveClock) Option {
	return func(b *Battery) { b.clock = c }
}

// New creates a battery probe. Empty fields in cfg fall back to
// DefaultConfig.
func New(cfg Config, opts ...Option) *Battery {
	def := DefaultConfig()
	if cfg.Battery == "" {
		cfg.Battery = def.Battery
	}
	if cfg.Template == "" {
		cfg.Template = def.Template
	}
	if cfg.TemplateDischarging == "" {
		cfg.TemplateDischarging = cfg.Template
	}
	if cfg.TemplateCharging == "" {
		cfg.TemplateCharging = cfg.Template
	}
	b := &Battery{
		cfg:   cfg,
		fs:    afero.NewOsFs(),
		root:  DefaultRoot,
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the probe identifier.
func (b *Battery) Name() string { return "battery" }

// Produce reads the uevent file and renders the matching template.
func (b *Battery) Produce(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(b.root, b.cfg.Battery, "uevent")
	data, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return "", fmt.Errorf("battery: %w", err)
	}
	u, err := parseUevent(string(data))
	if err != nil {
		return "", fmt.Errorf("battery: %s: %w", path, err)
	}
	return b.render(u)
}

func (b *Battery) render(u uevent) (string, error) {
	pct, err := u.percentage(b.cfg.FullDesign)
	if err != nil {
		return "", err
	}
	values := map[string]string{
		"percentage": strconv.FormatFloat(pct, 'f', -1, 64),
	}

	var tmpl string
	switch strings.ToLower(u.status) {
	case "discharging":
		tmpl = b.cfg.TemplateDischarging
	case "charging":
		tmpl = b.cfg.TemplateCharging
	default:
		return collectors.Expand(b.cfg.Template, values), nil
	}

	remaining, ok := u.remaining(b.cfg.FullDesign)
	if !ok {
		// No current draw reported yet; nothing to estimate from.
		return collectors.Expand(b.cfg.Template, values), nil
	}
	secs := int64(remaining / time.Second)
	values["hours"] = strconv.FormatInt(secs/3600, 10)
	values["minutes"] = fmt.Sprintf("%02d", secs%3600/60)
	values["seconds"] = fmt.Sprintf("%02d", secs%60)

	et := b.clock.Now().Add(remaining)
	values["hour_et"] = fmt.Sprintf("%02d", et.Hour())
	values["minute_et"] = fmt.Sprintf("%02d", et.Minute())
	values["second_et"] = fmt.Sprintf("%02d", et.Second())

	return collectors.Expand(tmpl, values), nil
}

// uevent holds the power-supply attributes the probe uses. Missing numeric
// attributes are zero.
type uevent struct {
	chargeFullDesign int64
	chargeFull       int64
	chargeNow        int64
	energyFullDesign int64
	energyFull       int64
	energyNow        int64
	currentNow       int64
	voltageNow       int64
	status           string
}

// numericFields maps uevent keys to the field they fill.
var numericFields = map[string]func(*uevent) *int64{
	"POWER_SUPPLY_CHARGE_FULL_DESIGN": func(u *uevent) *int64 { return &u.chargeFullDesign },
	"POWER_SUPPLY_CHARGE_FULL":        func(u *uevent) *int64 { return &u.chargeFull },
	"POWER_SUPPLY_CHARGE_NOW":         func(u *uevent) *int64 { return &u.chargeNow },
	"POWER_SUPPLY_ENERGY_FULL_DESIGN": func(u *uevent) *int64 { return &u.energyFullDesign },
	"POWER_SUPPLY_ENERGY_FULL":        func(u *uevent) *int64 { return &u.energyFull },
	"POWER_SUPPLY_ENERGY_NOW":         func(u *uevent) *int64 { return &u.energyNow },
	"POWER_SUPPLY_CURRENT_NOW":        func(u *uevent) *int64 { return &u.currentNow },
	"POWER_SUPPLY_VOLTAGE_NOW":        func(u *uevent) *int64 { return &u.voltageNow },
}

func parseUevent(s string) (uevent, error) {
	var u uevent
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		if key == "POWER_SUPPLY_STATUS" {
			u.status = value
			continue
		}
		field, ok := numericFields[key]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return uevent{}, fmt.Errorf("parse %s=%q: %w", key, value, err)
		}
		*field(&u) = n
	}
	if err := sc.Err(); err != nil {
		return uevent{}, err
	}
	if u.status == "" {
		return uevent{}, fmt.Errorf("no POWER_SUPPLY_STATUS")
	}
	return u, nil
}

// charged reports whether the supply reports CHARGE_* attributes. Otherwise
// the ENERGY_* attributes are used.
func (u uevent) charged() bool {
	return u.chargeFullDesign != 0 || u.chargeFull != 0
}

// now returns the present capacity in the unit chosen by charged.
func (u uevent) now() int64 {
	if u.charged() {
		return u.chargeNow
	}
	return u.energyNow
}

// full returns the reference capacity in the unit chosen by charged. When the
// preferred reference is missing the other one is used.
func (u uevent) full(fullDesign bool) int64 {
	design, last := u.energyFullDesign, u.energyFull
	if u.charged() {
		design, last = u.chargeFullDesign, u.chargeFull
	}
	if (fullDesign && design != 0) || last == 0 {
		return design
	}
	return last
}

// percentage is rounded to two decimals.
func (u uevent) percentage(fullDesign bool) (float64, error) {
	full := u.full(fullDesign)
	if full == 0 {
		return 0, fmt.Errorf("no full capacity reported")
	}
	pct := float64(u.now()) / float64(full) * 100
	return math.Round(pct*100) / 100, nil
}

// remaining estimates the time to empty (discharging) or to full
// (charging). Energy readings (µWh) are converted to charge (µAh) via
// VOLTAGE_NOW (µV). ok is false when the estimate cannot be made.
func (u uevent) remaining(fullDesign bool) (time.Duration, bool) {
	if u.currentNow <= 0 {
		return 0, false
	}
	now, full := float64(u.now()), float64(u.full(fullDesign))
	if !u.charged() {
		if u.voltageNow <= 0 {
			return 0, false
		}
		now = now / float64(u.voltageNow) * 1e6
		full = full / float64(u.voltageNow) * 1e6
	}

	var hours float64
	switch strings.ToLower(u.status) {
	case "discharging":
		hours = now / float64(u.currentNow)
	case "charging":
		hours = (full - now) / float64(u.currentNow)
	default:
		return 0, false
	}
	if hours < 0 {
		hours = 0
	}
	return time.Duration(hours * float64(time.Hour)), true
}
