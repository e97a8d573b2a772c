package battery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

var noon = time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

func ueventFile(lines ...string) string {
	return strings.Join(append([]string{"POWER_SUPPLY_NAME=BAT0", "POWER_SUPPLY_PRESENT=1"}, lines...), "\n") + "\n"
}

func newTestBattery(t *testing.T, cfg Config, contents string) *Battery {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/sys/class/power_supply/BAT0/uevent", []byte(contents), 0o644))
	return New(cfg, WithFs(fs), WithClock(testingclock.NewFakePassiveClock(noon)))
}

// --- Rendering ---

func TestIdleUsesBaseTemplate(t *testing.T) {
	b := newTestBattery(t, DefaultConfig(), ueventFile(
		"POWER_SUPPLY_STATUS=Full",
		"POWER_SUPPLY_CHARGE_FULL_DESIGN=5000000",
		"POWER_SUPPLY_CHARGE_NOW=2500000",
	))

	got, err := b.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BAT: 50%", got)
}

func TestDischargingShowsTimeLeft(t *testing.T) {
	b := newTestBattery(t, DefaultConfig(), ueventFile(
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_CHARGE_FULL_DESIGN=5000000",
		"POWER_SUPPLY_CHARGE_NOW=2500000",
		"POWER_SUPPLY_CURRENT_NOW=1000000",
	))

	got, err := b.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DCH: 50% [2:30:00]", got)
}

func TestChargingShowsEstimatedTime(t *testing.T) {
	b := newTestBattery(t, DefaultConfig(), ueventFile(
		"POWER_SUPPLY_STATUS=Charging",
		"POWER_SUPPLY_CHARGE_FULL_DESIGN=5000000",
		"POWER_SUPPLY_CHARGE_NOW=2500000",
		"POWER_SUPPLY_CURRENT_NOW=2000000",
	))

	got, err := b.Produce(context.Background())
	require.NoError(t, err)
	// 2.5 Ah to go at 2 A is 1h15m.
	assert.Equal(t, "CHR: 50% [13:15]", got)
}

func TestEnergyUnitsConvertedViaVoltage(t *testing.T) {
	b := newTestBattery(t, DefaultConfig(), ueventFile(
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_ENERGY_FULL_DESIGN=40000000",
		"POWER_SUPPLY_ENERGY_NOW=10000000",
		"POWER_SUPPLY_VOLTAGE_NOW=10000000",
		"POWER_SUPPLY_CURRENT_NOW=500000",
	))

	got, err := b.Produce(context.Background())
	require.NoError(t, err)
	// 10 Wh at 10 V is 1 Ah; at 0.5 A that lasts two hours.
	assert.Equal(t, "DCH: 25% [2:00:00]", got)
}

func TestLastFullChargeReference(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FullDesign = false
	b := newTestBattery(t, cfg, ueventFile(
		"POWER_SUPPLY_STATUS=Full",
		"POWER_SUPPLY_CHARGE_FULL_DESIGN=5000000",
		"POWER_SUPPLY_CHARGE_FULL=4000000",
		"POWER_SUPPLY_CHARGE_NOW=4000000",
	))

	got, err := b.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BAT: 100%", got)
}

func TestPercentageRoundedToTwoDecimals(t *testing.T) {
	b := newTestBattery(t, Config{Template: "{percentage}"}, ueventFile(
		"POWER_SUPPLY_STATUS=Unknown",
		"POWER_SUPPLY_CHARGE_FULL_DESIGN=3000000",
		"POWER_SUPPLY_CHARGE_NOW=1000000",
	))

	got, err := b.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "33.33", got)
}

func TestZeroCurrentFallsBackToBaseTemplate(t *testing.T) {
	b := newTestBattery(t, DefaultConfig(), ueventFile(
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_CHARGE_FULL_DESIGN=5000000",
		"POWER_SUPPLY_CHARGE_NOW=5000000",
		"POWER_SUPPLY_CURRENT_NOW=0",
	))

	got, err := b.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BAT: 100%", got)
}

func TestStateTemplatesDefaultToBase(t *testing.T) {
	b := newTestBattery(t, Config{Template: "B {percentage}"}, ueventFile(
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_CHARGE_FULL_DESIGN=100",
		"POWER_SUPPLY_CHARGE_NOW=50",
		"POWER_SUPPLY_CURRENT_NOW=10",
	))

	got, err := b.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "B 50", got)
}

// --- Failures ---

func TestMissingBattery(t *testing.T) {
	b := New(Config{Battery: "BAT9"}, WithFs(afero.NewMemMapFs()))
	_, err := b.Produce(context.Background())
	assert.Error(t, err)
}

func TestMalformedValue(t *testing.T) {
	b := newTestBattery(t, DefaultConfig(), ueventFile(
		"POWER_SUPPLY_STATUS=Full",
		"POWER_SUPPLY_CHARGE_NOW=lots",
	))
	_, err := b.Produce(context.Background())
	assert.ErrorContains(t, err, "POWER_SUPPLY_CHARGE_NOW")
}

func TestMissingStatus(t *testing.T) {
	b := newTestBattery(t, DefaultConfig(), "POWER_SUPPLY_CHARGE_NOW=1\n")
	_, err := b.Produce(context.Background())
	assert.Error(t, err)
}

func TestNoFullCapacity(t *testing.T) {
	b := newTestBattery(t, DefaultConfig(), ueventFile("POWER_SUPPLY_STATUS=Full"))
	_, err := b.Produce(context.Background())
	assert.Error(t, err)
}

func TestCustomRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/ps/BAT1/uevent", []byte(ueventFile(
		"POWER_SUPPLY_STATUS=Full",
		"POWER_SUPPLY_CHARGE_FULL_DESIGN=10",
		"POWER_SUPPLY_CHARGE_NOW=10",
	)), 0o644))

	b := New(Config{Battery: "BAT1"}, WithFs(fs), WithRoot("/tmp/ps"))
	got, err := b.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BAT: 100%", got)
}
