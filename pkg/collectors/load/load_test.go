package load

import (
	"context"
	"errors"
	"testing"

	gopsload "github.com/shirou/gopsutil/v4/load"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(l1, l5, l15 float64) Option {
	return WithAvgFunc(func(context.Context) (*gopsload.AvgStat, error) {
		return &gopsload.AvgStat{Load1: l1, Load5: l5, Load15: l15}, nil
	})
}

func TestDefaultTemplate(t *testing.T) {
	got, err := New("", fixed(0.5, 1.25, 2)).Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.50 1.25 2.00", got)
}

func TestIndividualPlaceholders(t *testing.T) {
	got, err := New("1m={load1} 5m={load5} 15m={load15}", fixed(0.1, 0.2, 0.3)).Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1m=0.10 5m=0.20 15m=0.30", got)
}

func TestAvgError(t *testing.T) {
	l := New("", WithAvgFunc(func(context.Context) (*gopsload.AvgStat, error) {
		return nil, errors.New("no /proc/loadavg")
	}))
	_, err := l.Produce(context.Background())
	assert.ErrorContains(t, err, "loadavg")
}

func TestRealLoadAverage(t *testing.T) {
	got, err := New("{load1}").Produce(context.Background())
	if err != nil {
		t.Skipf("load average unavailable: %v", err)
	}
	assert.NotEmpty(t, got)
}
