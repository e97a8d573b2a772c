package sysmetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gib = 1 << 30

func fixedSource() Source {
	return Source{
		VirtualMemory: func(context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Total: 8 * gib, Used: 2 * gib, Available: 6 * gib, UsedPercent: 25}, nil
		},
		SwapMemory: func(context.Context) (*mem.SwapMemoryStat, error) {
			return &mem.SwapMemoryStat{Total: 4 * gib, Used: 1 * gib, UsedPercent: 25}, nil
		},
		CPUPercent: func(_ context.Context, _ time.Duration, percpu bool) ([]float64, error) {
			if percpu {
				return []float64{10, 20, 30, 40}, nil
			}
			return []float64{25.2}, nil
		},
		Uptime: func(context.Context) (uint64, error) {
			return uint64((3*24*time.Hour + 4*time.Hour + 12*time.Minute) / time.Second), nil
		},
		Partitions: func(context.Context, bool) ([]disk.PartitionStat, error) {
			return []disk.PartitionStat{
				{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
				{Device: "tmpfs", Mountpoint: "/tmp", Fstype: "tmpfs"},
				{Device: "/dev/sda2", Mountpoint: "/home", Fstype: "ext4"},
				{Device: "/dev/sda2", Mountpoint: "/mnt/bind", Fstype: "ext4"},
			}, nil
		},
		Usage: func(_ context.Context, path string) (*disk.UsageStat, error) {
			switch path {
			case "/":
				return &disk.UsageStat{Path: "/", Total: 100 * gib, Used: 40 * gib, Free: 60 * gib}, nil
			case "/home":
				return &disk.UsageStat{Path: "/home", Total: 100 * gib, Used: 10 * gib, Free: 90 * gib}, nil
			}
			return nil, errors.New("no such mount")
		},
	}
}

// --- Memory ---

func TestMemoryTemplate(t *testing.T) {
	m := NewMemory("{used}/{total} ({percent}%) swap {swap_used}", fixedSource())
	got, err := m.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.0 GiB/8.0 GiB (25%) swap 1.0 GiB", got)
	assert.Equal(t, "memory", m.Name())
}

func TestMemoryWithoutSwap(t *testing.T) {
	src := fixedSource()
	src.SwapMemory = func(context.Context) (*mem.SwapMemoryStat, error) {
		return nil, errors.New("no swap")
	}
	got, err := NewMemory("{swap_percent}", src).Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0", got)
}

func TestMemoryError(t *testing.T) {
	src := fixedSource()
	src.VirtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("boom")
	}
	_, err := NewMemory("", src).Produce(context.Background())
	assert.Error(t, err)
}

// --- CPU ---

func TestCPUTemplate(t *testing.T) {
	got, err := NewCPU("", fixedSource()).Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CPU: 25%", got)

	got, err = NewCPU("{count} cores", fixedSource()).Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4 cores", got)
}

func TestCPUEmptyReading(t *testing.T) {
	src := fixedSource()
	src.CPUPercent = func(context.Context, time.Duration, bool) ([]float64, error) { return nil, nil }
	_, err := NewCPU("", src).Produce(context.Background())
	assert.Error(t, err)
}

// --- Uptime ---

func TestUptimeTemplate(t *testing.T) {
	got, err := NewUptime("", fixedSource()).Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UP: 3d 4h 12m", got)

	got, err = NewUptime("{days}/{hours}/{minutes}", fixedSource()).Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3/4/12", got)
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m"},
		{59 * time.Minute, "59m"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
		{24 * time.Hour, "1d 0h 0m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUptime(tt.in))
		})
	}
}

// --- Disk ---

func TestDiskSingleMount(t *testing.T) {
	got, err := NewDisk("", "/", fixedSource()).Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/: 40%", got)
}

func TestDiskAllRealPartitions(t *testing.T) {
	got, err := NewDisk("{path} {used}/{total}", "", fixedSource()).Produce(context.Background())
	require.NoError(t, err)
	// tmpfs is skipped and the bind mount of /dev/sda2 is counted once.
	assert.Equal(t, "all 50 GiB/200 GiB", got)
}

func TestDiskUnknownMount(t *testing.T) {
	_, err := NewDisk("", "/nope", fixedSource()).Produce(context.Background())
	assert.Error(t, err)
}

func TestIsVirtualFS(t *testing.T) {
	for _, fs := range []string{"tmpfs", "proc", "sysfs", "cgroup2", "devtmpfs"} {
		assert.True(t, isVirtualFS(fs), fs)
	}
	for _, fs := range []string{"ext4", "xfs", "btrfs", "apfs", "zfs"} {
		assert.False(t, isVirtualFS(fs), fs)
	}
}

// --- Host ---

func TestHostSourceUptime(t *testing.T) {
	got, err := NewUptime("{uptime}", Host()).Produce(context.Background())
	if err != nil {
		t.Skipf("uptime unavailable: %v", err)
	}
	assert.NotEmpty(t, got)
}
