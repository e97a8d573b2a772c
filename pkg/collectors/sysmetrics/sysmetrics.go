// Package sysmetrics provides the gopsutil-backed probes: memory, cpu,
// uptime and disk. Each one is a small collectors.Producer that formats a
// single reading through a {placeholder} template.
package sysmetrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
)

// Source is the subset of gopsutil the probes call. Tests substitute fixed
// readings.
type Source struct {
	VirtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	SwapMemory    func(ctx context.Context) (*mem.SwapMemoryStat, error)
	CPUPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	Uptime        func(ctx context.Context) (uint64, error)
	Partitions    func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	Usage         func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// Host reads the running machine.
func Host() Source {
	return Source{
		VirtualMemory: mem.VirtualMemoryWithContext,
		SwapMemory:    mem.SwapMemoryWithContext,
		CPUPercent:    cpu.PercentWithContext,
		Uptime:        host.UptimeWithContext,
		Partitions:    disk.PartitionsWithContext,
		Usage:         disk.UsageWithContext,
	}
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// --- memory ---

// Memory reports RAM and swap usage.
//
// Placeholders: {used} {total} {available} {percent} {swap_used}
// {swap_total} {swap_percent}. Sizes are IEC formatted ("3.2 GiB").
type Memory struct {
	template string
	src      Source
}

// NewMemory creates a memory probe.
func NewMemory(template string, src Source) *Memory {
	if template == "" {
		template = "MEM: {percent}%"
	}
	return &Memory{template: template, src: src}
}

// Name returns the probe identifier.
func (m *Memory) Name() string { return "memory" }

// Produce reads memory counters. Missing swap is rendered as zero.
func (m *Memory) Produce(ctx context.Context) (string, error) {
	vm, err := m.src.VirtualMemory(ctx)
	if err != nil {
		return "", fmt.Errorf("memory: %w", err)
	}
	values := map[string]string{
		"used":         humanize.IBytes(vm.Used),
		"total":        humanize.IBytes(vm.Total),
		"available":    humanize.IBytes(vm.Available),
		"percent":      percent(vm.UsedPercent),
		"swap_used":    humanize.IBytes(0),
		"swap_total":   humanize.IBytes(0),
		"swap_percent": "0",
	}
	if m.src.SwapMemory != nil {
		if sw, err := m.src.SwapMemory(ctx); err == nil && sw.Total > 0 {
			values["swap_used"] = humanize.IBytes(sw.Used)
			values["swap_total"] = humanize.IBytes(sw.Total)
			values["swap_percent"] = percent(sw.UsedPercent)
		}
	}
	return collectors.Expand(m.template, values), nil
}

// --- cpu ---

// CPU reports aggregate utilisation since the previous call.
//
// Placeholders: {percent} {count}.
type CPU struct {
	template string
	src      Source
}

// NewCPU creates a cpu probe.
func NewCPU(template string, src Source) *CPU {
	if template == "" {
		template = "CPU: {percent}%"
	}
	return &CPU{template: template, src: src}
}

// Name returns the probe identifier.
func (c *CPU) Name() string { return "cpu" }

// Produce samples CPU usage. An interval of zero compares against the
// previous sample, so the widget interval is the measurement window.
func (c *CPU) Produce(ctx context.Context) (string, error) {
	total, err := c.src.CPUPercent(ctx, 0, false)
	if err != nil {
		return "", fmt.Errorf("cpu: %w", err)
	}
	if len(total) == 0 {
		return "", fmt.Errorf("cpu: no reading")
	}
	perCore, err := c.src.CPUPercent(ctx, 0, true)
	if err != nil {
		return "", fmt.Errorf("cpu: %w", err)
	}
	return collectors.Expand(c.template, map[string]string{
		"percent": percent(total[0]),
		"count":   strconv.Itoa(len(perCore)),
	}), nil
}

// --- uptime ---

// Uptime reports time since boot.
//
// Placeholders: {uptime} ("3d 4h 12m"), {days} {hours} {minutes}.
type Uptime struct {
	template string
	src      Source
}

// NewUptime creates an uptime probe.
func NewUptime(template string, src Source) *Uptime {
	if template == "" {
		template = "UP: {uptime}"
	}
	return &Uptime{template: template, src: src}
}

// Name returns the probe identifier.
func (u *Uptime) Name() string { return "uptime" }

// Produce reads the host uptime.
func (u *Uptime) Produce(ctx context.Context) (string, error) {
	secs, err := u.src.Uptime(ctx)
	if err != nil {
		return "", fmt.Errorf("uptime: %w", err)
	}
	d := time.Duration(secs) * time.Second
	days := int64(d / (24 * time.Hour))
	hours := int64(d/time.Hour) % 24
	minutes := int64(d/time.Minute) % 60
	return collectors.Expand(u.template, map[string]string{
		"uptime":  FormatUptime(d),
		"days":    strconv.FormatInt(days, 10),
		"hours":   strconv.FormatInt(hours, 10),
		"minutes": strconv.FormatInt(minutes, 10),
	}), nil
}

// FormatUptime renders d as "3d 4h 12m", dropping leading zero units.
func FormatUptime(d time.Duration) string {
	days := int64(d / (24 * time.Hour))
	hours := int64(d/time.Hour) % 24
	minutes := int64(d/time.Minute) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", minutes))
	return strings.Join(parts, " ")
}

// --- disk ---

// Disk reports usage of one mount, or the sum of every real partition when
// no mount is configured.
//
// Placeholders: {path} {used} {free} {total} {percent}.
type Disk struct {
	template string
	mount    string
	src      Source
}

// NewDisk creates a disk probe for mount.
func NewDisk(template, mount string, src Source) *Disk {
	if template == "" {
		template = "{path}: {percent}%"
	}
	return &Disk{template: template, mount: mount, src: src}
}

// Name returns the probe identifier.
func (d *Disk) Name() string { return "disk" }

// Produce reads filesystem usage.
func (d *Disk) Produce(ctx context.Context) (string, error) {
	var path string
	var total, used, free uint64

	if d.mount != "" {
		usage, err := d.src.Usage(ctx, d.mount)
		if err != nil {
			return "", fmt.Errorf("disk: %w", err)
		}
		path, total, used, free = usage.Path, usage.Total, usage.Used, usage.Free
	} else {
		parts, err := d.src.Partitions(ctx, false)
		if err != nil {
			return "", fmt.Errorf("disk: %w", err)
		}
		seen := make(map[string]bool)
		for _, p := range parts {
			if isVirtualFS(p.Fstype) || seen[p.Device] {
				continue
			}
			seen[p.Device] = true
			usage, err := d.src.Usage(ctx, p.Mountpoint)
			if err != nil {
				continue // unreadable mounts are skipped
			}
			total += usage.Total
			used += usage.Used
			free += usage.Free
		}
		if total == 0 {
			return "", fmt.Errorf("disk: no real partitions found")
		}
		path = "all"
	}

	var pct float64
	if used+free > 0 {
		pct = float64(used) / float64(used+free) * 100
	}
	return collectors.Expand(d.template, map[string]string{
		"path":    path,
		"used":    humanize.IBytes(used),
		"free":    humanize.IBytes(free),
		"total":   humanize.IBytes(total),
		"percent": percent(pct),
	}), nil
}

// isVirtualFS returns true for filesystem types that do not represent real
// storage and should be skipped during enumeration.
func isVirtualFS(fstype string) bool {
	switch fstype {
	case "devfs", "devtmpfs", "tmpfs", "sysfs", "proc", "cgroup", "cgroup2",
		"autofs", "mqueue", "hugetlbfs", "debugfs", "tracefs", "securityfs",
		"pstore", "bpf", "fusectl", "configfs", "ramfs", "rpc_pipefs",
		"nfsd", "map", "devpts", "squashfs":
		return true
	}
	return false
}
