package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
	"gitlab.com/tinyland/lab/statusfeed/pkg/scheduler"
)

// --- Health file ---

func TestHealthFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "health.json")
	want := &HealthStatus{
		PID:       42,
		StartedAt: epoch,
		UpdatedAt: epoch.Add(time.Minute),
		Lines:     7,
		Scheduler: scheduler.Stats{Pending: 3, Fired: 9},
		Widgets:   []collectors.Status{{Name: "bat", Producer: "battery", Healthy: false, LastError: "no battery"}},
	}
	require.NoError(t, WriteHealthFile(path, want))

	got, err := ReadHealthFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, got.PID)
	assert.True(t, got.UpdatedAt.Equal(want.UpdatedAt))
	assert.EqualValues(t, 9, got.Scheduler.Fired)
	assert.False(t, got.Healthy())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestReadHealthFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadHealthFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = ReadHealthFile(bad)
	assert.Error(t, err)
}

func TestHealthyWithNoWidgets(t *testing.T) {
	assert.True(t, (&HealthStatus{}).Healthy())
}

// --- PID file ---

func TestAcquireAndReleasePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "statusfeed.pid")
	require.NoError(t, AcquirePID(path))

	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	// Re-acquiring our own file is fine.
	require.NoError(t, AcquirePID(path))

	require.NoError(t, ReleasePID(path))
	require.NoError(t, ReleasePID(path), "releasing twice is a no-op")
}

func TestAcquirePIDReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statusfeed.pid")
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	require.NoError(t, AcquirePID(path))
	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquirePIDRefusesLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statusfeed.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644))

	err := AcquirePID(path)
	assert.ErrorContains(t, err, "already running")
}

func TestReadPIDGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statusfeed.pid")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))
	_, err := ReadPID(path)
	assert.Error(t, err)
}

func TestIsProcessAlive(t *testing.T) {
	assert.True(t, IsProcessAlive(os.Getpid()))
	assert.False(t, IsProcessAlive(0))
	assert.False(t, IsProcessAlive(-5))
}
