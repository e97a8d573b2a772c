package collectors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

// --- Registry Tests ---

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("clock#0", NewMockProducer("clock")))

	got, ok := r.Get("clock#0")
	require.True(t, ok)
	assert.Equal(t, "clock", got.Name())
}

func TestRegistryDuplicateNameError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("dup", NewMockProducer("a")))
	assert.Error(t, r.Register("dup", NewMockProducer("b")))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("gone", NewMockProducer("x"))

	r.Unregister("gone")
	r.Unregister("does-not-exist")

	_, ok := r.Get("gone")
	assert.False(t, ok)
	_, ok = r.Status("gone")
	assert.False(t, ok)
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("charlie", NewMockProducer("x"))
	_ = r.Register("alpha", NewMockProducer("x"))
	_ = r.Register("bravo", NewMockProducer("x"))

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, r.List())
	assert.Empty(t, NewRegistry().List())
}

func TestRegistryInitialStatus(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("load", NewMockProducer("load"))

	s, ok := r.Status("load")
	require.True(t, ok)
	assert.Equal(t, "load", s.Name)
	assert.Equal(t, "load", s.Producer)
	assert.True(t, s.Healthy)
	assert.Zero(t, s.RunCount)
}

func TestRegistryAllStatusSorted(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("b", NewMockProducer("x"))
	_ = r.Register("a", NewMockProducer("x"))

	statuses := r.AllStatus()
	require.Len(t, statuses, 2)
	assert.Equal(t, "a", statuses[0].Name)
	assert.Equal(t, "b", statuses[1].Name)
}

// --- Bind Tests ---

func TestBindRecordsSuccess(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := NewRegistryWithClock(clk)
	m := NewMockProducer("clock", WithProduceFunc(func(ctx context.Context) (string, error) {
		clk.Step(20 * time.Millisecond)
		return "12:00", nil
	}))
	_ = r.Register("clock", m)

	text, err := r.Bind("clock", time.Second)()
	require.NoError(t, err)
	assert.Equal(t, "12:00", text)

	s, _ := r.Status("clock")
	assert.EqualValues(t, 1, s.RunCount)
	assert.Zero(t, s.ErrorCount)
	assert.True(t, s.Healthy)
	assert.Equal(t, 20*time.Millisecond, s.LastLatency)
}

func TestBindRecordsFailureAndRecovery(t *testing.T) {
	r := NewRegistry()
	m := NewMockProducer("battery", WithError(errors.New("no battery")))
	_ = r.Register("bat", m)
	produce := r.Bind("bat", 0)

	_, err := produce()
	require.Error(t, err)
	s, _ := r.Status("bat")
	assert.False(t, s.Healthy)
	assert.Equal(t, "no battery", s.LastError)
	assert.EqualValues(t, 1, s.ErrorCount)

	m.SetError(nil)
	m.SetText("BAT: 80")
	text, err := produce()
	require.NoError(t, err)
	assert.Equal(t, "BAT: 80", text)
	s, _ = r.Status("bat")
	assert.True(t, s.Healthy)
	assert.Empty(t, s.LastError)
	assert.EqualValues(t, 2, s.RunCount)
}

func TestBindPassesDeadline(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("slow", NewMockProducer("slow", WithProduceFunc(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})))

	_, err := r.Bind("slow", 10*time.Millisecond)()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBindUnregistered(t *testing.T) {
	r := NewRegistry()
	_, err := r.Bind("ghost", time.Second)()
	assert.Error(t, err)
}

// --- Mock Producer Tests ---

func TestMockProducerCallCount(t *testing.T) {
	m := NewMockProducer("counter", WithText("x"))
	for i := 0; i < 5; i++ {
		_, _ = m.Produce(context.Background())
	}
	assert.EqualValues(t, 5, m.CallCount())
}

func TestMockProducerWithProduceFunc(t *testing.T) {
	calls := 0
	m := NewMockProducer("custom", WithProduceFunc(func(ctx context.Context) (string, error) {
		calls++
		return fmt.Sprintf("call-%d", calls), nil
	}))

	a, _ := m.Produce(context.Background())
	b, _ := m.Produce(context.Background())
	assert.Equal(t, "call-1", a)
	assert.Equal(t, "call-2", b)
}

func TestProducerFunc(t *testing.T) {
	p := ProducerFunc{ID: "static", Fn: func(context.Context) (string, error) { return "hi", nil }}
	text, err := p.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", p.Name())
	assert.Equal(t, "hi", text)
}

// --- Template Tests ---

func TestExpand(t *testing.T) {
	tests := []struct {
		name   string
		tmpl   string
		values map[string]string
		want   string
	}{
		{"simple", "Vol: {volume} [{state}]", map[string]string{"volume": "55%", "state": "on"}, "Vol: 55% [on]"},
		{"prefix keys", "{load} / {load1}", map[string]string{"load": "a b c", "load1": "a"}, "a b c / a"},
		{"unknown kept", "{x} {y}", map[string]string{"x": "1"}, "1 {y}"},
		{"no placeholders", "plain", map[string]string{"x": "1"}, "plain"},
		{"no values", "{x}", nil, "{x}"},
		{"repeated", "{x}{x}", map[string]string{"x": "ab"}, "abab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.tmpl, tt.values))
		})
	}
}

// --- Runner Tests ---

func TestExecRunnerOutput(t *testing.T) {
	out, err := ExecRunner(context.Background(), "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestExecRunnerFailureIncludesStderr(t *testing.T) {
	_, err := ExecRunner(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
}
