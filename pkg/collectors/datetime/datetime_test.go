package datetime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func TestProduceFormatsTemplate(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 3, 7, 14, 5, 9, 0, time.UTC))
	c := New("^fg(#fff)%Y-%m-%d %H:%M:%S^fg()", WithClock(clk), WithLocation(time.UTC))

	got, err := c.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "^fg(#fff)2026-03-07 14:05:09^fg()", got)
}

func TestProduceTracksClock(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 3, 7, 14, 5, 0, 0, time.UTC))
	c := New("%H:%M", WithClock(clk), WithLocation(time.UTC))

	a, _ := c.Produce(context.Background())
	clk.Step(time.Minute)
	b, _ := c.Produce(context.Background())

	assert.Equal(t, "14:05", a)
	assert.Equal(t, "14:06", b)
}

func TestDefaultTemplate(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 3, 7, 14, 5, 0, 0, time.UTC))
	c := New("", WithClock(clk), WithLocation(time.UTC))

	got, err := c.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Sat, 07 Mar 2026, 14:05", got)
	assert.Equal(t, "clock", c.Name())
}

func TestProduceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("%H").Produce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
