package volume

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
)

const amixerOn = `Simple mixer control 'Master',0
  Capabilities: pvolume pvolume-joined pswitch pswitch-joined
  Playback channels: Mono
  Limits: Playback 0 - 87
  Mono: Playback 48 [55%] [-29.25dB] [on]
`

const amixerOff = `Simple mixer control 'Master',0
  Mono: Playback 48 [55%] [-29.25dB] [off]
`

func fakeRunner(out string, err error, gotArgs *[]string) collectors.Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		if gotArgs != nil {
			*gotArgs = append([]string{name}, args...)
		}
		return []byte(out), err
	}
}

func TestUnmuted(t *testing.T) {
	var args []string
	v := New(Config{Template: "Vol: {volume} [{state}]"}, WithRunner(fakeRunner(amixerOn, nil, &args)))

	got, err := v.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Vol: 55% [on]", got)
	assert.Equal(t, []string{"amixer", "-c", "0", "-D", "default", "get", "Master"}, args)
}

func TestMutedUsesMutedTemplate(t *testing.T) {
	v := New(Config{Template: "Vol: {volume}", TemplateMuted: "Muted ({state})"},
		WithRunner(fakeRunner(amixerOff, nil, nil)))

	got, err := v.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Muted (off)", got)
}

func TestMutedTemplateDefaultsToTemplate(t *testing.T) {
	v := New(Config{Template: "{volume} {state}"}, WithRunner(fakeRunner(amixerOff, nil, nil)))

	got, err := v.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "55% off", got)
}

func TestCustomMixerArgs(t *testing.T) {
	v := New(Config{Mixer: "PCM", Card: "1", Device: "hw:1"})
	assert.Equal(t, []string{"-c", "1", "-D", "hw:1", "get", "PCM"}, v.Args())
}

func TestRunnerFailure(t *testing.T) {
	v := New(Config{}, WithRunner(fakeRunner("", errors.New("amixer: not found"), nil)))
	_, err := v.Produce(context.Background())
	assert.ErrorContains(t, err, "not found")
}

func TestNoLevelInOutput(t *testing.T) {
	v := New(Config{}, WithRunner(fakeRunner("Simple mixer control 'Master',0\n", nil, nil)))
	_, err := v.Produce(context.Background())
	assert.Error(t, err)
}
