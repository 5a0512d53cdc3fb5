package rig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gonogo/internal/trial"
)

func writeRig(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rig.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	p := Default()

	assert.Equal(t, "default", p.Name)
	assert.Equal(t, trial.DefaultWiring(), p.Wiring)
	assert.Equal(t, DefaultPollInterval, p.PollInterval)
	assert.Equal(t, trial.DefaultMaxPolls, p.MaxPolls)
	assert.Equal(t, time.Duration(0), p.Timeout)
	assert.Equal(t, "go.wav", p.Stimuli[trial.StimulusGo])
	assert.Equal(t, "no-go.wav", p.Stimuli[trial.StimulusNoGo])
	assert.Equal(t, 8, p.SimWindow)
	assert.Empty(t, p.Source)
	assert.NoError(t, p.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	path := writeRig(t, `
name: "booth-2"
trigger: {address: 0x41, start_bit: 4, reset_bit: 5}
status: response_bit: 3
poll: {interval: "100ms", max_polls: 0, timeout: "3s"}
stimuli: {dir: "sounds", go: "tone.wav"}
simulator: respond_after: 2
`)

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "booth-2", p.Name)
	assert.Equal(t, trial.Address(0x41), p.Wiring.TriggerAddr)
	assert.Equal(t, uint(4), p.Wiring.StartBit)
	assert.Equal(t, uint(5), p.Wiring.ResetBit)
	assert.Equal(t, uint(3), p.Wiring.ResponseBit)
	assert.Equal(t, uint(1), p.Wiring.DoneBit, "untouched fields keep defaults")
	assert.Equal(t, trial.Address(0x20), p.Wiring.StatusAddr)
	assert.Equal(t, 100*time.Millisecond, p.PollInterval)
	assert.Equal(t, 0, p.MaxPolls)
	assert.Equal(t, 3*time.Second, p.Timeout)
	assert.Equal(t, "tone.wav", p.Stimuli[trial.StimulusGo])
	assert.Equal(t, filepath.Join(filepath.Dir(path), "sounds"), p.StimulusDir)
	assert.Equal(t, 2, p.SimRespondAfter)
	assert.Equal(t, path, p.Source)
}

func TestLoad_EmptyStimulusDir(t *testing.T) {
	p, err := Load(writeRig(t, `name: "booth"`))
	require.NoError(t, err)
	assert.Empty(t, p.StimulusDir)

	abs := t.TempDir()
	p, err = Load(writeRig(t, `stimuli: dir: "`+filepath.ToSlash(abs)+`"`))
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(abs), p.StimulusDir)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `wires: 3`},
		{"bit out of range", `trigger: start_bit: 32`},
		{"negative address", `status: address: -1`},
		{"bad duration", `poll: interval: "soon"`},
		{"zero window", `simulator: window: 0`},
		{"syntax", `trigger: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeRig(t, tt.src))
			assert.Error(t, err)
		})
	}
}

func TestLoad_OverlappingBits(t *testing.T) {
	tests := []struct {
		src   string
		field string
	}{
		{`trigger: {start_bit: 2, reset_bit: 2}`, "trigger.reset_bit"},
		{`status: {response_bit: 1}`, "status.done_bit"},
		{`actuation: {punishment_bit: 0}`, "actuation.punishment_bit"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := Load(writeRig(t, tt.src))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, "already used")
		})
	}
}

func TestLoad_Unbounded(t *testing.T) {
	_, err := Load(writeRig(t, `poll: {max_polls: 0, timeout: "0s"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one of max_polls or timeout")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCompile_Value(t *testing.T) {
	ctx := cuecontext.New()
	p, err := Compile(ctx.CompileString(`actuation: address: 0x02`))
	require.NoError(t, err)
	assert.Equal(t, trial.Address(0x02), p.Wiring.ActuationAddr)
	assert.Len(t, p.TrialOptions(), 3)
}

func TestProfile_Validate(t *testing.T) {
	p := Default()
	p.PollInterval = 0
	assert.Error(t, p.Validate())

	p = Default()
	p.Wiring.RewardBit = 40
	assert.Error(t, p.Validate())
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "poll", Message: "bad"}
	assert.Equal(t, "poll: bad", err.Error())
}
