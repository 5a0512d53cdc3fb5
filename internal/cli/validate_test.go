package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Default(t *testing.T) {
	out, _, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "rig default is valid (built-in)")
	assert.Contains(t, out, "0x40 start bit 0, reset bit 1")
	assert.Contains(t, out, "every 250ms, max 240 polls")
}

func TestValidate_FileJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "booth.cue", `
name: "booth-1"
trigger: address: 0x41
poll: {interval: "100ms", max_polls: 600}
`)

	out, _, err := execute(t, "validate", path, "--format", "json")
	require.NoError(t, err)

	var summary RigSummary
	resp := decodeResponse(t, out, &summary)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "booth-1", summary.Name)
	assert.Equal(t, path, summary.Source)
	assert.Equal(t, "0x41 start bit 0, reset bit 1", summary.Trigger)
	assert.Equal(t, "100ms", summary.PollInterval)
	assert.Equal(t, 600, summary.MaxPolls)
}

func TestValidate_UsesRigFlag(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bench.cue", `name: "bench"`)

	out, _, err := execute(t, "validate", "--rig", path)
	require.NoError(t, err)
	assert.Contains(t, out, "rig bench is valid")
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantField string
		wantMsg   string
	}{
		{"overlapping bits", "trigger: {start_bit: 2, reset_bit: 2}", "trigger.reset_bit", "already used"},
		{"bit out of range", "status: done_bit: 40", "", ""},
		{"unbounded poll", "poll: max_polls: 0", "", "at least one of max_polls or timeout"},
		{"syntax error", "trigger: {", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "rig.cue", tt.content)

			out, _, err := execute(t, "validate", path, "--format", "json")
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var details ValidationDetails
			resp := decodeResponse(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeRigInvalid, resp.Error.Code)
			if tt.wantMsg != "" {
				assert.Contains(t, resp.Error.Message, tt.wantMsg)
			}
			if tt.wantField != "" {
				raw, ok := resp.Error.Details.(map[string]any)
				require.True(t, ok, "details: %v", resp.Error.Details)
				details.Field, _ = raw["field"].(string)
				assert.Equal(t, tt.wantField, details.Field)
			}
		})
	}
}

func TestValidate_TextError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rig.cue", "actuation: {reward_bit: 3, punishment_bit: 3}")

	out, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E_RIG_INVALID]")
	assert.Contains(t, out, "actuation.punishment_bit")
}

func TestValidate_NotFound(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.cue"), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestValidate_TooManyArgs(t *testing.T) {
	_, _, err := execute(t, "validate", "a.cue", "b.cue")
	require.Error(t, err)
}
