package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gonogo/internal/trial"
)

// fastRig writes a rig that polls every millisecond with the given extra CUE.
func fastRig(t *testing.T, extra string) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "rig.cue", "poll: interval: \"1ms\"\n"+extra)
}

func runJSON(t *testing.T, args ...string) (RunReport, CLIResponse, error) {
	t.Helper()
	out, _, err := execute(t, append([]string{"run", "--format", "json"}, args...)...)
	var report RunReport
	resp := decodeResponse(t, out, &report)
	return report, resp, err
}

func TestRun_GoHit(t *testing.T) {
	rig := fastRig(t, "simulator: {window: 3, respond_after: 1}\n")

	report, resp, err := runJSON(t, "--rig", rig, "--type", "go")
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "hit", report.Outcome)
	assert.Equal(t, "go", report.Type)
	assert.Equal(t, 3, report.Polls)
	assert.Equal(t, 1, report.Rewards)
	assert.Zero(t, report.Punishments)
	assert.NotEmpty(t, report.Session)
}

func TestRun_NoGoFalseStart(t *testing.T) {
	rig := fastRig(t, "simulator: {window: 2, respond_after: 1}\n")

	report, _, err := runJSON(t, "--rig", rig, "--type", "no-go")
	require.NoError(t, err)

	assert.Equal(t, "false_start", report.Outcome)
	assert.Equal(t, 1, report.Punishments)
}

func TestRun_FlagsOverrideRigSimulator(t *testing.T) {
	rig := fastRig(t, "simulator: {window: 30, respond_after: 0}\n")

	report, _, err := runJSON(t, "--rig", rig, "--respond-after", "1", "--window", "2")
	require.NoError(t, err)
	assert.Equal(t, "hit", report.Outcome)
	assert.Equal(t, 2, report.Polls)

	report, _, err = runJSON(t, "--rig", rig, "--window", "1")
	require.NoError(t, err)
	assert.Equal(t, "miss", report.Outcome)
}

func TestRun_Timeout(t *testing.T) {
	rig := fastRig(t, "poll: max_polls: 2\nsimulator: window: 50\n")

	report, resp, err := runJSON(t, "--rig", rig)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, trial.IsTimeout(err))

	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTrialFailed, resp.Error.Code)
	assert.Equal(t, string(trial.ErrCodeTimeout), report.Code)
	assert.Empty(t, report.Outcome)
	assert.Zero(t, report.Rewards+report.Punishments)
}

func TestRun_ContextCancelAborts(t *testing.T) {
	rig := fastRig(t, "poll: {max_polls: 0, timeout: \"1h\"}\nsimulator: window: 1000000\n")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	out, _, err := executeContext(t, ctx, "run", "--format", "json", "--rig", rig)
	require.Error(t, err)
	assert.True(t, trial.IsAborted(err))

	var report RunReport
	decodeResponse(t, out, &report)
	assert.Equal(t, string(trial.ErrCodeAborted), report.Code)
}

func TestRun_TextOutput(t *testing.T) {
	rig := fastRig(t, "simulator: {window: 1, respond_after: 1}\n")

	out, _, err := execute(t, "run", "--rig", rig)
	require.NoError(t, err)
	assert.Contains(t, out, "Trial 1 (GO)")
	assert.Contains(t, out, "outcome:  hit")
	assert.Contains(t, out, "Reward is activated")
}

func TestRun_InvalidType(t *testing.T) {
	_, _, err := execute(t, "run", "--type", "maybe")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --type")
}

func TestRun_RigNotFound(t *testing.T) {
	_, _, err := execute(t, "run", "--rig", filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load rig")
}

func TestRun_AudioDirWithoutStimuli(t *testing.T) {
	_, _, err := execute(t, "run", "--audio", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open audio")
}

func TestRun_AudioFromRigStimuliDir(t *testing.T) {
	rig := fastRig(t, "stimuli: dir: \"sounds\"\n")

	_, _, err := execute(t, "run", "--rig", rig)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open audio")
	assert.Contains(t, err.Error(), filepath.Join(filepath.Dir(rig), "sounds", "go.wav"))
}

func TestRun_AudioFlagOverridesRigStimuliDir(t *testing.T) {
	rig := fastRig(t, "stimuli: dir: \"sounds\"\n")
	flagDir := t.TempDir()

	_, _, err := execute(t, "run", "--rig", rig, "--audio", flagDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(flagDir, "go.wav"))
	assert.NotContains(t, err.Error(), "sounds")
}

func TestRun_RejectsArgs(t *testing.T) {
	_, _, err := execute(t, "run", "extra")
	require.Error(t, err)
}

func TestRunReport_String(t *testing.T) {
	r := RunReport{Trial: 4, Session: "s", Type: "no-go", Error: "TRIAL_ABORTED: aborted", Polls: 2, Duration: "1ms"}
	s := r.String()
	assert.Contains(t, s, "Trial 4 (NO-GO) session s")
	assert.Contains(t, s, "error:    TRIAL_ABORTED")
	assert.NotContains(t, s, "outcome:")
}
