package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: go_hit
description: "GO trial with a response is rewarded"
rig: rigs/booth.cue
session: booth-2
trials:
  - type: go
    status: [0x0, 0x3]
    expect: {outcome: hit}
  - type: No-Go
    fail: {op: commit, at: 1}
    expect: {error: hardware_io}
assertions:
  - {type: call_order, calls: ["trigger:start", "write:1"]}
  - {type: final_state, state: idle}
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "go_hit", s.Name)
	assert.Equal(t, "booth-2", s.Session)
	require.Len(t, s.Trials, 2)
	assert.Equal(t, []uint32{0, 3}, s.Trials[0].Status)
	assert.Equal(t, "hit", s.Trials[0].Expect.Outcome)
	assert.Equal(t, "commit", s.Trials[1].Fail.Op)
	assert.Equal(t, filepath.Join(dir, "rigs/booth.cue"), s.RigPath())
	assert.Len(t, s.Assertions, 2)
}

func TestLoadScenario_NotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: d
trials:
  - type: go
assertion:
  - {type: final_state, state: idle}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "description: d\ntrials: [{type: go}]", "name is required"},
		{"missing description", "name: n\ntrials: [{type: go}]", "description is required"},
		{"no trials", "name: n\ndescription: d", "trials list is required"},
		{"bad type", "name: n\ndescription: d\ntrials: [{type: maybe}]", "unknown trial type"},
		{"bad fail op", "name: n\ndescription: d\ntrials: [{type: go, fail: {op: poke, at: 1}}]", "unknown op"},
		{"fail at zero", "name: n\ndescription: d\ntrials: [{type: go, fail: {op: read, at: 0}}]", "at must be >= 1"},
		{"polls and abort", "name: n\ndescription: d\ntrials: [{type: go, polls: 1, abort_after: 1}]", "mutually exclusive"},
		{"empty expect", "name: n\ndescription: d\ntrials: [{type: go, expect: {}}]", "exactly one of outcome or error"},
		{"both expects", "name: n\ndescription: d\ntrials: [{type: go, expect: {outcome: hit, error: timeout}}]", "exactly one of outcome or error"},
		{"bad outcome", "name: n\ndescription: d\ntrials: [{type: go, expect: {outcome: win}}]", "unknown outcome"},
		{"bad error", "name: n\ndescription: d\ntrials: [{type: go, expect: {error: oops}}]", "unknown error"},
		{"negative max_polls", "name: n\ndescription: d\nmax_polls: -1\ntrials: [{type: go}]", "max_polls"},
		{"assertion without type", "name: n\ndescription: d\ntrials: [{type: go}]\nassertions: [{count: 1}]", "type is required"},
		{"unknown assertion", "name: n\ndescription: d\ntrials: [{type: go}]\nassertions: [{type: vibes}]", "unknown assertion type"},
		{"call_order empty", "name: n\ndescription: d\ntrials: [{type: go}]\nassertions: [{type: call_order}]", "calls list is required"},
		{"call_count no call", "name: n\ndescription: d\ntrials: [{type: go}]\nassertions: [{type: call_count}]", "call is required"},
		{"outcome_count no outcome", "name: n\ndescription: d\ntrials: [{type: go}]\nassertions: [{type: outcome_count}]", "outcome is required"},
		{"final_state bad", "name: n\ndescription: d\ntrials: [{type: go}]\nassertions: [{type: final_state, state: done}]", "unknown state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRigPath(t *testing.T) {
	assert.Equal(t, "", (&Scenario{}).RigPath())
	assert.Equal(t, "/abs/rig.cue", (&Scenario{Rig: "/abs/rig.cue", dir: "/x"}).RigPath())
	assert.Equal(t, filepath.Join("/x", "rig.cue"), (&Scenario{Rig: "rig.cue", dir: "/x"}).RigPath())
}
