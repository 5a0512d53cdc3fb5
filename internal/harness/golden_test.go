package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "go_hit.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, scenario.Name, scenario.Session, result))
}

func TestMarshalTrace(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{
		{Seq: 1, Step: 1, Event: "trigger:start"},
		{Seq: 2, Step: 1, Event: "read:0", Failed: true},
	}

	data, err := MarshalTrace("demo", "", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"demo","trace":[{"event":"trigger:start","seq":1,"step":1},{"event":"read:0","failed":true,"seq":2,"step":1}]}`,
		string(data))

	data, err = MarshalTrace("demo", "booth-2", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"demo","session":"booth-2","trace":[]}`, string(data))
}
