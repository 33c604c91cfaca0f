package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"reconcile_added_file", "break_move"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestTraceSnapshot_Marshal(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "s",
		Trace:        []TraceEvent{{Type: EventOperation, Op: OpRunQueue, Seq: 1}},
	}

	data, err := snap.Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{
  "scenario_name": "s",
  "trace": [
    {
      "type": "operation",
      "op": "run-queue",
      "seq": 1
    }
  ]
}
`, string(data))

	again, err := snap.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
