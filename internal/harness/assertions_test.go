package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/wc"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventOperation, Op: OpBump, Path: "X", Seq: 1},
		{Type: EventNotification, Op: OpBump, Path: "Y/f", Action: wc.NotifyUpdated, Kind: wc.KindFile,
			ContentState: wc.StateMerged, PropState: wc.StateUnchanged, Seq: 2},
		{Type: EventNotification, Op: OpBump, Path: "Y/g", Action: wc.NotifyAdded, Kind: wc.KindFile,
			ContentState: wc.StateInapplicable, PropState: wc.StateInapplicable, Seq: 3},
		{Type: EventOperation, Op: OpBreakMove, Path: "Z", Seq: 4},
		{Type: EventError, Op: OpBreakMove, Path: "Z", Code: "NOT_MOVED", Seq: 5},
	}
}

func TestAssertNotification(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"path only", Assertion{Path: "Y/f"}, false},
		{"all fields", Assertion{Path: "Y/f", Action: "updated", Kind: "file", ContentState: "merged", PropState: "unchanged"}, false},
		{"wrong action", Assertion{Path: "Y/f", Action: "added"}, true},
		{"wrong content state", Assertion{Path: "Y/g", ContentState: "changed"}, true},
		{"unknown path", Assertion{Path: "Y/h"}, true},
		{"operation path is not a notification", Assertion{Path: "X"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertNotification
			err := assertNotification(sampleTrace(), tt.assertion)
			if tt.wantErr {
				require.Error(t, err)
				var ae *AssertionError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, AssertNotification, ae.Type)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAssertNotificationCount(t *testing.T) {
	assert.NoError(t, assertNotificationCount(sampleTrace(), Assertion{Count: 2}))

	err := assertNotificationCount(sampleTrace(), Assertion{Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 3 notifications")
	assert.Contains(t, err.Error(), "Actual: 2 notifications")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertNotification,
		Expected: "notification Y/h",
		Actual:   "not found in trace",
		Trace:    sampleTrace(),
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: notification\n")
	assert.Contains(t, msg, "  [1] bump \"X\"\n")
	assert.Contains(t, msg, "  [2] updated Y/f (file, content merged, props unchanged)\n")
	assert.Contains(t, msg, "  [5] break-move \"Z\" failed: NOT_MOVED\n")
}

func TestEvaluateAssertions_NeedsContext(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()
	content := "x"

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertNotificationCount, Count: 2},
		{Type: AssertNode, Path: "Y"},
		{Type: AssertFile, Path: "Y/f", Content: &content},
		{Type: AssertWorkCount},
		{Type: "trace_order"},
	}, nil)

	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "node requires a store")
	assert.Contains(t, errs[1], "file requires a working tree")
	assert.Contains(t, errs[2], "work_count requires a store")
	assert.Contains(t, errs[3], `unknown assertion type "trace_order"`)
}

func TestResult_Notifications(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	notes := result.Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, "Y/f", notes[0].Path)
	assert.Equal(t, "Y/g", notes[1].Path)

	result.AddError("boom")
	assert.False(t, result.Pass)
}
