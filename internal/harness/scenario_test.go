package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "Smallest valid scenario"
fixture:
  base:
    - {path: X, kind: dir, rev: 1}
flow:
  - op: break-move
    path: X
    expect: {case: NOT_MOVED}
assertions:
  - {type: notification_count, count: 0}
`

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Fixture.Base, 1)
	assert.Equal(t, "X", s.Fixture.Base[0].Path)
	require.Len(t, s.Flow, 1)
	assert.Equal(t, OpBreakMove, s.Flow[0].Op)
	require.NotNil(t, s.Flow[0].Expect)
	assert.Equal(t, "NOT_MOVED", s.Flow[0].Expect.Case)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertNotificationCount, s.Assertions[0].Type)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			_, err := LoadScenario(f)
			require.NoError(t, err)
		})
	}
}

func TestParseScenario_Invalid(t *testing.T) {
	const base = `
fixture:
  base:
    - {path: X, kind: dir, rev: 1}
`
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    minimalScenario + "assertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: d\n" + base + "flow: [{op: run-queue}]\nassertions: [{type: work_count}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\n" + base + "flow: [{op: run-queue}]\nassertions: [{type: work_count}]\n",
			wantErr: "description is required",
		},
		{
			name:    "empty fixture",
			yaml:    "name: n\ndescription: d\nflow: [{op: run-queue}]\nassertions: [{type: work_count}]\n",
			wantErr: "fixture: base list is required",
		},
		{
			name:    "missing flow",
			yaml:    "name: n\ndescription: d\n" + base + "assertions: [{type: work_count}]\n",
			wantErr: "flow list is required",
		},
		{
			name:    "missing assertions",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: run-queue}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: merge, path: X}]\nassertions: [{type: work_count}]\n",
			wantErr: `flow[0]: unknown op "merge"`,
		},
		{
			name:    "bad depth",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: bump, path: X, depth: deep}]\nassertions: [{type: work_count}]\n",
			wantErr: "flow[0]:",
		},
		{
			name:    "depth on reconcile",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: reconcile, path: X, depth: empty}]\nassertions: [{type: work_count}]\n",
			wantErr: "only valid for bump",
		},
		{
			name:    "run-queue with path",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: run-queue, path: X}]\nassertions: [{type: work_count}]\n",
			wantErr: "run-queue takes no path",
		},
		{
			name:    "empty expect case",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: reconcile, path: X, expect: {}}]\nassertions: [{type: work_count}]\n",
			wantErr: "flow[0].expect: case is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: run-queue}]\nassertions: [{type: trace_order}]\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
		{
			name:    "file without content",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: run-queue}]\nassertions: [{type: file, path: X/f}]\n",
			wantErr: "content is required for file",
		},
		{
			name:    "notification without path",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: run-queue}]\nassertions: [{type: notification, action: added}]\n",
			wantErr: "path is required for notification",
		},
		{
			name:    "negative count",
			yaml:    "name: n\ndescription: d\n" + base + "flow: [{op: run-queue}]\nassertions: [{type: work_count, count: -1}]\n",
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
