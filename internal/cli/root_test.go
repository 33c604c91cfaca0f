package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "wcmove", cmd.Use)
	assert.Contains(t, cmd.Long, "tree conflicts")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"info", "conflicts", "resolve", "bump", "break-move",
		"break-moved-children", "run-queue", "seed", "test",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	wcFlag := cmd.PersistentFlags().Lookup("wc")
	require.NotNil(t, wcFlag)
	assert.Equal(t, ".", wcFlag.DefValue)

	levelFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, levelFlag)
	assert.Equal(t, "info", levelFlag.DefValue)
}

func TestBumpCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	bumpCmd, _, err := cmd.Find([]string{"bump"})
	require.NoError(t, err)

	depthFlag := bumpCmd.Flags().Lookup("depth")
	require.NotNil(t, depthFlag)
	assert.Equal(t, "infinity", depthFlag.DefValue)

	opFlag := bumpCmd.Flags().Lookup("operation")
	require.NotNil(t, opFlag)
	assert.Equal(t, "update", opFlag.DefValue)

	require.NotNil(t, bumpCmd.Flags().Lookup("abandon"))
	require.NotNil(t, bumpCmd.Flags().Lookup("no-run"))
}

func TestQueryCommandFlags(t *testing.T) {
	for _, name := range []string{"info", "conflicts"} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub.Flags().Lookup("match"))
		})
	}
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData unmarshals the data of a JSON response into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func seedWC(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := execute(t, "--wc", dir, "--format", "json", "seed", "testdata/fixtures/moved-dir.yaml")
	require.NoError(t, err)

	var seeded SeedOutput
	decodeData(t, out, &seeded)
	assert.Equal(t, 2, seeded.Nodes)
	assert.Equal(t, 1, seeded.Moves)
	assert.Equal(t, 1, seeded.Victims)
	return dir
}

func TestSeedConflictsResolve(t *testing.T) {
	dir := seedWC(t)

	out, err := execute(t, "--wc", dir, "--format", "json", "conflicts")
	require.NoError(t, err)
	var conflicts ConflictsOutput
	decodeData(t, out, &conflicts)
	require.Len(t, conflicts.Conflicts, 1)
	c := conflicts.Conflicts[0]
	assert.Equal(t, "X", c.Path)
	assert.Equal(t, []string{"tree"}, c.Markers)
	assert.Equal(t, "moved-away", c.Reason)
	assert.Equal(t, "X", c.MoveSrcOpRoot)

	out, err = execute(t, "--wc", dir, "--format", "json", "resolve", "X")
	require.NoError(t, err)
	var op OperationOutput
	decodeData(t, out, &op)
	assert.Equal(t, "resolve", op.Op)
	require.Len(t, op.Notifications, 1)
	assert.Equal(t, "Y/f", op.Notifications[0].Path)
	require.NotNil(t, op.Work)
	assert.Equal(t, 0, GetExitCode(err))

	data, err := os.ReadFile(filepath.Join(dir, "Y", "f"))
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(data))

	out, err = execute(t, "--wc", dir, "--format", "json", "conflicts")
	require.NoError(t, err)
	decodeData(t, out, &conflicts)
	assert.Empty(t, conflicts.Conflicts)

	out, err = execute(t, "--wc", dir, "--format", "json", "info", "Y", "--match", "Y/*")
	require.NoError(t, err)
	var info InfoOutput
	decodeData(t, out, &info)
	paths := make([]string, 0, len(info.Nodes))
	for _, n := range info.Nodes {
		paths = append(paths, n.Path)
		assert.True(t, n.MovedHere, n.Path)
	}
	assert.ElementsMatch(t, []string{"Y/f", "Y/g"}, paths)
}

func TestResolveTwiceFails(t *testing.T) {
	dir := seedWC(t)

	_, err := execute(t, "--wc", dir, "resolve", "X")
	require.NoError(t, err)

	out, err := execute(t, "--wc", dir, "--format", "json", "resolve", "X")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_A_VICTIM", resp.Error.Code)
}

func TestResolveNoRunLeavesQueue(t *testing.T) {
	dir := seedWC(t)

	out, err := execute(t, "--wc", dir, "--format", "json", "resolve", "X", "--no-run")
	require.NoError(t, err)
	var op OperationOutput
	decodeData(t, out, &op)
	assert.Nil(t, op.Work)
	assert.NoFileExists(t, filepath.Join(dir, "Y", "f"))

	out, err = execute(t, "--wc", dir, "--format", "json", "run-queue")
	require.NoError(t, err)
	var work WorkOutput
	decodeData(t, out, &work)
	assert.GreaterOrEqual(t, work.Installed, 1)
	assert.FileExists(t, filepath.Join(dir, "Y", "f"))
}

func TestSeedRefusesNonEmpty(t *testing.T) {
	dir := seedWC(t)

	_, err := execute(t, "--wc", dir, "seed", "testdata/fixtures/moved-dir.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not empty")
}

func TestBreakMoveNotMoved(t *testing.T) {
	dir := seedWC(t)

	_, err := execute(t, "--wc", dir, "break-move", "Z")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestBumpInvalidOperation(t *testing.T) {
	dir := seedWC(t)

	_, err := execute(t, "--wc", dir, "bump", "X", "--operation", "merge")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid operation")
}

func TestInvalidMatchPattern(t *testing.T) {
	dir := seedWC(t)

	_, err := execute(t, "--wc", dir, "info", "--match", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNotAWorkingCopy(t *testing.T) {
	out, err := execute(t, "--wc", t.TempDir(), "--format", "json", "conflicts")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCommand, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "not a working copy")
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--wc", t.TempDir(), "--format", "xml", "conflicts")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--wc", t.TempDir(), "--log-level", "loud", "conflicts")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid log level")
}
