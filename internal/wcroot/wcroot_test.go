package wcroot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/config"
	"github.com/roach88/wcmove/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		WCRoot:      t.TempDir(),
		AdminDir:    config.DefaultAdminDir,
		CacheSize:   4,
		BusyTimeout: 1000,
		LogLevel:    "info",
		Format:      "text",
	}
}

func TestOpen_NotAWorkingCopy(t *testing.T) {
	_, err := Open(testConfig(t), ReadWrite, nil)
	assert.ErrorIs(t, err, ErrNotAWorkingCopy)
}

func TestOpen_CreateThenReopen(t *testing.T) {
	cfg := testConfig(t)

	w, err := Open(cfg, Create, nil)
	require.NoError(t, err)
	err = w.Store.WithTx(context.Background(), func(tx *store.Tx) error {
		_, err := tx.EnsureRepository("file:///repo", "00000000-0000-0000-0000-000000000001")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = Open(cfg, ReadOnly, nil)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, cfg.WCRoot, w.Files.Root())
	assert.NotNil(t, w.Engine())
	assert.NotNil(t, w.Runner())
}

func TestOpen_Locked(t *testing.T) {
	cfg := testConfig(t)
	w, err := Open(cfg, Create, nil)
	require.NoError(t, err)
	defer w.Close()

	// flock locks are per file description, so a second open in the same
	// process contends like another process would.
	_, err = Open(cfg, ReadWrite, nil)
	assert.True(t, errors.Is(err, ErrLocked), "got %v", err)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Format = "xml"
	_, err := Open(cfg, Create, nil)
	assert.Error(t, err)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "read-only", ReadOnly.String())
	assert.Equal(t, "create", Create.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}
