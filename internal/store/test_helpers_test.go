package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/wc"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// inTx runs fn in a committed transaction and fails the test on error.
func inTx(t *testing.T, s *Store, fn func(tx *Tx)) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		fn(tx)
		return nil
	})
	require.NoError(t, err)
}

// baseRow builds a present BASE row in repository 1 at revision rev.
func baseRow(relpath string, kind wc.Kind, rev int64) wc.NodeRow {
	return wc.NodeRow{
		Relpath:      relpath,
		OpDepth:      0,
		ReposID:      1,
		ReposRelpath: relpath,
		Revision:     rev,
		Presence:     wc.PresenceNormal,
		Kind:         kind,
	}
}

// seedRows inserts the repository and rows in one transaction.
func seedRows(t *testing.T, s *Store, rows ...wc.NodeRow) {
	t.Helper()
	inTx(t, s, func(tx *Tx) {
		id, err := tx.EnsureRepository("file:///repo", "00000000-0000-0000-0000-000000000001")
		require.NoError(t, err)
		require.Equal(t, int64(1), id)
		for _, row := range rows {
			require.NoError(t, tx.InsertNode(row))
		}
	})
}
