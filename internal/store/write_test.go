package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/wc"
)

func TestInsertNode_RoundTripsEveryColumn(t *testing.T) {
	s := createTestStore(t)
	row := wc.NodeRow{
		Relpath:      "Y/f",
		OpDepth:      1,
		ReposID:      1,
		ReposRelpath: "X/f",
		Revision:     7,
		Presence:     wc.PresenceNormal,
		Kind:         wc.KindFile,
		Checksum:     wc.ComputeChecksum([]byte("hi")),
		Props:        wc.Props{"k": "v"},
		Depth:        wc.DepthInfinity,
		MovedHere:    true,
		MovedFrom:    &wc.Ref{Relpath: "X/f", OpDepth: 1},
	}
	seedRows(t, s, row)

	inTx(t, s, func(tx *Tx) {
		got, err := tx.GetNode("Y/f", 1)
		require.NoError(t, err)
		assert.Equal(t, row, got)
	})
}

func TestInsertNode_ReplacesSameLayer(t *testing.T) {
	s := createTestStore(t)
	seedRows(t, s, baseRow("", wc.KindDir, 1), baseRow("f", wc.KindFile, 1))

	inTx(t, s, func(tx *Tx) {
		require.NoError(t, tx.InsertNode(baseRow("f", wc.KindFile, 2)))
		layers, err := tx.NodeLayers("f")
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.Equal(t, int64(2), layers[0].Revision)
	})
}

func TestDeleteHelpers(t *testing.T) {
	s := createTestStore(t)
	seedRows(t, s,
		baseRow("", wc.KindDir, 1),
		baseRow("A", wc.KindDir, 1),
		baseRow("A/f", wc.KindFile, 1),
		wc.NodeRow{Relpath: "A", OpDepth: 1, Presence: wc.PresenceNormal, Kind: wc.KindDir},
		wc.NodeRow{Relpath: "A/f", OpDepth: 1, Presence: wc.PresenceNormal, Kind: wc.KindFile},
		wc.NodeRow{Relpath: "A/f", OpDepth: 2, Presence: wc.PresenceBaseDeleted, Kind: wc.KindFile},
	)

	inTx(t, s, func(tx *Tx) {
		require.NoError(t, tx.DeleteAbove("A", 1))
		above, err := tx.RowsAbove("A", 1)
		require.NoError(t, err)
		assert.Empty(t, above)

		require.NoError(t, tx.DeleteLayerSubtree("A", 1))
		rows, err := tx.RowsAbove("", 0)
		require.NoError(t, err)
		assert.Empty(t, rows)

		base, err := tx.LayerSubtree("A", 0)
		require.NoError(t, err)
		assert.Len(t, base, 2)
	})
}

func TestMoveLinks(t *testing.T) {
	s := createTestStore(t)
	seedRows(t, s,
		baseRow("", wc.KindDir, 1),
		baseRow("X", wc.KindDir, 1),
		wc.NodeRow{Relpath: "X", OpDepth: 1, Presence: wc.PresenceBaseDeleted, Kind: wc.KindDir},
		wc.NodeRow{Relpath: "Y", OpDepth: 1, Presence: wc.PresenceNormal, Kind: wc.KindDir,
			MovedHere: true, MovedFrom: &wc.Ref{Relpath: "X", OpDepth: 1}},
		wc.NodeRow{Relpath: "Y/f", OpDepth: 1, Presence: wc.PresenceNormal, Kind: wc.KindFile, MovedHere: true},
	)

	inTx(t, s, func(tx *Tx) {
		require.NoError(t, tx.SetMovedTo("X", 1, &wc.Ref{Relpath: "Y", OpDepth: 1}))
		moves, err := tx.MovesInSubtree("")
		require.NoError(t, err)
		require.Len(t, moves, 1)

		require.NoError(t, tx.SetMovedTo("X", 1, nil))
		require.NoError(t, tx.ClearMovedHere("Y", 1))

		rows, err := tx.SubtreeRows("")
		require.NoError(t, err)
		for _, r := range rows {
			assert.Nil(t, r.MovedTo, r.Relpath)
			assert.False(t, r.MovedHere, r.Relpath)
			assert.Nil(t, r.MovedFrom, r.Relpath)
		}

		assert.ErrorIs(t, tx.SetMovedTo("nope", 1, nil), ErrNodeNotFound)
	})
}

func TestRemoveOrphanDeletes(t *testing.T) {
	s := createTestStore(t)
	seedRows(t, s,
		baseRow("", wc.KindDir, 1),
		baseRow("A", wc.KindDir, 1),
		wc.NodeRow{Relpath: "A", OpDepth: 2, Presence: wc.PresenceBaseDeleted, Kind: wc.KindDir},
		wc.NodeRow{Relpath: "A/gone", OpDepth: 2, Presence: wc.PresenceBaseDeleted, Kind: wc.KindFile},
	)

	inTx(t, s, func(tx *Tx) {
		require.NoError(t, tx.RemoveOrphanDeletes("A", 0))
		rows, err := tx.RowsAbove("A", 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "A", rows[0].Relpath)
	})
}
