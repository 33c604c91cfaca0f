package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/wc"
)

func TestGetInfo_ChildrenSortedBytewise(t *testing.T) {
	s := createTestStore(t)
	seedRows(t, s,
		baseRow("", wc.KindDir, 1),
		baseRow("A", wc.KindDir, 1),
		baseRow("A/b", wc.KindFile, 1),
		baseRow("A/B", wc.KindFile, 1),
		baseRow("A/a-", wc.KindFile, 1),
		baseRow("A/a", wc.KindDir, 1),
		baseRow("A/a/deep", wc.KindFile, 1),
	)

	inTx(t, s, func(tx *Tx) {
		info, err := tx.GetInfo("A", 0)
		require.NoError(t, err)
		assert.Equal(t, wc.KindDir, info.Kind)
		assert.Equal(t, []string{"B", "a", "a-", "b"}, info.Children)
	})
}

func TestGetInfo_AbsentAndDeletedRowsHaveNoKind(t *testing.T) {
	s := createTestStore(t)
	seedRows(t, s,
		baseRow("", wc.KindDir, 1),
		baseRow("A", wc.KindDir, 1),
		baseRow("A/f", wc.KindFile, 1),
		wc.NodeRow{Relpath: "A", OpDepth: 1, Presence: wc.PresenceBaseDeleted, Kind: wc.KindDir},
		wc.NodeRow{Relpath: "A/f", OpDepth: 1, Presence: wc.PresenceBaseDeleted, Kind: wc.KindFile},
	)

	inTx(t, s, func(tx *Tx) {
		info, err := tx.GetInfo("A", 1)
		require.NoError(t, err)
		assert.False(t, info.Exists())

		info, err = tx.GetInfo("missing", 0)
		require.NoError(t, err)
		assert.False(t, info.Exists())

		file, err := tx.GetInfo("A/f", 0)
		require.NoError(t, err)
		assert.Equal(t, wc.KindFile, file.Kind)
		assert.Empty(t, file.Children)
	})
}

func TestLayerLookups(t *testing.T) {
	s := createTestStore(t)
	seedRows(t, s,
		baseRow("", wc.KindDir, 1),
		baseRow("X", wc.KindDir, 1),
		wc.NodeRow{Relpath: "X", OpDepth: 1, Presence: wc.PresenceBaseDeleted, Kind: wc.KindDir,
			MovedTo: &wc.Ref{Relpath: "Y", OpDepth: 1}},
		wc.NodeRow{Relpath: "X", OpDepth: 3, Presence: wc.PresenceNormal, Kind: wc.KindDir},
	)

	inTx(t, s, func(tx *Tx) {
		low, ok, err := tx.LowestAbove("X", 0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, low.OpDepth)
		require.NotNil(t, low.MovedTo)
		assert.Equal(t, "Y", low.MovedTo.Relpath)

		high, ok, err := tx.HighestBelow("X", 3)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, high.OpDepth)

		_, ok, err = tx.HighestBelow("X", 0)
		require.NoError(t, err)
		assert.False(t, ok)

		top, ok, err := tx.Working("X")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 3, top.OpDepth)

		layers, err := tx.NodeLayers("X")
		require.NoError(t, err)
		require.Len(t, layers, 3)
		assert.Equal(t, []int{0, 1, 3}, []int{layers[0].OpDepth, layers[1].OpDepth, layers[2].OpDepth})
	})
}

func TestLayerSubtree_ExcludesPrefixSiblings(t *testing.T) {
	s := createTestStore(t)
	seedRows(t, s,
		baseRow("", wc.KindDir, 1),
		baseRow("A", wc.KindDir, 1),
		baseRow("A/x", wc.KindFile, 1),
		baseRow("A-b", wc.KindFile, 1),
		baseRow("AB", wc.KindFile, 1),
	)

	inTx(t, s, func(tx *Tx) {
		rows, err := tx.LayerSubtree("A", 0)
		require.NoError(t, err)
		var paths []string
		for _, r := range rows {
			paths = append(paths, r.Relpath)
		}
		assert.Equal(t, []string{"A", "A/x"}, paths)

		all, err := tx.LayerSubtree("", 0)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})
}

func TestMovesInSubtree_OuterFirst(t *testing.T) {
	s := createTestStore(t)
	seedRows(t, s,
		baseRow("", wc.KindDir, 1),
		baseRow("A", wc.KindDir, 1),
		baseRow("A/B", wc.KindDir, 1),
		wc.NodeRow{Relpath: "A/B", OpDepth: 2, Presence: wc.PresenceBaseDeleted, Kind: wc.KindDir,
			MovedTo: &wc.Ref{Relpath: "C", OpDepth: 1}},
		wc.NodeRow{Relpath: "A", OpDepth: 1, Presence: wc.PresenceBaseDeleted, Kind: wc.KindDir,
			MovedTo: &wc.Ref{Relpath: "D", OpDepth: 1}},
	)

	inTx(t, s, func(tx *Tx) {
		moves, err := tx.MovesInSubtree("A")
		require.NoError(t, err)
		require.Len(t, moves, 2)
		assert.Equal(t, Move{SrcRelpath: "A", SrcOpDepth: 1, DstRelpath: "D", DstOpDepth: 1}, moves[0])
		assert.Equal(t, "A/B", moves[1].SrcRelpath)

		src, ok, err := tx.MoveSource("C", 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "A/B", src.Relpath)
	})
}

func TestRevisionRange(t *testing.T) {
	s := createTestStore(t)
	switched := baseRow("X/s", wc.KindFile, 2)
	switched.ReposRelpath = "elsewhere/s"
	seedRows(t, s,
		baseRow("", wc.KindDir, 2),
		baseRow("X", wc.KindDir, 2),
		baseRow("X/a", wc.KindFile, 2),
		baseRow("Y", wc.KindDir, 2),
		baseRow("Y/old", wc.KindFile, 1),
		switched,
	)

	inTx(t, s, func(tx *Tx) {
		lo, hi, sw, ok, err := tx.RevisionRange("X", 0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(2), lo)
		assert.Equal(t, int64(2), hi)
		assert.True(t, sw, "X/s is switched relative to X")

		lo, hi, sw, _, err = tx.RevisionRange("Y", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), lo)
		assert.Equal(t, int64(2), hi)
		assert.False(t, sw)

		_, _, sw, _, err = tx.RevisionRange("X/s", 0)
		require.NoError(t, err)
		assert.False(t, sw, "a switched root is allowed")
	})
}
