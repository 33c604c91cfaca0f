package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/testutil"
	"github.com/roach88/wcmove/internal/wc"
)

func TestReconcileMovedSubtree(t *testing.T) {
	w := movedWC(t, testutil.File("X/g", 1, "g\n"))
	w.UpdateBase(
		testutil.Dir("X", 2),
		testutil.File("X/g", 2, "g\n"),
		testutil.File("X/f", 2, "hi"),
	)
	w.RaiseVictim("X", 1, 2)

	res, err := newTestEngine(w).ReconcileMovedSubtree(context.Background(), "X")
	require.NoError(t, err)

	require.Len(t, res.Notifications, 1)
	assert.Equal(t, "Y/f", res.Notifications[0].Path)
	assert.Equal(t, wc.NotifyAdded, res.Notifications[0].Action)
	assert.Nil(t, w.Conflict("X"))
	_, ok := w.Actual("X")
	assert.False(t, ok, "an empty ACTUAL row is pruned")

	row, ok := w.Row("Y/f", 1)
	require.True(t, ok)
	assert.True(t, row.MovedHere)

	w.RunWork()
	assert.Equal(t, "hi", w.ReadFile("Y/f"))
}

func TestReconcileMovedSubtree_KeepsOtherMarkers(t *testing.T) {
	w := movedWC(t)
	w.UpdateBase(testutil.Dir("X", 2))
	w.RaiseVictim("X", 1, 2)

	skel := w.Conflict("X")
	require.NoError(t, skel.Add(wc.PropConflict{Names: []string{"p"}}))
	w.SetConflict("X", skel)

	_, err := newTestEngine(w).ReconcileMovedSubtree(context.Background(), "X")
	require.NoError(t, err)

	left := w.Conflict("X")
	require.NotNil(t, left)
	_, hasTree := left.Tree()
	assert.False(t, hasTree)
	_, hasProp := left.Prop()
	assert.True(t, hasProp)
}

func TestReconcileMovedSubtree_NotAVictim(t *testing.T) {
	tests := []struct {
		name  string
		setup func(w *testutil.WC)
	}{
		{
			name:  "no conflict",
			setup: func(w *testutil.WC) {},
		},
		{
			name: "wrong reason",
			setup: func(w *testutil.WC) {
				skel := wc.NewConflictSkel(wc.OpUpdate, wc.Location{}, wc.Location{})
				require.NoError(t, skel.Add(wc.TreeConflict{Reason: wc.ReasonDeleted, Action: wc.ActionEdit}))
				w.SetConflict("X", skel)
			},
		},
		{
			name: "raised by merge",
			setup: func(w *testutil.WC) {
				skel := wc.NewConflictSkel(wc.Operation("merge"), wc.Location{}, wc.Location{})
				require.NoError(t, skel.Add(wc.TreeConflict{Reason: wc.ReasonMovedAway, Action: wc.ActionEdit}))
				w.SetConflict("X", skel)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := movedWC(t)
			tt.setup(w)

			_, err := newTestEngine(w).ReconcileMovedSubtree(context.Background(), "X")
			require.Error(t, err)
			assert.Equal(t, ErrCodeNotAVictim, CodeOf(err))
			assert.True(t, IsPrecondition(err))
		})
	}
}

func TestReconcileMovedSubtree_NotMovedAway(t *testing.T) {
	w := testutil.NewWC(t)
	w.Checkout(testutil.Dir("X", 1))
	w.RaiseVictim("X", 1, 2)

	_, err := newTestEngine(w).ReconcileMovedSubtree(context.Background(), "X")
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotMovedAway, CodeOf(err))
	assert.NotNil(t, w.Conflict("X"))
}

func TestReconcileMovedSubtree_MixedRevision(t *testing.T) {
	w := movedWC(t, testutil.File("X/g", 1, "g\n"))
	w.UpdateBase(testutil.File("X/g", 2, "g2\n"))
	w.RaiseVictim("X", 1, 2)
	before := w.Rows("")

	_, err := newTestEngine(w).ReconcileMovedSubtree(context.Background(), "X")
	require.Error(t, err)
	assert.Equal(t, ErrCodeMixedRevision, CodeOf(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "1", re.Details["min_revision"])
	assert.Equal(t, "2", re.Details["max_revision"])

	assert.Equal(t, before, w.Rows(""))
	assert.NotNil(t, w.Conflict("X"))
	assert.Empty(t, w.Work())
}

func TestReconcileMovedSubtree_SwitchedSource(t *testing.T) {
	w := movedWC(t, testutil.File("X/g", 1, "g\n"))
	w.UpdateBase(testutil.Dir("X", 2), testutil.File("X/g", 2, "g\n"))
	row, ok := w.Row("X/g", 0)
	require.True(t, ok)
	row.ReposRelpath = "elsewhere/g"
	w.Tx(func(tx *store.Tx) {
		require.NoError(t, tx.InsertNode(row))
	})
	w.RaiseVictim("X", 1, 2)
	before := w.Rows("")

	_, err := newTestEngine(w).ReconcileMovedSubtree(context.Background(), "X")
	require.Error(t, err)
	assert.Equal(t, ErrCodeSwitchedSource, CodeOf(err))

	assert.Equal(t, before, w.Rows(""))
	tc, ok := w.Conflict("X").Tree()
	require.True(t, ok)
	assert.Equal(t, wc.ReasonMovedAway, tc.Reason)
	assert.Empty(t, w.Work())
}
