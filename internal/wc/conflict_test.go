package wc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictSkelKeepsVariants(t *testing.T) {
	old := Location{ReposRoot: "file:///repo", ReposRelpath: "X/g", Revision: 1, Kind: KindFile}
	skel := NewConflictSkel(OpUpdate, old, old.Reroot("", KindNone))

	require.NoError(t, skel.Add(TreeConflict{Reason: ReasonEdited, Action: ActionDelete}))
	require.NoError(t, skel.Add(PropConflict{Names: []string{"k"}, Base: Props{"k": "1"}}))
	assert.Error(t, skel.Add(TreeConflict{Reason: ReasonDeleted, Action: ActionDelete}),
		"one marker per kind")

	data, err := json.Marshal(skel)
	require.NoError(t, err)

	var back ConflictSkel
	require.NoError(t, json.Unmarshal(data, &back))

	tree, ok := back.Tree()
	require.True(t, ok)
	assert.Equal(t, ReasonEdited, tree.Reason)
	prop, ok := back.Prop()
	require.True(t, ok)
	assert.Equal(t, []string{"k"}, prop.Names)
	_, ok = back.Text()
	assert.False(t, ok)
	assert.Equal(t, "X/g", back.Old.ReposRelpath)

	assert.False(t, back.Remove(MarkerTree))
	assert.True(t, back.Remove(MarkerProp))
}

func TestConflictSkelRejectsMalformedEnvelope(t *testing.T) {
	var skel ConflictSkel
	err := json.Unmarshal([]byte(`{"operation":"update","markers":[{"kind":"tree"}]}`), &skel)
	assert.Error(t, err)
}

func TestTreeConflictSameAs(t *testing.T) {
	a := TreeConflict{Reason: ReasonMovedAway, Action: ActionEdit, MoveSrcOpRoot: "X"}
	assert.True(t, a.SameAs(a))
	assert.False(t, a.SameAs(TreeConflict{Reason: ReasonMovedAway, Action: ActionDelete, MoveSrcOpRoot: "X"}))
}
