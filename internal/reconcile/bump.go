package reconcile

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
)

// bumpState is shared by the recursive steps of one propagation.
type bumpState struct {
	operation wc.Operation
	abandon   mapset.Set[string]
	// processed holds the move sources already handled in this run.
	processed mapset.Set[string]
}

// propagateBump reconciles every move fed by the layer that was bumped
// under root.
func (op *operation) propagateBump(root string, layer int, opts BumpOptions) error {
	st := &bumpState{
		operation: opts.Operation,
		abandon:   mapsetOf(),
		processed: mapsetOf(),
	}
	for _, p := range opts.Abandon {
		norm, err := wc.Normalize(p)
		if err != nil {
			return err
		}
		st.abandon.Add(norm)
	}

	// A bump that only reached part of a move source cannot be carried to
	// the destination; flag the move instead.
	if m, ok, err := op.enclosingMove(root, layer); err != nil {
		return err
	} else if ok {
		mv, err := op.loadMove(m, st.operation)
		if err != nil {
			return err
		}
		return op.raiseMoveConflict(mv)
	}

	return op.bumpMoves(root, layer, opts.Depth, st)
}

// enclosingMove returns the move whose source root lies strictly above
// path, if path sits inside a moved-away subtree of layer.
func (op *operation) enclosingMove(path string, layer int) (store.Move, bool, error) {
	if path == "" {
		return store.Move{}, false, nil
	}
	row, ok, err := op.tx.LowestAbove(path, layer)
	if err != nil || !ok || !row.Presence.IsDelete() {
		return store.Move{}, false, err
	}
	opRoot := wc.AncestorAtDepth(path, row.OpDepth)
	if opRoot == path {
		return store.Move{}, false, nil
	}
	rootRow, err := op.tx.GetNode(opRoot, row.OpDepth)
	if err != nil {
		return store.Move{}, false, err
	}
	if rootRow.MovedTo == nil {
		return store.Move{}, false, nil
	}
	return store.Move{
		SrcRelpath: opRoot,
		SrcOpDepth: row.OpDepth,
		DstRelpath: rootRow.MovedTo.Relpath,
		DstOpDepth: rootRow.MovedTo.OpDepth,
	}, true, nil
}

// bumpMoves handles the moves whose source is fed directly by layer at or
// below root, outer moves first, then recurses into each updated
// destination.
func (op *operation) bumpMoves(root string, layer int, depth wc.Depth, st *bumpState) error {
	moves, err := op.tx.MovesInSubtree(root)
	if err != nil {
		return err
	}
	for _, m := range moves {
		if err := op.tx.Context().Err(); err != nil {
			return err
		}
		if m.SrcOpDepth <= layer || st.processed.Contains(m.SrcRelpath) {
			continue
		}
		below, ok, err := op.tx.HighestBelow(m.SrcRelpath, m.SrcOpDepth)
		if err != nil {
			return err
		}
		// Moves out of another move's destination follow that layer and
		// are reached through it.
		if !ok || below.OpDepth != layer {
			continue
		}
		moveDepth, inside := bumpedDepth(root, m.SrcRelpath, depth, below.Kind)
		if !inside {
			continue
		}
		st.processed.Add(m.SrcRelpath)

		if st.abandon.Contains(m.SrcRelpath) {
			if err := op.breakMove(m); err != nil {
				return err
			}
			continue
		}

		mv, err := op.loadMove(m, st.operation)
		if err != nil {
			return err
		}
		sufficient, err := op.depthSufficient(m.SrcRelpath, layer, moveDepth)
		if err != nil {
			return err
		}
		if !sufficient {
			if err := op.raiseMoveConflict(mv); err != nil {
				return err
			}
			continue
		}
		if err := op.updateMove(mv); err != nil {
			return err
		}
		// Sufficiency is taken for granted below: the destination layer was
		// just rewritten in full.
		if err := op.bumpMoves(mv.dstRoot, mv.dstOpDepth, wc.DepthInfinity, st); err != nil {
			return err
		}
	}
	return nil
}

// bumpedDepth returns the depth a bump of root to depth reached at src,
// and false if the bump did not reach src at all.
func bumpedDepth(root, src string, depth wc.Depth, kind wc.Kind) (wc.Depth, bool) {
	if src == root || depth == wc.DepthInfinity {
		return depth, true
	}
	if wc.Dirname(src) != root || !depth.Includes(kind) {
		return "", false
	}
	return depth.Child(), true
}

// depthSufficient reports whether a bump to depth covered the whole source
// subtree of a move.
func (op *operation) depthSufficient(src string, layer int, depth wc.Depth) (bool, error) {
	if depth == wc.DepthInfinity {
		return true, nil
	}
	rows, err := op.tx.LayerSubtree(src, layer)
	if err != nil {
		return false, err
	}
	base := wc.RelpathDepth(src)
	for _, row := range rows {
		if row.Relpath == src || row.Presence != wc.PresenceNormal {
			continue
		}
		below := wc.RelpathDepth(row.Relpath) - base
		switch depth {
		case wc.DepthImmediates:
			if below > 1 {
				return false, nil
			}
		case wc.DepthFiles:
			if below > 1 || row.Kind == wc.KindDir {
				return false, nil
			}
		default:
			return false, nil
		}
	}
	return true, nil
}

// raiseMoveConflict flags a move whose source the incoming change could
// not be carried through. The conflict sits on the source root and can be
// resolved later with ReconcileMovedSubtree.
func (op *operation) raiseMoveConflict(mv *move) error {
	tc := wc.TreeConflict{
		Reason:        wc.ReasonMovedAway,
		Action:        wc.ActionEdit,
		MoveSrcOpRoot: mv.srcRoot,
	}
	return op.raiseTreeConflict(mv.srcRoot, mv.operation, mv.oldLoc, mv.newLoc, tc)
}

func mapsetOf(items ...string) mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(items...)
}
