package reconcile

import (
	"fmt"

	"github.com/roach88/wcmove/internal/wc"
)

// suppressed reports whether path lies at or below the current conflict
// root.
func (w *walker) suppressed(path string) bool {
	return w.inConflict && wc.IsAncestor(w.conflictRoot, path)
}

// checkTreeConflict decides whether an edit at path collides with a local
// change in a layer above the destination. It returns true when the edit
// must be skipped; in that case a tree conflict has been recorded at the
// root of the local change (or was already covered by an earlier one).
func (w *walker) checkTreeConflict(path string, oldKind, newKind wc.Kind, action wc.Action) (bool, error) {
	if w.suppressed(path) {
		return true, nil
	}

	row, ok, err := w.tx.LowestAbove(path, w.mv.dstOpDepth)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	// Local changes are rooted where their op-depth says; report the
	// conflict there and treat everything in between as an edit.
	root := wc.AncestorAtDepth(path, row.OpDepth)
	rootRow := row
	if root != path {
		rootRow, err = w.tx.GetNode(root, row.OpDepth)
		if err != nil {
			return false, err
		}
		action = wc.ActionEdit
		oldKind, newKind = wc.KindDir, wc.KindDir
	}

	if rootRow.MovedTo != nil {
		nested, err := w.feedsNestedMove(root, rootRow.OpDepth)
		if err != nil {
			return false, err
		}
		removed := action == wc.ActionDelete || action == wc.ActionReplace
		if nested && !removed {
			// The move out of this destination is updated right after this
			// one; leave its subtree alone.
			w.conflictRoot = root
			w.inConflict = true
			return true, nil
		}
		if nested {
			// The incoming change removes what the nested move was made
			// from. Its destination stays as a plain copy and the move
			// source gets the conflict.
			if err := w.breakMovesBelow(root); err != nil {
				return false, err
			}
			tc := wc.TreeConflict{Reason: wc.ReasonMovedAway, Action: action, MoveSrcOpRoot: root}
			return true, w.markTreeConflict(root, tc, oldKind, newKind)
		}
	}

	tc := wc.TreeConflict{Reason: localReason(rootRow, action), Action: action}
	if tc.Reason == wc.ReasonMovedAway {
		tc.MoveSrcOpRoot = root
	}
	return true, w.markTreeConflict(root, tc, oldKind, newKind)
}

// feedsNestedMove reports whether the move recorded at (root, opDepth)
// takes its source from the destination layer being rewritten.
func (w *walker) feedsNestedMove(root string, opDepth int) (bool, error) {
	below, ok, err := w.tx.HighestBelow(root, opDepth)
	if err != nil || !ok {
		return false, err
	}
	return below.OpDepth == w.mv.dstOpDepth, nil
}

// breakMovesBelow breaks the moves whose source lies at or below path in a
// layer above the destination, so that rows of those sources can go away
// without leaving a destination that points at nothing.
func (w *walker) breakMovesBelow(path string) error {
	moves, err := w.tx.MovesInSubtree(path)
	if err != nil {
		return err
	}
	for _, m := range moves {
		if m.SrcOpDepth <= w.mv.dstOpDepth {
			continue
		}
		if err := w.breakMove(m); err != nil {
			return err
		}
	}
	return nil
}

// localReason classifies the local change whose op root row is given.
func localReason(row wc.NodeRow, action wc.Action) wc.Reason {
	switch {
	case row.MovedTo != nil:
		return wc.ReasonMovedAway
	case row.Presence.IsDelete():
		return wc.ReasonDeleted
	case action == wc.ActionAdd:
		return wc.ReasonAdded
	default:
		return wc.ReasonReplaced
	}
}

// markTreeConflict records tc at a destination path and makes it the
// current conflict root.
func (w *walker) markTreeConflict(path string, tc wc.TreeConflict, oldKind, newKind wc.Kind) error {
	oldLoc, newLoc := w.locations(path, oldKind, newKind)
	if err := w.raiseTreeConflict(path, w.mv.operation, oldLoc, newLoc, tc); err != nil {
		return err
	}
	w.conflictRoot = path
	w.inConflict = true
	return nil
}

// locations returns the old and new repository locations of a destination
// path.
func (w *walker) locations(path string, oldKind, newKind wc.Kind) (wc.Location, wc.Location) {
	rel, _ := wc.SkipAncestor(w.mv.dstRoot, path)
	return w.mv.oldLoc.Reroot(rel, oldKind), w.mv.newLoc.Reroot(rel, newKind)
}

// recordMarker attaches a text or property marker to path's conflict
// record, creating the record if needed.
func (w *walker) recordMarker(path string, m wc.Marker, kind wc.Kind) error {
	actual, ok, err := w.tx.GetActual(path)
	if err != nil {
		return err
	}
	skel := actual.Conflict
	if !ok || skel == nil {
		oldLoc, newLoc := w.locations(path, kind, kind)
		skel = wc.NewConflictSkel(w.mv.operation, oldLoc, newLoc)
	}
	if err := skel.Add(m); err != nil {
		return &Error{
			Code:    ErrCodeAlreadyConflicted,
			Message: err.Error(),
			Path:    path,
		}
	}
	return w.tx.SetConflict(path, skel)
}

// raiseTreeConflict stores a tree conflict on path and queues its
// notification. An identical marker already present is left alone; a
// different one is a consistency error.
func (op *operation) raiseTreeConflict(path string, operation wc.Operation, oldLoc, newLoc wc.Location, tc wc.TreeConflict) error {
	actual, ok, err := op.tx.GetActual(path)
	if err != nil {
		return err
	}
	skel := actual.Conflict
	if !ok || skel == nil {
		skel = wc.NewConflictSkel(operation, oldLoc, newLoc)
	}
	if existing, has := skel.Tree(); has {
		if existing.SameAs(tc) {
			return nil
		}
		return NewAlreadyConflictedError(path, describeTree(existing), describeTree(tc))
	}
	if err := skel.Add(tc); err != nil {
		return err
	}
	if err := op.tx.SetConflict(path, skel); err != nil {
		return err
	}

	kind := newLoc.Kind
	if kind == wc.KindNone {
		kind = oldLoc.Kind
	}
	op.spool.Enqueue(wc.Notification{
		Path:   path,
		Action: wc.NotifyTreeConflict,
		Kind:   kind,
	})
	op.logger.Info("tree conflict",
		"path", path,
		"reason", tc.Reason,
		"action", tc.Action,
	)
	return nil
}

func describeTree(tc wc.TreeConflict) string {
	if tc.MoveSrcOpRoot != "" {
		return fmt.Sprintf("%s/%s (move %q)", tc.Reason, tc.Action, tc.MoveSrcOpRoot)
	}
	return fmt.Sprintf("%s/%s", tc.Reason, tc.Action)
}
