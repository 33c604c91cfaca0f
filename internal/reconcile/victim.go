package reconcile

import (
	"errors"
	"fmt"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
)

// reconcileVictim resolves a moved-away tree conflict by carrying the
// incoming change through the move.
func (op *operation) reconcileVictim(victim string) error {
	actual, ok, err := op.tx.GetActual(victim)
	if err != nil {
		return err
	}
	if !ok || actual.Conflict == nil {
		return NewNotAVictimError(victim, "path has no conflict")
	}
	skel := actual.Conflict
	tc, ok := skel.Tree()
	if !ok {
		return NewNotAVictimError(victim, "path has no tree conflict")
	}
	if tc.Reason != wc.ReasonMovedAway {
		return NewNotAVictimError(victim, fmt.Sprintf("tree conflict reason is %s, not %s", tc.Reason, wc.ReasonMovedAway))
	}
	if skel.Operation != wc.OpUpdate && skel.Operation != wc.OpSwitch {
		return NewNotAVictimError(victim, fmt.Sprintf("conflict was raised by %q, not update or switch", skel.Operation))
	}

	srcRoot := tc.MoveSrcOpRoot
	if srcRoot == "" {
		srcRoot = victim
	}
	srcOpDepth := wc.RelpathDepth(srcRoot)
	row, err := op.tx.GetNode(srcRoot, srcOpDepth)
	if errors.Is(err, store.ErrNodeNotFound) {
		return NewNotMovedAwayError(srcRoot)
	}
	if err != nil {
		return err
	}
	if row.MovedTo == nil {
		return NewNotMovedAwayError(srcRoot)
	}

	m := store.Move{
		SrcRelpath: srcRoot,
		SrcOpDepth: srcOpDepth,
		DstRelpath: row.MovedTo.Relpath,
		DstOpDepth: row.MovedTo.OpDepth,
	}
	mv, err := op.loadMove(m, skel.Operation)
	if err != nil {
		return err
	}

	minRev, maxRev, switched, ok, err := op.tx.RevisionRange(srcRoot, mv.srcLayer)
	if err != nil {
		return err
	}
	if ok && minRev != maxRev {
		return NewMixedRevisionError(srcRoot, minRev, maxRev)
	}
	if switched {
		return NewSwitchedSourceError(srcRoot)
	}

	if err := op.updateMove(mv); err != nil {
		return err
	}
	st := &bumpState{
		operation: skel.Operation,
		abandon:   mapsetOf(),
		processed: mapsetOf(srcRoot),
	}
	if err := op.bumpMoves(mv.dstRoot, mv.dstOpDepth, wc.DepthInfinity, st); err != nil {
		return err
	}

	// The walk only writes below the destination, but re-read in case the
	// victim lives there too.
	actual, _, err = op.tx.GetActual(victim)
	if err != nil {
		return err
	}
	skel = actual.Conflict
	if skel == nil {
		return nil
	}
	if skel.Remove(wc.MarkerTree) {
		skel = nil
	}
	return op.tx.SetConflict(victim, skel)
}
