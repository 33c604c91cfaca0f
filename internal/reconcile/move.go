package reconcile

import (
	"errors"
	"fmt"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
)

// move is the read-only context of one move being reconciled. It is built
// once per move and shared by every step of the pipeline.
type move struct {
	srcRoot string
	// srcOpDepth is the op-depth of the delete that records the move.
	srcOpDepth int
	// srcLayer is the layer below the delete that the destination follows:
	// BASE for a plain move, another move's destination for a nested one.
	srcLayer int

	dstRoot    string
	dstOpDepth int

	operation wc.Operation
	// oldLoc describes the destination root as it was copied, newLoc the
	// source root after the incoming change.
	oldLoc wc.Location
	newLoc wc.Location
}

func (mv *move) String() string {
	return fmt.Sprintf("%s@%d -> %s@%d", mv.srcRoot, mv.srcOpDepth, mv.dstRoot, mv.dstOpDepth)
}

// loadMove resolves a recorded move into its pipeline context.
func (op *operation) loadMove(m store.Move, operation wc.Operation) (*move, error) {
	below, ok, err := op.tx.HighestBelow(m.SrcRelpath, m.SrcOpDepth)
	if err != nil {
		return nil, err
	}
	if !ok || below.Presence != wc.PresenceNormal {
		return nil, &Error{
			Code:    ErrCodeNotMovedAway,
			Message: "move source has no node below its delete",
			Path:    m.SrcRelpath,
		}
	}

	dstRow, err := op.tx.GetNode(m.DstRelpath, m.DstOpDepth)
	if errors.Is(err, store.ErrNodeNotFound) {
		return nil, &Error{
			Code:    ErrCodeNotMovedAway,
			Message: fmt.Sprintf("move destination %q@%d is missing", m.DstRelpath, m.DstOpDepth),
			Path:    m.SrcRelpath,
		}
	}
	if err != nil {
		return nil, err
	}

	oldLoc, err := op.location(dstRow)
	if err != nil {
		return nil, err
	}
	newLoc, err := op.location(below)
	if err != nil {
		return nil, err
	}
	return &move{
		srcRoot:    m.SrcRelpath,
		srcOpDepth: m.SrcOpDepth,
		srcLayer:   below.OpDepth,
		dstRoot:    m.DstRelpath,
		dstOpDepth: m.DstOpDepth,
		operation:  operation,
		oldLoc:     oldLoc,
		newLoc:     newLoc,
	}, nil
}

// location builds the repository location a row was checked out or copied
// from.
func (op *operation) location(row wc.NodeRow) (wc.Location, error) {
	loc := wc.Location{
		ReposRelpath: row.ReposRelpath,
		Revision:     row.Revision,
		Kind:         row.Kind,
	}
	if row.ReposID == 0 {
		return loc, nil
	}
	repo, err := op.tx.Repository(row.ReposID)
	if err != nil {
		return wc.Location{}, err
	}
	loc.ReposRoot = repo.Root
	loc.ReposUUID = repo.UUID
	return loc, nil
}

// updateMove runs the whole pipeline for one move: compare and receive
// changes into the destination, replace the destination layer, then keep
// the source delete covering the new source tree.
func (op *operation) updateMove(mv *move) error {
	op.logger.Debug("updating move", "move", mv.String(), "operation", mv.operation)

	w := &walker{operation: op, mv: mv}
	if err := w.walk(mv.srcRoot, mv.dstRoot, wc.DepthInfinity); err != nil {
		return fmt.Errorf("move %s: %w", mv, err)
	}
	if err := op.replaceLayer(mv); err != nil {
		return fmt.Errorf("move %s: %w", mv, err)
	}
	if err := op.syncSourceDelete(mv); err != nil {
		return fmt.Errorf("move %s: %w", mv, err)
	}
	return nil
}
