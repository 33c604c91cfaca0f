package reconcile

import (
	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
)

// breakMoveAt finds the move path takes part in and breaks it, along with
// the moves out of its destination that were made from the moved rows.
func (op *operation) breakMoveAt(path string) error {
	m, err := op.moveAt(path)
	if err != nil {
		return err
	}
	if err := op.breakMove(m); err != nil {
		return err
	}
	nested, err := op.tx.MovesInSubtree(m.DstRelpath)
	if err != nil {
		return err
	}
	for _, n := range nested {
		if n.SrcOpDepth <= m.DstOpDepth {
			continue
		}
		if err := op.breakMove(n); err != nil {
			return err
		}
	}
	return nil
}

// moveAt returns the move path is an end of. The highest layer of path
// decides when it is both a source and a destination.
func (op *operation) moveAt(path string) (store.Move, error) {
	layers, err := op.tx.NodeLayers(path)
	if err != nil {
		return store.Move{}, err
	}
	for i := len(layers) - 1; i >= 0; i-- {
		row := layers[i]
		if row.MovedTo != nil {
			return store.Move{
				SrcRelpath: path,
				SrcOpDepth: row.OpDepth,
				DstRelpath: row.MovedTo.Relpath,
				DstOpDepth: row.MovedTo.OpDepth,
			}, nil
		}
		if row.MovedFrom != nil {
			src, ok, err := op.tx.MoveSource(path, row.OpDepth)
			if err != nil {
				return store.Move{}, err
			}
			if !ok {
				break
			}
			return store.Move{
				SrcRelpath: src.Relpath,
				SrcOpDepth: src.OpDepth,
				DstRelpath: path,
				DstOpDepth: row.OpDepth,
			}, nil
		}
	}
	return store.Move{}, NewNotMovedError(path)
}

// breakMovedChildren breaks every move whose source lies strictly below
// path.
func (op *operation) breakMovedChildren(path string) error {
	moves, err := op.tx.MovesInSubtree(path)
	if err != nil {
		return err
	}
	for _, m := range moves {
		if m.SrcRelpath == path {
			continue
		}
		if err := op.breakMove(m); err != nil {
			return err
		}
	}
	return nil
}

// breakMove turns a move into a plain delete plus a plain copy and drops
// the moved-away conflicts that only made sense while the move existed.
func (op *operation) breakMove(m store.Move) error {
	dstRow, err := op.tx.GetNode(m.DstRelpath, m.DstOpDepth)
	if err != nil {
		return err
	}
	if err := op.tx.SetMovedTo(m.SrcRelpath, m.SrcOpDepth, nil); err != nil {
		return err
	}
	if err := op.tx.ClearMovedHere(m.DstRelpath, m.DstOpDepth); err != nil {
		return err
	}

	conflicts, err := op.tx.Conflicts(m.SrcRelpath)
	if err != nil {
		return err
	}
	for _, a := range conflicts {
		tc, ok := a.Conflict.Tree()
		if !ok || tc.Reason != wc.ReasonMovedAway || tc.MoveSrcOpRoot != m.SrcRelpath {
			continue
		}
		skel := a.Conflict
		if skel.Remove(wc.MarkerTree) {
			skel = nil
		}
		if err := op.tx.SetConflict(a.Relpath, skel); err != nil {
			return err
		}
	}

	op.spool.Enqueue(wc.Notification{
		Path:   m.SrcRelpath,
		Action: wc.NotifyMoveBroken,
		Kind:   dstRow.Kind,
	})
	op.logger.Info("move broken", "src", m.SrcRelpath, "dst", m.DstRelpath)
	return nil
}
