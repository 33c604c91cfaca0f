package reconcile

import (
	"errors"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
)

// replaceLayer rewrites the destination layer so that it holds exactly
// the source layer's present nodes, rerooted under the destination.
//
// Destination rows with no source counterpart are removed, or turned into
// base-deleted rows where they shadow a lower present node. Rows of paths
// the receiver skipped are replaced like all others; their local changes
// live in higher layers or ACTUAL. Local deletes above the destination are
// extended over new nodes.
func (op *operation) replaceLayer(mv *move) error {
	root, err := op.tx.GetNode(mv.dstRoot, mv.dstOpDepth)
	if err != nil {
		return err
	}
	srcRows, err := op.tx.LayerSubtree(mv.srcRoot, mv.srcLayer)
	if err != nil {
		return err
	}
	dstRows, err := op.tx.LayerSubtree(mv.dstRoot, mv.dstOpDepth)
	if err != nil {
		return err
	}

	written := mapset.NewThreadUnsafeSet[string]()
	for _, src := range srcRows {
		if err := op.tx.Context().Err(); err != nil {
			return err
		}
		if src.Presence != wc.PresenceNormal {
			continue
		}
		row := src.Clone()
		row.Relpath = wc.Reroot(src.Relpath, mv.srcRoot, mv.dstRoot)
		row.OpDepth = mv.dstOpDepth
		row.Switched = false
		row.MovedTo = nil
		row.MovedHere = true
		row.MovedFrom = nil
		if row.Relpath == mv.dstRoot {
			row.MovedFrom = root.MovedFrom
		}
		if err := op.tx.InsertNode(row); err != nil {
			return err
		}
		if row.Relpath != mv.dstRoot {
			if _, err := op.extendParentDelete(row.Relpath, row.Kind, mv.dstOpDepth); err != nil {
				return err
			}
		}
		written.Add(row.Relpath)
	}

	for _, dst := range dstRows {
		if err := op.tx.Context().Err(); err != nil {
			return err
		}
		if written.Contains(dst.Relpath) {
			continue
		}
		lower, ok, err := op.tx.HighestBelow(dst.Relpath, mv.dstOpDepth)
		if err != nil {
			return err
		}
		if ok && lower.Presence == wc.PresenceNormal {
			err = op.tx.InsertNode(wc.NodeRow{
				Relpath:  dst.Relpath,
				OpDepth:  mv.dstOpDepth,
				Presence: wc.PresenceBaseDeleted,
				Kind:     lower.Kind,
			})
		} else {
			err = op.tx.DeleteNode(dst.Relpath, mv.dstOpDepth)
		}
		if err != nil {
			return err
		}
	}

	return op.tx.RemoveOrphanDeletes(mv.dstRoot, mv.dstOpDepth)
}

// syncSourceDelete makes the move's delete cover the source layer again
// after it changed: new source nodes get base-deleted rows, and deletes
// that no longer shadow anything are dropped.
func (op *operation) syncSourceDelete(mv *move) error {
	rows, err := op.tx.LayerSubtree(mv.srcRoot, mv.srcLayer)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Presence != wc.PresenceNormal {
			continue
		}
		_, err := op.tx.GetNode(row.Relpath, mv.srcOpDepth)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNodeNotFound) {
			return err
		}
		err = op.tx.InsertNode(wc.NodeRow{
			Relpath:  row.Relpath,
			OpDepth:  mv.srcOpDepth,
			Presence: wc.PresenceBaseDeleted,
			Kind:     row.Kind,
		})
		if err != nil {
			return err
		}
	}
	return op.tx.RemoveOrphanDeletes(mv.srcRoot, mv.srcLayer)
}
