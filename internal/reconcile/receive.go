package reconcile

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/wcmove/internal/merge"
	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
	"github.com/roach88/wcmove/internal/workqueue"
)

// addNode brings a node that exists only in the source into the
// destination. It reports whether the walk should continue into the new
// node's children.
func (w *walker) addNode(dst string, src wc.NodeInfo, oldKind wc.Kind, action wc.Action) (bool, error) {
	skip, err := w.checkTreeConflict(dst, oldKind, src.Kind, action)
	if err != nil || skip {
		return false, err
	}

	// On a replace the old node is still on disk until the queue runs.
	if action == wc.ActionAdd {
		onDisk, err := w.files.Stat(dst)
		if err != nil {
			return false, err
		}
		if onDisk != wc.KindNone {
			tc := wc.TreeConflict{Reason: wc.ReasonUnversioned, Action: wc.ActionAdd}
			return false, w.markTreeConflict(dst, tc, wc.KindNone, src.Kind)
		}
	}

	shadowed := false
	if dst != w.mv.dstRoot {
		shadowed, err = w.extendParentDelete(dst, src.Kind, w.mv.dstOpDepth)
		if err != nil {
			return false, err
		}
	}
	if !shadowed {
		item := workqueue.FileInstall(dst, src.Checksum)
		if src.Kind == wc.KindDir {
			item = workqueue.DirEnsure(dst)
		}
		if err := workqueue.Enqueue(w.tx, item); err != nil {
			return false, err
		}
	}

	w.spool.Enqueue(wc.Notification{
		Path:   dst,
		Action: wc.NotifyAdded,
		Kind:   src.Kind,
	})
	return true, nil
}

// extendParentDelete keeps a new path covered when its parent is shadowed
// by a local change above layer: the new path gets a base-deleted row in
// the parent's lowest higher layer. It reports whether the path ended up
// shadowed.
func (op *operation) extendParentDelete(dst string, kind wc.Kind, layer int) (bool, error) {
	parent, ok, err := op.tx.LowestAbove(wc.Dirname(dst), layer)
	if err != nil || !ok {
		return false, err
	}
	child, ok, err := op.tx.LowestAbove(dst, layer)
	if err != nil {
		return false, err
	}
	if !ok || child.OpDepth > parent.OpDepth {
		err := op.tx.InsertNode(wc.NodeRow{
			Relpath:  dst,
			OpDepth:  parent.OpDepth,
			Presence: wc.PresenceBaseDeleted,
			Kind:     kind,
		})
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

// alterDir applies a property change to a directory present on both
// sides. It reports whether the walk should continue into the children.
func (w *walker) alterDir(dst string, src, dstInfo wc.NodeInfo) (bool, error) {
	skip, err := w.checkTreeConflict(dst, wc.KindDir, wc.KindDir, wc.ActionEdit)
	if err != nil || skip {
		return false, err
	}
	if src.Props.Equal(dstInfo.Props) {
		return true, nil
	}

	propState, err := w.mergeProps(dst, wc.KindDir, dstInfo.Props, src.Props)
	if err != nil {
		return false, err
	}
	w.spool.Enqueue(wc.Notification{
		Path:         dst,
		Action:       wc.NotifyUpdated,
		Kind:         wc.KindDir,
		ContentState: wc.StateInapplicable,
		PropState:    propState,
	})
	return true, nil
}

// alterFile applies a content and/or property change to a file present on
// both sides, merging with local modifications.
func (w *walker) alterFile(dst string, src, dstInfo wc.NodeInfo) error {
	skip, err := w.checkTreeConflict(dst, dstInfo.Kind, src.Kind, wc.ActionEdit)
	if err != nil || skip {
		return err
	}

	oldLoc, newLoc := w.locations(dst, dstInfo.Kind, src.Kind)
	oldVer := wc.NodeVersion{Location: oldLoc, Props: dstInfo.Props, Checksum: dstInfo.Checksum}
	newVer := wc.NodeVersion{Location: newLoc, Props: src.Props, Checksum: src.Checksum}

	propState := wc.StateUnchanged
	if !oldVer.Props.Equal(newVer.Props) {
		propState, err = w.mergeProps(dst, src.Kind, oldVer.Props, newVer.Props)
		if err != nil {
			return err
		}
	}
	contentState := wc.StateUnchanged
	if oldVer.Checksum != newVer.Checksum {
		contentState, err = w.mergeContent(dst, oldVer, newVer)
		if err != nil {
			return err
		}
	}

	w.spool.Enqueue(wc.Notification{
		Path:         dst,
		Action:       wc.NotifyUpdated,
		Kind:         src.Kind,
		ContentState: contentState,
		PropState:    propState,
	})
	return nil
}

// mergeProps merges the property change oldProps -> newProps into the
// working properties of dst and stores the result in ACTUAL.
func (w *walker) mergeProps(dst string, kind wc.Kind, oldProps, newProps wc.Props) (wc.State, error) {
	actual, ok, err := w.tx.GetActual(dst)
	if err != nil {
		return "", err
	}
	working := oldProps
	if ok && actual.HasProps {
		working = actual.Props
	}

	res := merge.Props(oldProps, newProps, working)
	actualProps := res.Props
	if actualProps.Equal(newProps) {
		actualProps = nil
	} else if actualProps == nil {
		actualProps = wc.Props{}
	}
	if err := w.tx.SetActualProps(dst, actualProps); err != nil {
		return "", err
	}

	if res.Outcome != merge.Conflicted {
		return wc.StateMerged, nil
	}
	pc := wc.PropConflict{
		Names:    res.Conflicts,
		Base:     pick(oldProps, res.Conflicts),
		Incoming: pick(newProps, res.Conflicts),
		Working:  pick(working, res.Conflicts),
	}
	if err := w.recordMarker(dst, pc, kind); err != nil {
		return "", err
	}
	return wc.StateConflicted, nil
}

// pick returns the entries of props named in names, or nil if none.
func pick(props wc.Props, names []string) wc.Props {
	var out wc.Props
	for _, name := range names {
		if v, ok := props[name]; ok {
			if out == nil {
				out = wc.Props{}
			}
			out[name] = v
		}
	}
	return out
}

// mergeContent brings the text change oldVer -> newVer into the working
// file of dst. An unmodified (or missing) working file is replaced; a
// modified one is merged, leaving marker files next to it on conflict.
func (w *walker) mergeContent(dst string, oldVer, newVer wc.NodeVersion) (wc.State, error) {
	onDisk, err := w.files.Stat(dst)
	if err != nil {
		return "", err
	}
	modified := false
	if onDisk != wc.KindNone {
		if modified, err = w.files.IsModified(dst, oldVer.Checksum); err != nil {
			return "", err
		}
	}
	if !modified {
		if err := workqueue.Enqueue(w.tx, workqueue.FileInstall(dst, newVer.Checksum)); err != nil {
			return "", err
		}
		return wc.StateChanged, nil
	}

	base, err := w.pristine.ReadAll(oldVer.Checksum)
	if err != nil {
		return "", fmt.Errorf("merge %s: old text: %w", dst, err)
	}
	incoming, err := w.pristine.ReadAll(newVer.Checksum)
	if err != nil {
		return "", fmt.Errorf("merge %s: new text: %w", dst, err)
	}
	working, err := w.files.ReadFile(dst)
	if err != nil {
		return "", err
	}

	labels := merge.Labels{
		Working: ".mine",
		Old:     fmt.Sprintf(".r%d", oldVer.Location.Revision),
		New:     fmt.Sprintf(".r%d", newVer.Location.Revision),
	}
	res := merge.Text(base, incoming, working, labels)
	merged, err := w.pristine.InstallBytes(res.Content)
	if err != nil {
		return "", err
	}
	if err := workqueue.Enqueue(w.tx, workqueue.FileInstall(dst, merged)); err != nil {
		return "", err
	}
	if res.Outcome != merge.Conflicted {
		return wc.StateMerged, nil
	}

	mine, err := w.pristine.InstallBytes(working)
	if err != nil {
		return "", err
	}
	tc := wc.TextConflict{
		Mine: dst + labels.Working,
		Old:  dst + labels.Old,
		New:  dst + labels.New,
	}
	for _, it := range []workqueue.Item{
		workqueue.FileInstall(tc.Mine, mine),
		workqueue.FileInstall(tc.Old, oldVer.Checksum),
		workqueue.FileInstall(tc.New, newVer.Checksum),
	} {
		if err := workqueue.Enqueue(w.tx, it); err != nil {
			return "", err
		}
	}
	if err := w.recordMarker(dst, tc, wc.KindFile); err != nil {
		return "", err
	}
	return wc.StateConflicted, nil
}

// localMods summarises the local changes at or below a destination path.
type localMods struct {
	// edited is set by content, property or non-delete structural changes.
	edited bool
	// deleted is set by local deletes in layers above the destination.
	deleted bool
}

func (m localMods) any() bool { return m.edited || m.deleted }

// scanLocalMods looks for local changes below dst: rows above the
// destination layer, ACTUAL properties that differ from the pristine ones
// and modified working files.
func (w *walker) scanLocalMods(dst string) (localMods, error) {
	var mods localMods

	above, err := w.tx.RowsAbove(dst, w.mv.dstOpDepth)
	if err != nil {
		return mods, err
	}
	shadowed := mapset.NewThreadUnsafeSet[string]()
	for _, row := range above {
		shadowed.Add(row.Relpath)
		if row.Presence.IsDelete() {
			mods.deleted = true
		} else {
			mods.edited = true
		}
	}

	layer, err := w.tx.LayerSubtree(dst, w.mv.dstOpDepth)
	if err != nil {
		return mods, err
	}
	for _, row := range layer {
		if err := w.tx.Context().Err(); err != nil {
			return mods, err
		}
		if row.Presence != wc.PresenceNormal || shadowed.Contains(row.Relpath) {
			continue
		}
		actual, ok, err := w.tx.GetActual(row.Relpath)
		if err != nil {
			return mods, err
		}
		if ok && actual.HasProps && !actual.Props.Equal(row.Props) {
			mods.edited = true
			return mods, nil
		}
		if row.Kind == wc.KindDir {
			continue
		}
		modified, err := w.files.IsModified(row.Relpath, row.Checksum)
		if err != nil {
			return mods, err
		}
		if modified {
			mods.edited = true
			return mods, nil
		}
	}
	return mods, nil
}

// deleteNode removes a node that no longer exists in the source (or whose
// kind changed) from the destination.
func (w *walker) deleteNode(dst string, dstInfo wc.NodeInfo, newKind wc.Kind, action wc.Action) error {
	skip, err := w.checkTreeConflict(dst, dstInfo.Kind, newKind, action)
	if err != nil || skip {
		return err
	}

	mods, err := w.scanLocalMods(dst)
	if err != nil {
		return err
	}
	if mods.any() {
		reason := wc.ReasonEdited
		if !mods.edited {
			reason = wc.ReasonDeleted
		}
		tc := wc.TreeConflict{Reason: reason, Action: action}
		if err := w.markTreeConflict(dst, tc, dstInfo.Kind, newKind); err != nil {
			return err
		}
		if reason == wc.ReasonEdited {
			// The local edits survive as an ordinary copy; nothing on disk
			// changes.
			return w.promoteToCopy(dst)
		}
		if err := w.breakMovesBelow(dst); err != nil {
			return err
		}
		if err := w.tx.DeleteAbove(dst, w.mv.dstOpDepth); err != nil {
			return err
		}
		return w.enqueueRemoval(dst, dstInfo.Kind)
	}

	if err := w.enqueueRemoval(dst, dstInfo.Kind); err != nil {
		return err
	}
	if err := w.tx.ClearActualProps(dst); err != nil {
		return err
	}
	w.spool.Enqueue(wc.Notification{
		Path:   dst,
		Action: wc.NotifyDeleted,
		Kind:   dstInfo.Kind,
	})
	return nil
}

func (w *walker) enqueueRemoval(dst string, kind wc.Kind) error {
	item := workqueue.FileRemove(dst)
	if kind == wc.KindDir {
		item = workqueue.DirRemove(dst, true)
	}
	return workqueue.Enqueue(w.tx, item)
}

// promoteToCopy re-records the destination rows at or below dst as a plain
// copy rooted at dst, so they outlive the replacement of the destination
// layer.
func (w *walker) promoteToCopy(dst string) error {
	depth := wc.RelpathDepth(dst)
	if depth <= w.mv.dstOpDepth {
		return nil
	}
	rows, err := w.tx.LayerSubtree(dst, w.mv.dstOpDepth)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Presence != wc.PresenceNormal {
			continue
		}
		_, err := w.tx.GetNode(row.Relpath, depth)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNodeNotFound) {
			return err
		}
		cp := row.Clone()
		cp.OpDepth = depth
		cp.MovedTo = nil
		cp.MovedHere = false
		cp.MovedFrom = nil
		if err := w.tx.InsertNode(cp); err != nil {
			return err
		}
	}
	return nil
}
