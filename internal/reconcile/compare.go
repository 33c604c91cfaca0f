package reconcile

import (
	"strings"

	"github.com/roach88/wcmove/internal/wc"
)

// walker compares a move's source layer with its destination layer depth
// first and hands every difference to the receiver.
//
// The walk carries one piece of mutable state: the most recently raised
// conflict root. Every path at or below it is skipped, so a subtree gets
// at most one tree conflict per walk.
type walker struct {
	*operation
	mv *move

	conflictRoot string
	inConflict   bool
}

// walk compares src with dst and recurses to the given depth.
func (w *walker) walk(src, dst string, depth wc.Depth) error {
	return w.visit(src, dst, depth, nil)
}

// visit handles one path pair. include filters the node by kind; it is nil
// for the walk root, which is always included.
func (w *walker) visit(src, dst string, depth wc.Depth, include func(wc.Kind) bool) error {
	if err := w.tx.Context().Err(); err != nil {
		return err
	}
	if w.suppressed(dst) {
		return nil
	}

	srcInfo, err := w.tx.GetInfo(src, w.mv.srcLayer)
	if err != nil {
		return err
	}
	dstInfo, err := w.tx.GetInfo(dst, w.mv.dstOpDepth)
	if err != nil {
		return err
	}
	if include != nil {
		kind := srcInfo.Kind
		if kind == wc.KindNone {
			kind = dstInfo.Kind
		}
		if !include(kind) {
			return nil
		}
	}

	descend, err := w.compare(dst, srcInfo, dstInfo)
	if err != nil {
		return err
	}
	if !descend || srcInfo.Kind != wc.KindDir {
		return nil
	}
	if depth == wc.DepthEmpty || depth == wc.DepthNone {
		return nil
	}

	var dstChildren []string
	if dstInfo.Kind == wc.KindDir {
		dstChildren = dstInfo.Children
	}
	for _, name := range mergeNames(srcInfo.Children, dstChildren) {
		if err := w.visit(wc.Join(src, name), wc.Join(dst, name), depth.Child(), depth.Includes); err != nil {
			return err
		}
	}
	return nil
}

// compare emits the edits that turn dstInfo into srcInfo at dst and
// reports whether the walk should continue into the children.
func (w *walker) compare(dst string, srcInfo, dstInfo wc.NodeInfo) (bool, error) {
	switch {
	case srcInfo.Kind != dstInfo.Kind:
		action := wc.ActionAdd
		switch {
		case !srcInfo.Exists():
			action = wc.ActionDelete
		case dstInfo.Exists():
			action = wc.ActionReplace
		}
		if dstInfo.Exists() {
			if err := w.deleteNode(dst, dstInfo, srcInfo.Kind, action); err != nil {
				return false, err
			}
		}
		if !srcInfo.Exists() {
			return false, nil
		}
		return w.addNode(dst, srcInfo, dstInfo.Kind, action)

	case !srcInfo.Exists():
		return false, nil

	case srcInfo.Kind == wc.KindDir:
		if srcInfo.Props.Equal(dstInfo.Props) && srcInfo.SameChildren(dstInfo) {
			return true, nil
		}
		return w.alterDir(dst, srcInfo, dstInfo)

	default:
		if srcInfo.Checksum == dstInfo.Checksum && srcInfo.Props.Equal(dstInfo.Props) {
			return false, nil
		}
		return false, w.alterFile(dst, srcInfo, dstInfo)
	}
}

// mergeNames returns the sorted union of two byte-wise sorted name lists.
func mergeNames(a, b []string) []string {
	out := make([]string, 0, max(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b):
			out = append(out, a[i])
			i++
		case i >= len(a):
			out = append(out, b[j])
			j++
		default:
			switch c := strings.Compare(a[i], b[j]); {
			case c < 0:
				out = append(out, a[i])
				i++
			case c > 0:
				out = append(out, b[j])
				j++
			default:
				out = append(out, a[i])
				i++
				j++
			}
		}
	}
	return out
}
