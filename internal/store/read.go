package store

import (
	"fmt"

	"github.com/roach88/wcmove/internal/wc"
)

// Move is one recorded move, read from the delete root of its source.
type Move struct {
	SrcRelpath string
	// SrcOpDepth is the op-depth of the source's delete layer.
	SrcOpDepth int
	DstRelpath string
	DstOpDepth int
}

// GetNode returns the row at exactly (relpath, opDepth).
// Returns ErrNodeNotFound if there is none.
func (t *Tx) GetNode(relpath string, opDepth int) (wc.NodeRow, error) {
	row, ok, err := t.getNode("get node", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE local_relpath = ? AND op_depth = ?
	`, relpath, opDepth)
	if err != nil {
		return wc.NodeRow{}, err
	}
	if !ok {
		return wc.NodeRow{}, fmt.Errorf("%q@%d: %w", relpath, opDepth, ErrNodeNotFound)
	}
	return row, nil
}

// NodeLayers returns every row of relpath, lowest op-depth first.
// Returns an empty slice (not nil) if the path is unknown.
func (t *Tx) NodeLayers(relpath string) ([]wc.NodeRow, error) {
	return t.selectNodes("node layers", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE local_relpath = ?
		ORDER BY op_depth ASC
	`, relpath)
}

// GetInfo returns the view of relpath at exactly opDepth. Kind is KindNone
// when the layer has no row there or the row is not a present node.
// Children are the present nodes of the same layer, sorted byte-wise.
func (t *Tx) GetInfo(relpath string, opDepth int) (wc.NodeInfo, error) {
	row, ok, err := t.getNode("get info", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE local_relpath = ? AND op_depth = ?
	`, relpath, opDepth)
	if err != nil {
		return wc.NodeInfo{}, err
	}
	if !ok || row.Presence != wc.PresenceNormal {
		return wc.NodeInfo{Kind: wc.KindNone}, nil
	}

	info := wc.NodeInfo{
		Kind:         row.Kind,
		Checksum:     row.Checksum,
		Props:        row.Props,
		ReposID:      row.ReposID,
		ReposRelpath: row.ReposRelpath,
		Revision:     row.Revision,
		Children:     []string{},
	}
	if row.Kind != wc.KindDir {
		return info, nil
	}

	rows, err := t.tx.QueryxContext(t.ctx, `
		SELECT local_relpath
		FROM nodes
		WHERE parent_relpath = ? AND op_depth = ? AND presence = 'normal'
		ORDER BY local_relpath COLLATE BINARY ASC
	`, relpath, opDepth)
	if err != nil {
		return wc.NodeInfo{}, fmt.Errorf("get info children: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := t.ctx.Err(); err != nil {
			return wc.NodeInfo{}, err
		}
		var child string
		if err := rows.Scan(&child); err != nil {
			return wc.NodeInfo{}, fmt.Errorf("get info children: scan: %w", err)
		}
		info.Children = append(info.Children, wc.Basename(child))
	}
	if err := rows.Err(); err != nil {
		return wc.NodeInfo{}, fmt.Errorf("get info children: iterate: %w", err)
	}
	return info, nil
}

// LowestAbove returns the lowest row of relpath with op_depth > opDepth.
func (t *Tx) LowestAbove(relpath string, opDepth int) (wc.NodeRow, bool, error) {
	return t.getNode("lowest above", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE local_relpath = ? AND op_depth > ?
		ORDER BY op_depth ASC
		LIMIT 1
	`, relpath, opDepth)
}

// HighestBelow returns the highest row of relpath with op_depth < opDepth.
func (t *Tx) HighestBelow(relpath string, opDepth int) (wc.NodeRow, bool, error) {
	return t.getNode("highest below", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE local_relpath = ? AND op_depth < ?
		ORDER BY op_depth DESC
		LIMIT 1
	`, relpath, opDepth)
}

// Working returns the effective (highest) row of relpath.
func (t *Tx) Working(relpath string) (wc.NodeRow, bool, error) {
	return t.getNode("working", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE local_relpath = ?
		ORDER BY op_depth DESC
		LIMIT 1
	`, relpath)
}

// LayerSubtree returns the rows at exactly opDepth at or below root,
// ordered byte-wise by relpath so parents come before their children.
func (t *Tx) LayerSubtree(root string, opDepth int) ([]wc.NodeRow, error) {
	args := append(subtreeArgs(root), opDepth)
	return t.selectNodes("layer subtree", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE `+inSubtree("local_relpath")+` AND op_depth = ?
		ORDER BY local_relpath COLLATE BINARY ASC
	`, args...)
}

// RowsAbove returns the rows with op_depth > opDepth at or below root.
func (t *Tx) RowsAbove(root string, opDepth int) ([]wc.NodeRow, error) {
	args := append(subtreeArgs(root), opDepth)
	return t.selectNodes("rows above", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE `+inSubtree("local_relpath")+` AND op_depth > ?
		ORDER BY local_relpath COLLATE BINARY ASC, op_depth ASC
	`, args...)
}

// SubtreeRows returns every row at or below root across all layers.
func (t *Tx) SubtreeRows(root string) ([]wc.NodeRow, error) {
	return t.selectNodes("subtree rows", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE `+inSubtree("local_relpath")+`
		ORDER BY local_relpath COLLATE BINARY ASC, op_depth ASC
	`, subtreeArgs(root)...)
}

// MovesInSubtree returns the moves whose source lies at or below root,
// outer moves first.
func (t *Tx) MovesInSubtree(root string) ([]Move, error) {
	rows, err := t.selectNodes("moves in subtree", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE `+inSubtree("local_relpath")+` AND moved_to IS NOT NULL
		ORDER BY local_relpath COLLATE BINARY ASC, op_depth ASC
	`, subtreeArgs(root)...)
	if err != nil {
		return nil, err
	}
	moves := make([]Move, 0, len(rows))
	for _, row := range rows {
		moves = append(moves, Move{
			SrcRelpath: row.Relpath,
			SrcOpDepth: row.OpDepth,
			DstRelpath: row.MovedTo.Relpath,
			DstOpDepth: row.MovedTo.OpDepth,
		})
	}
	return moves, nil
}

// MoveSource returns the delete root whose moved_to points at the given
// destination.
func (t *Tx) MoveSource(dstRelpath string, dstOpDepth int) (wc.NodeRow, bool, error) {
	return t.getNode("move source", `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE moved_to = ? AND moved_to_depth = ?
		ORDER BY op_depth ASC
		LIMIT 1
	`, dstRelpath, dstOpDepth)
}

// RevisionRange summarises the present rows of a layer at or below root:
// the lowest and highest revision, and whether any row below the root is
// switched. The root may itself be switched relative to its parent.
// ok is false when the layer has no present rows there.
func (t *Tx) RevisionRange(root string, opDepth int) (minRev, maxRev int64, switched bool, ok bool, err error) {
	var out struct {
		Count    int   `db:"n"`
		Min      int64 `db:"min_rev"`
		Max      int64 `db:"max_rev"`
		Switched int   `db:"switched"`
	}
	args := append([]any{root}, subtreeArgs(root)...)
	args = append(args, opDepth)
	err = t.tx.GetContext(t.ctx, &out, `
		SELECT COUNT(*) AS n,
		       COALESCE(MIN(revision), 0) AS min_rev,
		       COALESCE(MAX(revision), 0) AS max_rev,
		       COALESCE(MAX(CASE WHEN local_relpath = ? THEN 0 ELSE switched END), 0) AS switched
		FROM nodes
		WHERE `+inSubtree("local_relpath")+` AND op_depth = ? AND presence = 'normal'
	`, args...)
	if err != nil {
		return 0, 0, false, false, fmt.Errorf("revision range: %w", err)
	}
	return out.Min, out.Max, out.Switched != 0, out.Count > 0, nil
}
