package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/wcmove/internal/wc"
)

// Repository is a row of the repository table.
type Repository struct {
	ID   int64  `db:"id"`
	Root string `db:"root"`
	UUID string `db:"uuid"`
}

// EnsureRepository returns the id of the repository with the given root,
// inserting it if needed.
func (t *Tx) EnsureRepository(root, uuid string) (int64, error) {
	_, err := t.exec("ensure repository", `
		INSERT INTO repository (root, uuid) VALUES (?, ?)
		ON CONFLICT(root) DO NOTHING
	`, root, uuid)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := t.tx.GetContext(t.ctx, &id, `SELECT id FROM repository WHERE root = ?`, root); err != nil {
		return 0, fmt.Errorf("ensure repository: %w", err)
	}
	return id, nil
}

// Repository looks up a repository by id.
func (t *Tx) Repository(id int64) (Repository, error) {
	var repo Repository
	err := t.tx.GetContext(t.ctx, &repo, `SELECT id, root, uuid FROM repository WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Repository{}, fmt.Errorf("repository %d not found", id)
	}
	if err != nil {
		return Repository{}, fmt.Errorf("get repository: %w", err)
	}
	return repo, nil
}

// InsertNode writes row, replacing any row at the same (relpath, op_depth).
//
// For BASE rows the switched flag is derived from the parent's BASE row:
// a row is switched when its repository path is not the parent's path plus
// its own name.
func (t *Tx) InsertNode(row wc.NodeRow) error {
	if row.OpDepth == 0 && row.Relpath != "" && !row.Switched && row.ReposID != 0 {
		parent, ok, err := t.getNode("insert node", `
			SELECT `+nodeColumns+`
			FROM nodes
			WHERE local_relpath = ? AND op_depth = 0
		`, wc.Dirname(row.Relpath))
		if err != nil {
			return err
		}
		if ok && parent.ReposID != 0 {
			row.Switched = row.ReposRelpath != wc.Join(parent.ReposRelpath, wc.Basename(row.Relpath))
		}
	}

	rec, err := fromRow(row)
	if err != nil {
		return fmt.Errorf("insert node: %w", err)
	}
	_, err = t.tx.NamedExecContext(t.ctx, `
		INSERT OR REPLACE INTO nodes (`+nodeColumns+`)
		VALUES (:local_relpath, :op_depth, :parent_relpath, :repos_id, :repos_path, :revision,
			:presence, :kind, :checksum, :properties, :depth, :switched,
			:moved_to, :moved_to_depth, :moved_here, :moved_from, :moved_from_depth)
	`, rec)
	if err != nil {
		return fmt.Errorf("insert node %q@%d: %w", row.Relpath, row.OpDepth, err)
	}
	return nil
}

// DeleteNode removes the row at exactly (relpath, opDepth).
func (t *Tx) DeleteNode(relpath string, opDepth int) error {
	_, err := t.exec("delete node", `
		DELETE FROM nodes WHERE local_relpath = ? AND op_depth = ?
	`, relpath, opDepth)
	return err
}

// DeleteLayerSubtree removes the rows at exactly opDepth at or below root.
func (t *Tx) DeleteLayerSubtree(root string, opDepth int) error {
	args := append(subtreeArgs(root), opDepth)
	_, err := t.exec("delete layer subtree", `
		DELETE FROM nodes WHERE `+inSubtree("local_relpath")+` AND op_depth = ?
	`, args...)
	return err
}

// DeleteAbove removes the rows with op_depth > opDepth at or below root.
func (t *Tx) DeleteAbove(root string, opDepth int) error {
	args := append(subtreeArgs(root), opDepth)
	_, err := t.exec("delete above", `
		DELETE FROM nodes WHERE `+inSubtree("local_relpath")+` AND op_depth > ?
	`, args...)
	return err
}

// SetMovedTo records (or with nil, clears) the moved-to reference on a
// source delete root.
func (t *Tx) SetMovedTo(relpath string, opDepth int, ref *wc.Ref) error {
	var to sql.NullString
	var depth sql.NullInt64
	if ref != nil {
		to = sql.NullString{String: ref.Relpath, Valid: true}
		depth = sql.NullInt64{Int64: int64(ref.OpDepth), Valid: true}
	}
	res, err := t.exec("set moved to", `
		UPDATE nodes SET moved_to = ?, moved_to_depth = ?
		WHERE local_relpath = ? AND op_depth = ?
	`, to, depth, relpath, opDepth)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set moved to %q@%d: %w", relpath, opDepth, ErrNodeNotFound)
	}
	return nil
}

// ClearMovedHere turns the rows of a destination layer into plain copy
// rows: moved_here and moved_from are cleared at or below root.
func (t *Tx) ClearMovedHere(root string, opDepth int) error {
	args := append(subtreeArgs(root), opDepth)
	_, err := t.exec("clear moved here", `
		UPDATE nodes SET moved_here = 0, moved_from = NULL, moved_from_depth = NULL
		WHERE `+inSubtree("local_relpath")+` AND op_depth = ?
	`, args...)
	return err
}

// RemoveOrphanDeletes removes base-deleted rows above opDepth at or below
// root that no longer shadow any lower present row. Move sources are kept.
func (t *Tx) RemoveOrphanDeletes(root string, opDepth int) error {
	args := append(subtreeArgs(root), opDepth)
	_, err := t.exec("remove orphan deletes", `
		DELETE FROM nodes
		WHERE `+inSubtree("local_relpath")+` AND op_depth > ? AND presence = 'base-deleted'
		  AND moved_to IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM nodes AS lower
			WHERE lower.local_relpath = nodes.local_relpath
			  AND lower.op_depth < nodes.op_depth
			  AND lower.presence = 'normal'
		  )
	`, args...)
	return err
}
