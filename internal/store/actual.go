package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/wcmove/internal/wc"
)

// Actual is the ACTUAL state of a path: user-edited properties and the
// conflict record, if any.
type Actual struct {
	Relpath string
	// Props holds the working properties. HasProps is false when the path
	// uses its pristine properties.
	Props    wc.Props
	HasProps bool
	Conflict *wc.ConflictSkel
}

type actualRecord struct {
	LocalRelpath string         `db:"local_relpath"`
	Properties   sql.NullString `db:"properties"`
	ConflictData sql.NullString `db:"conflict_data"`
}

func (r actualRecord) toActual() (Actual, error) {
	a := Actual{Relpath: r.LocalRelpath}
	if r.Properties.Valid {
		props, err := wc.ParseProps([]byte(r.Properties.String))
		if err != nil {
			return Actual{}, fmt.Errorf("actual %q: %w", r.LocalRelpath, err)
		}
		if props == nil {
			props = wc.Props{}
		}
		a.Props = props
		a.HasProps = true
	}
	if r.ConflictData.Valid {
		var skel wc.ConflictSkel
		if err := json.Unmarshal([]byte(r.ConflictData.String), &skel); err != nil {
			return Actual{}, fmt.Errorf("actual %q: parse conflict: %w", r.LocalRelpath, err)
		}
		a.Conflict = &skel
	}
	return a, nil
}

// GetActual returns the ACTUAL row of relpath, or ok=false if it has none.
func (t *Tx) GetActual(relpath string) (Actual, bool, error) {
	var rec actualRecord
	err := t.tx.GetContext(t.ctx, &rec, `
		SELECT local_relpath, properties, conflict_data
		FROM actual_node
		WHERE local_relpath = ?
	`, relpath)
	if errors.Is(err, sql.ErrNoRows) {
		return Actual{}, false, nil
	}
	if err != nil {
		return Actual{}, false, fmt.Errorf("get actual: %w", err)
	}
	a, err := rec.toActual()
	if err != nil {
		return Actual{}, false, err
	}
	return a, true, nil
}

// SetActualProps records working properties for relpath. A nil set reverts
// the path to its pristine properties.
func (t *Tx) SetActualProps(relpath string, props wc.Props) error {
	var val sql.NullString
	if props != nil {
		data, err := props.MarshalCanonical()
		if err != nil {
			return fmt.Errorf("set actual props: %w", err)
		}
		val = sql.NullString{String: string(data), Valid: true}
	}
	if err := t.upsertActual(relpath, "properties", val); err != nil {
		return fmt.Errorf("set actual props: %w", err)
	}
	return nil
}

// SetConflict stores the conflict record of relpath; nil clears it.
func (t *Tx) SetConflict(relpath string, skel *wc.ConflictSkel) error {
	var val sql.NullString
	if skel != nil {
		data, err := json.Marshal(skel)
		if err != nil {
			return fmt.Errorf("set conflict: %w", err)
		}
		val = sql.NullString{String: string(data), Valid: true}
	}
	if err := t.upsertActual(relpath, "conflict_data", val); err != nil {
		return fmt.Errorf("set conflict: %w", err)
	}
	return nil
}

func (t *Tx) upsertActual(relpath, column string, val sql.NullString) error {
	var parent sql.NullString
	if relpath != "" {
		parent = sql.NullString{String: wc.Dirname(relpath), Valid: true}
	}
	// column is one of two literals chosen by the callers above.
	if _, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO actual_node (local_relpath, parent_relpath, `+column+`)
		VALUES (?, ?, ?)
		ON CONFLICT(local_relpath) DO UPDATE SET `+column+` = excluded.`+column+`
	`, relpath, parent, val); err != nil {
		return err
	}
	return t.pruneActual(relpath)
}

// pruneActual drops an ACTUAL row that no longer carries anything.
func (t *Tx) pruneActual(relpath string) error {
	_, err := t.tx.ExecContext(t.ctx, `
		DELETE FROM actual_node
		WHERE local_relpath = ? AND properties IS NULL AND conflict_data IS NULL
	`, relpath)
	return err
}

// ClearActualProps reverts every path at or below root to its pristine
// properties. Conflict records are kept.
func (t *Tx) ClearActualProps(root string) error {
	if _, err := t.exec("clear actual props", `
		UPDATE actual_node SET properties = NULL WHERE `+inSubtree("local_relpath")+`
	`, subtreeArgs(root)...); err != nil {
		return err
	}
	_, err := t.exec("clear actual props", `
		DELETE FROM actual_node
		WHERE `+inSubtree("local_relpath")+` AND properties IS NULL AND conflict_data IS NULL
	`, subtreeArgs(root)...)
	return err
}

// Conflicts returns the ACTUAL rows at or below root that carry a conflict
// record, ordered byte-wise by relpath.
func (t *Tx) Conflicts(root string) ([]Actual, error) {
	rows, err := t.tx.QueryxContext(t.ctx, `
		SELECT local_relpath, properties, conflict_data
		FROM actual_node
		WHERE `+inSubtree("local_relpath")+` AND conflict_data IS NOT NULL
		ORDER BY local_relpath COLLATE BINARY ASC
	`, subtreeArgs(root)...)
	if err != nil {
		return nil, fmt.Errorf("conflicts: %w", err)
	}
	defer rows.Close()

	out := []Actual{}
	for rows.Next() {
		if err := t.ctx.Err(); err != nil {
			return nil, err
		}
		var rec actualRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, fmt.Errorf("conflicts: scan: %w", err)
		}
		a, err := rec.toActual()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conflicts: iterate: %w", err)
	}
	return out, nil
}
