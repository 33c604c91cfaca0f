package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/wcmove/internal/wc"
)

const nodeColumns = `local_relpath, op_depth, parent_relpath, repos_id, repos_path, revision,
	presence, kind, checksum, properties, depth, switched,
	moved_to, moved_to_depth, moved_here, moved_from, moved_from_depth`

// nodeRecord is used for scanning rows of the nodes table.
type nodeRecord struct {
	LocalRelpath   string         `db:"local_relpath"`
	OpDepth        int            `db:"op_depth"`
	ParentRelpath  sql.NullString `db:"parent_relpath"`
	ReposID        sql.NullInt64  `db:"repos_id"`
	ReposPath      sql.NullString `db:"repos_path"`
	Revision       sql.NullInt64  `db:"revision"`
	Presence       string         `db:"presence"`
	Kind           string         `db:"kind"`
	Checksum       sql.NullString `db:"checksum"`
	Properties     sql.NullString `db:"properties"`
	Depth          sql.NullString `db:"depth"`
	Switched       bool           `db:"switched"`
	MovedTo        sql.NullString `db:"moved_to"`
	MovedToDepth   sql.NullInt64  `db:"moved_to_depth"`
	MovedHere      bool           `db:"moved_here"`
	MovedFrom      sql.NullString `db:"moved_from"`
	MovedFromDepth sql.NullInt64  `db:"moved_from_depth"`
}

func (r nodeRecord) toRow() (wc.NodeRow, error) {
	presence, err := wc.ParsePresence(r.Presence)
	if err != nil {
		return wc.NodeRow{}, fmt.Errorf("row %q@%d: %w", r.LocalRelpath, r.OpDepth, err)
	}
	kind, err := wc.ParseKind(r.Kind)
	if err != nil {
		return wc.NodeRow{}, fmt.Errorf("row %q@%d: %w", r.LocalRelpath, r.OpDepth, err)
	}
	props, err := wc.ParseProps([]byte(r.Properties.String))
	if err != nil {
		return wc.NodeRow{}, fmt.Errorf("row %q@%d: %w", r.LocalRelpath, r.OpDepth, err)
	}
	var depth wc.Depth
	if r.Depth.Valid {
		if depth, err = wc.ParseDepth(r.Depth.String); err != nil {
			return wc.NodeRow{}, fmt.Errorf("row %q@%d: %w", r.LocalRelpath, r.OpDepth, err)
		}
	}

	row := wc.NodeRow{
		Relpath:      r.LocalRelpath,
		OpDepth:      r.OpDepth,
		ReposID:      r.ReposID.Int64,
		ReposRelpath: r.ReposPath.String,
		Revision:     r.Revision.Int64,
		Presence:     presence,
		Kind:         kind,
		Checksum:     wc.Checksum(r.Checksum.String),
		Props:        props,
		Depth:        depth,
		Switched:     r.Switched,
		MovedHere:    r.MovedHere,
	}
	if r.MovedTo.Valid {
		row.MovedTo = &wc.Ref{Relpath: r.MovedTo.String, OpDepth: int(r.MovedToDepth.Int64)}
	}
	if r.MovedFrom.Valid {
		row.MovedFrom = &wc.Ref{Relpath: r.MovedFrom.String, OpDepth: int(r.MovedFromDepth.Int64)}
	}
	return row, nil
}

func fromRow(row wc.NodeRow) (nodeRecord, error) {
	rec := nodeRecord{
		LocalRelpath: row.Relpath,
		OpDepth:      row.OpDepth,
		Presence:     string(row.Presence),
		Kind:         string(row.Kind),
		Switched:     row.Switched,
		MovedHere:    row.MovedHere,
	}
	if rec.Presence == "" {
		rec.Presence = string(wc.PresenceNormal)
	}
	if rec.Kind == "" {
		rec.Kind = string(wc.KindNone)
	}
	if row.Relpath != "" {
		rec.ParentRelpath = sql.NullString{String: wc.Dirname(row.Relpath), Valid: true}
	}
	if row.ReposID != 0 {
		rec.ReposID = sql.NullInt64{Int64: row.ReposID, Valid: true}
		rec.ReposPath = sql.NullString{String: row.ReposRelpath, Valid: true}
		rec.Revision = sql.NullInt64{Int64: row.Revision, Valid: true}
	}
	if row.Checksum != "" {
		rec.Checksum = sql.NullString{String: string(row.Checksum), Valid: true}
	}
	if row.Props != nil {
		data, err := row.Props.MarshalCanonical()
		if err != nil {
			return nodeRecord{}, fmt.Errorf("row %q@%d: %w", row.Relpath, row.OpDepth, err)
		}
		rec.Properties = sql.NullString{String: string(data), Valid: true}
	}
	if row.Depth != "" {
		rec.Depth = sql.NullString{String: string(row.Depth), Valid: true}
	}
	if row.MovedTo != nil {
		rec.MovedTo = sql.NullString{String: row.MovedTo.Relpath, Valid: true}
		rec.MovedToDepth = sql.NullInt64{Int64: int64(row.MovedTo.OpDepth), Valid: true}
	}
	if row.MovedFrom != nil {
		rec.MovedFrom = sql.NullString{String: row.MovedFrom.Relpath, Valid: true}
		rec.MovedFromDepth = sql.NullInt64{Int64: int64(row.MovedFrom.OpDepth), Valid: true}
	}
	return rec, nil
}

// inSubtree returns a condition matching col at or below a root relpath.
// Bind it with subtreeArgs. '0' sorts right after '/', so the range covers
// exactly the descendants under BINARY collation.
func inSubtree(col string) string {
	return fmt.Sprintf("(? = '' OR %[1]s = ? OR (%[1]s > ? || '/' AND %[1]s < ? || '0'))", col)
}

func subtreeArgs(root string) []any {
	return []any{root, root, root, root}
}

// belowRoot is inSubtree without the root itself.
func belowRoot(col string) string {
	return fmt.Sprintf("((? = '' AND %[1]s <> '') OR (%[1]s > ? || '/' AND %[1]s < ? || '0'))", col)
}

func belowArgs(root string) []any {
	return []any{root, root, root}
}
