package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/wcmove/internal/wc"
)

// Tx is one open transaction. Every read and write issued by a
// reconciliation goes through the same Tx.
type Tx struct {
	tx  *sqlx.Tx
	ctx context.Context
}

// Context returns the context the transaction was started with.
func (t *Tx) Context() context.Context {
	return t.ctx
}

func (t *Tx) exec(op, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// selectNodes runs a query over nodeColumns and converts every row.
// Cancellation is checked once per row.
func (t *Tx) selectNodes(op, query string, args ...any) ([]wc.NodeRow, error) {
	rows, err := t.tx.QueryxContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []wc.NodeRow{}
	for rows.Next() {
		if err := t.ctx.Err(); err != nil {
			return nil, err
		}
		var rec nodeRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		row, err := rec.toRow()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

// getNode returns the single row a query selects, or ok=false.
func (t *Tx) getNode(op, query string, args ...any) (wc.NodeRow, bool, error) {
	var rec nodeRecord
	err := t.tx.GetContext(t.ctx, &rec, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return wc.NodeRow{}, false, nil
	}
	if err != nil {
		return wc.NodeRow{}, false, fmt.Errorf("%s: %w", op, err)
	}
	row, err := rec.toRow()
	if err != nil {
		return wc.NodeRow{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return row, true, nil
}
