package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WorkItem is a persisted, not yet executed work-queue entry. Work holds
// the encoded item; the store does not interpret it.
type WorkItem struct {
	ID   int64  `db:"id"`
	Work string `db:"work"`
}

// EnqueueWork appends an encoded item to the work queue. It only becomes
// visible to runners once the transaction commits.
func (t *Tx) EnqueueWork(work []byte) (int64, error) {
	res, err := t.exec("enqueue work", `INSERT INTO work_queue (work) VALUES (?)`, string(work))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// PendingWork lists queued items inside the transaction, oldest first.
func (t *Tx) PendingWork() ([]WorkItem, error) {
	items := []WorkItem{}
	if err := t.tx.SelectContext(t.ctx, &items, `
		SELECT id, work FROM work_queue ORDER BY id ASC
	`); err != nil {
		return nil, fmt.Errorf("pending work: %w", err)
	}
	return items, nil
}

// NextWork returns the oldest queued item, or ok=false if the queue is
// empty.
func (s *Store) NextWork(ctx context.Context) (WorkItem, bool, error) {
	var item WorkItem
	err := s.db.GetContext(ctx, &item, `
		SELECT id, work FROM work_queue ORDER BY id ASC LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkItem{}, false, nil
	}
	if err != nil {
		return WorkItem{}, false, fmt.Errorf("next work: %w", err)
	}
	return item, true, nil
}

// CompleteWork removes an executed item.
func (s *Store) CompleteWork(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM work_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("complete work %d: %w", id, err)
	}
	return nil
}

// PendingWork lists queued items, oldest first.
func (s *Store) PendingWork(ctx context.Context) ([]WorkItem, error) {
	items := []WorkItem{}
	if err := s.db.SelectContext(ctx, &items, `
		SELECT id, work FROM work_queue ORDER BY id ASC
	`); err != nil {
		return nil, fmt.Errorf("pending work: %w", err)
	}
	return items, nil
}
