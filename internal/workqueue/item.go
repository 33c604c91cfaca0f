// Package workqueue defines the deferred filesystem work produced by a
// reconciliation and the runner that executes it after commit.
//
// Items are persisted in the store's work_queue table inside the same
// transaction as the metadata change that needs them. A rollback drops
// them with everything else; a commit makes them visible to Runner.
package workqueue

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/wcmove/internal/wc"
)

// Op tags the variants of Item.
type Op string

const (
	OpFileInstall Op = "file-install"
	OpFileRemove  Op = "file-remove"
	OpDirRemove   Op = "dir-remove"
	OpDirEnsure   Op = "dir-ensure"
)

// Item is one unit of deferred filesystem work. Executing an item twice
// has the same effect as executing it once.
type Item struct {
	Op      Op     `json:"op"`
	Relpath string `json:"relpath"`
	// Checksum names the pristine text a file-install writes.
	Checksum wc.Checksum `json:"checksum,omitempty"`
	// Recursive makes dir-remove delete unversioned content too.
	Recursive bool `json:"recursive,omitempty"`
}

// FileInstall writes the pristine text checksum to relpath.
func FileInstall(relpath string, checksum wc.Checksum) Item {
	return Item{Op: OpFileInstall, Relpath: relpath, Checksum: checksum}
}

// FileRemove deletes the file at relpath.
func FileRemove(relpath string) Item {
	return Item{Op: OpFileRemove, Relpath: relpath}
}

// DirRemove deletes the directory at relpath.
func DirRemove(relpath string, recursive bool) Item {
	return Item{Op: OpDirRemove, Relpath: relpath, Recursive: recursive}
}

// DirEnsure creates the directory at relpath if it is missing.
func DirEnsure(relpath string) Item {
	return Item{Op: OpDirEnsure, Relpath: relpath}
}

// Validate checks that the item is well formed.
func (it Item) Validate() error {
	switch it.Op {
	case OpFileInstall:
		if !it.Checksum.Valid() {
			return fmt.Errorf("%s %q: invalid checksum %q", it.Op, it.Relpath, it.Checksum)
		}
	case OpFileRemove, OpDirRemove, OpDirEnsure:
	default:
		return fmt.Errorf("unknown work item op %q", it.Op)
	}
	if it.Relpath == "" && it.Op != OpDirEnsure {
		return fmt.Errorf("%s: refusing to act on the working copy root", it.Op)
	}
	return nil
}

// Encode serializes the item for the work_queue table.
func (it Item) Encode() ([]byte, error) {
	if err := it.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(it)
}

// Decode parses an item stored by Encode.
func Decode(data []byte) (Item, error) {
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return Item{}, fmt.Errorf("decode work item: %w", err)
	}
	if err := it.Validate(); err != nil {
		return Item{}, fmt.Errorf("decode work item: %w", err)
	}
	return it, nil
}

// Enqueuer is the transactional side of the work queue.
type Enqueuer interface {
	EnqueueWork(work []byte) (int64, error)
}

// Enqueue encodes it and appends it to q.
func Enqueue(q Enqueuer, it Item) error {
	data, err := it.Encode()
	if err != nil {
		return err
	}
	if _, err := q.EnqueueWork(data); err != nil {
		return fmt.Errorf("enqueue %s %s: %w", it.Op, it.Relpath, err)
	}
	return nil
}
