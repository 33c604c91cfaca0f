package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/fixture"
	"github.com/roach88/wcmove/internal/pristine"
	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
	"github.com/roach88/wcmove/internal/workqueue"
)

// Repository the fixture's rows belong to.
const (
	ReposRoot = fixture.DefaultReposRoot
	ReposUUID = fixture.DefaultReposUUID
)

// Node describes one versioned node for Checkout and UpdateBase.
type Node = fixture.Node

// Dir describes a directory at rev.
func Dir(relpath string, rev int64) Node {
	return fixture.Dir(relpath, rev)
}

// File describes a file at rev with the given content.
func File(relpath string, rev int64, content string) Node {
	return fixture.File(relpath, rev, content)
}

// WC is a throwaway working copy: metadata store, pristine store and
// working tree under one temp directory.
type WC struct {
	t        testing.TB
	Dir      string
	Store    *store.Store
	Pristine *pristine.DirStore
	ReposID  int64
}

// NewWC creates an empty working copy at revision 1.
func NewWC(t testing.TB) *WC {
	t.Helper()
	dir := t.TempDir()
	admin := filepath.Join(dir, ".wcmove")
	require.NoError(t, os.MkdirAll(admin, 0o755))

	s, err := store.Open(filepath.Join(admin, "wc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p, err := pristine.NewDirStore(filepath.Join(admin, "pristine"), 16)
	require.NoError(t, err)

	w := &WC{t: t, Dir: dir, Store: s, Pristine: p}
	w.Tx(func(tx *store.Tx) {
		id, err := tx.EnsureRepository(ReposRoot, ReposUUID)
		require.NoError(t, err)
		w.ReposID = id
		require.NoError(t, fixture.WriteBase(tx, p, id, Dir("", 1)))
	})
	return w
}

// Tx runs fn in a committed transaction.
func (w *WC) Tx(fn func(tx *store.Tx)) {
	w.t.Helper()
	err := w.Store.WithTx(context.Background(), func(tx *store.Tx) error {
		fn(tx)
		return nil
	})
	require.NoError(w.t, err)
}

// Text installs content as a pristine text and returns its checksum.
func (w *WC) Text(content string) wc.Checksum {
	w.t.Helper()
	sum, err := w.Pristine.InstallBytes([]byte(content))
	require.NoError(w.t, err)
	return sum
}

// Checkout adds BASE nodes and creates them on disk. Parents must come
// before their children.
func (w *WC) Checkout(nodes ...Node) {
	w.t.Helper()
	w.UpdateBase(nodes...)
	require.NoError(w.t, fixture.Materialize(w.Dir, nodes...))
}

// UpdateBase writes BASE rows without touching the disk, the way an
// update records a change under a moved-away source.
func (w *WC) UpdateBase(nodes ...Node) {
	w.t.Helper()
	w.Tx(func(tx *store.Tx) {
		require.NoError(w.t, fixture.WriteBase(tx, w.Pristine, w.ReposID, nodes...))
	})
}

// RemoveBase deletes the BASE rows at or below relpath.
func (w *WC) RemoveBase(relpath string) {
	w.t.Helper()
	w.Tx(func(tx *store.Tx) {
		require.NoError(w.t, tx.DeleteLayerSubtree(relpath, 0))
	})
}

// Move records a local move of src to dst and moves the working files.
// The copy is taken from the highest layer below the new delete at src.
func (w *WC) Move(src, dst string) {
	w.t.Helper()
	w.Tx(func(tx *store.Tx) {
		require.NoError(w.t, fixture.Move(tx, src, dst))
	})
	require.NoError(w.t, fixture.MoveFiles(w.Dir, src, dst))
}

// LocalDelete records a plain local delete of relpath in its own layer.
func (w *WC) LocalDelete(relpath string) {
	w.t.Helper()
	w.Tx(func(tx *store.Tx) {
		require.NoError(w.t, fixture.Delete(tx, relpath))
	})
	require.NoError(w.t, os.RemoveAll(w.Abspath(relpath)))
}

// SetActualProps records working properties for relpath.
func (w *WC) SetActualProps(relpath string, props wc.Props) {
	w.t.Helper()
	w.Tx(func(tx *store.Tx) {
		require.NoError(w.t, tx.SetActualProps(relpath, props))
	})
}

// RaiseVictim records the moved-away tree conflict an update leaves on a
// move source.
func (w *WC) RaiseVictim(relpath string, oldRev, newRev int64) {
	w.t.Helper()
	repo := store.Repository{ID: w.ReposID, Root: ReposRoot, UUID: ReposUUID}
	skel, err := fixture.VictimConflict(repo, relpath, oldRev, newRev)
	require.NoError(w.t, err)
	w.SetConflict(relpath, skel)
}

// SetConflict stores a conflict record on relpath.
func (w *WC) SetConflict(relpath string, skel *wc.ConflictSkel) {
	w.t.Helper()
	w.Tx(func(tx *store.Tx) {
		require.NoError(w.t, tx.SetConflict(relpath, skel))
	})
}

// Conflict returns the conflict record of relpath, or nil.
func (w *WC) Conflict(relpath string) *wc.ConflictSkel {
	w.t.Helper()
	var skel *wc.ConflictSkel
	w.Tx(func(tx *store.Tx) {
		a, ok, err := tx.GetActual(relpath)
		require.NoError(w.t, err)
		if ok {
			skel = a.Conflict
		}
	})
	return skel
}

// Actual returns the ACTUAL row of relpath.
func (w *WC) Actual(relpath string) (store.Actual, bool) {
	w.t.Helper()
	var out store.Actual
	var found bool
	w.Tx(func(tx *store.Tx) {
		a, ok, err := tx.GetActual(relpath)
		require.NoError(w.t, err)
		out, found = a, ok
	})
	return out, found
}

// Rows returns every row at or below root.
func (w *WC) Rows(root string) []wc.NodeRow {
	w.t.Helper()
	var rows []wc.NodeRow
	w.Tx(func(tx *store.Tx) {
		var err error
		rows, err = tx.SubtreeRows(root)
		require.NoError(w.t, err)
	})
	return rows
}

// Row returns the row at (relpath, opDepth) and whether it exists.
func (w *WC) Row(relpath string, opDepth int) (wc.NodeRow, bool) {
	w.t.Helper()
	var row wc.NodeRow
	var found bool
	w.Tx(func(tx *store.Tx) {
		layers, err := tx.NodeLayers(relpath)
		require.NoError(w.t, err)
		for _, r := range layers {
			if r.OpDepth == opDepth {
				row, found = r, true
			}
		}
	})
	return row, found
}

// Working returns the effective row of relpath.
func (w *WC) Working(relpath string) (wc.NodeRow, bool) {
	w.t.Helper()
	var row wc.NodeRow
	var found bool
	w.Tx(func(tx *store.Tx) {
		var err error
		row, found, err = tx.Working(relpath)
		require.NoError(w.t, err)
	})
	return row, found
}

// Info returns the comparator view of relpath at opDepth.
func (w *WC) Info(relpath string, opDepth int) wc.NodeInfo {
	w.t.Helper()
	var info wc.NodeInfo
	w.Tx(func(tx *store.Tx) {
		var err error
		info, err = tx.GetInfo(relpath, opDepth)
		require.NoError(w.t, err)
	})
	return info
}

// Work returns the pending work items, decoded, in queue order.
func (w *WC) Work() []workqueue.Item {
	w.t.Helper()
	pending, err := w.Store.PendingWork(context.Background())
	require.NoError(w.t, err)
	items := make([]workqueue.Item, 0, len(pending))
	for _, p := range pending {
		it, err := workqueue.Decode([]byte(p.Work))
		require.NoError(w.t, err)
		items = append(items, it)
	}
	return items
}

// RunWork drains the work queue into the working tree.
func (w *WC) RunWork() workqueue.Stats {
	w.t.Helper()
	r := workqueue.NewRunner(w.Store, w.Pristine, w.Dir, nil)
	stats, err := r.Run(context.Background())
	require.NoError(w.t, err)
	return stats
}

// Abspath returns the on-disk path of relpath.
func (w *WC) Abspath(relpath string) string {
	return filepath.Join(w.Dir, filepath.FromSlash(relpath))
}

// WriteFile writes a working file, creating parent directories.
func (w *WC) WriteFile(relpath, content string) {
	w.t.Helper()
	path := w.Abspath(relpath)
	require.NoError(w.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(w.t, os.WriteFile(path, []byte(content), 0o644))
}

// ReadFile returns a working file's content.
func (w *WC) ReadFile(relpath string) string {
	w.t.Helper()
	data, err := os.ReadFile(w.Abspath(relpath))
	require.NoError(w.t, err)
	return string(data)
}

// Mkdir creates a working directory.
func (w *WC) Mkdir(relpath string) {
	w.t.Helper()
	require.NoError(w.t, os.MkdirAll(w.Abspath(relpath), 0o755))
}
