// Package fixture builds working-copy states: BASE checkouts, local moves
// and deletes, and the moved-away conflicts an update leaves behind. Tests,
// the scenario harness and the seed command all build state through it.
package fixture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
)

// Texts installs pristine texts.
type Texts interface {
	InstallBytes(content []byte) (wc.Checksum, error)
}

// Node describes one versioned node.
type Node struct {
	Path    string   `yaml:"path"`
	Kind    wc.Kind  `yaml:"kind"`
	Rev     int64    `yaml:"rev"`
	Content string   `yaml:"content,omitempty"`
	Props   wc.Props `yaml:"props,omitempty"`
}

// Dir describes a directory at rev.
func Dir(relpath string, rev int64) Node {
	return Node{Path: relpath, Kind: wc.KindDir, Rev: rev}
}

// File describes a file at rev with the given content.
func File(relpath string, rev int64, content string) Node {
	return Node{Path: relpath, Kind: wc.KindFile, Rev: rev, Content: content}
}

// WithProps returns a copy of n with pristine properties.
func (n Node) WithProps(props wc.Props) Node {
	n.Props = props
	return n
}

// WriteBase records nodes as BASE rows of the repository reposID. File
// contents are installed as pristine texts.
func WriteBase(tx *store.Tx, texts Texts, reposID int64, nodes ...Node) error {
	for _, n := range nodes {
		row := wc.NodeRow{
			Relpath:      n.Path,
			OpDepth:      0,
			ReposID:      reposID,
			ReposRelpath: n.Path,
			Revision:     n.Rev,
			Presence:     wc.PresenceNormal,
			Kind:         n.Kind,
			Props:        n.Props,
		}
		switch n.Kind {
		case wc.KindDir:
			row.Depth = wc.DepthInfinity
		case wc.KindFile:
			sum, err := texts.InstallBytes([]byte(n.Content))
			if err != nil {
				return fmt.Errorf("base %s: %w", n.Path, err)
			}
			row.Checksum = sum
		default:
			return fmt.Errorf("base %s: unsupported kind %q", n.Path, n.Kind)
		}
		if err := tx.InsertNode(row); err != nil {
			return fmt.Errorf("base %s: %w", n.Path, err)
		}
	}
	return nil
}

// Materialize creates nodes on disk below dir. Parents must come before
// their children.
func Materialize(dir string, nodes ...Node) error {
	for _, n := range nodes {
		path := filepath.Join(dir, filepath.FromSlash(n.Path))
		if n.Kind == wc.KindDir {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(n.Content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Move records a local move of src to dst: a delete at src's op-depth
// carrying moved_to, and a moved-here copy at dst's op-depth taken from the
// highest layer below the delete.
func Move(tx *store.Tx, src, dst string) error {
	srcDepth := wc.RelpathDepth(src)
	dstDepth := wc.RelpathDepth(dst)
	below, ok, err := tx.HighestBelow(src, srcDepth)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("move %s: nothing to move", src)
	}
	rows, err := tx.LayerSubtree(src, below.OpDepth)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Presence != wc.PresenceNormal {
			continue
		}
		del := wc.NodeRow{
			Relpath:  row.Relpath,
			OpDepth:  srcDepth,
			Presence: wc.PresenceBaseDeleted,
			Kind:     row.Kind,
		}
		cp := row.Clone()
		cp.Relpath = wc.Reroot(row.Relpath, src, dst)
		cp.OpDepth = dstDepth
		cp.Switched = false
		cp.MovedTo = nil
		cp.MovedFrom = nil
		cp.MovedHere = true
		if row.Relpath == src {
			del.MovedTo = &wc.Ref{Relpath: dst, OpDepth: dstDepth}
			cp.MovedFrom = &wc.Ref{Relpath: src, OpDepth: srcDepth}
		}
		if err := tx.InsertNode(del); err != nil {
			return err
		}
		if err := tx.InsertNode(cp); err != nil {
			return err
		}
	}
	return nil
}

// MoveFiles renames src to dst below dir.
func MoveFiles(dir, src, dst string) error {
	to := filepath.Join(dir, filepath.FromSlash(dst))
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.Rename(filepath.Join(dir, filepath.FromSlash(src)), to)
}

// Delete records a plain local delete of relpath in its own layer.
func Delete(tx *store.Tx, relpath string) error {
	depth := wc.RelpathDepth(relpath)
	below, ok, err := tx.HighestBelow(relpath, depth)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete %s: nothing to delete", relpath)
	}
	rows, err := tx.LayerSubtree(relpath, below.OpDepth)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Presence != wc.PresenceNormal {
			continue
		}
		err := tx.InsertNode(wc.NodeRow{
			Relpath:  row.Relpath,
			OpDepth:  depth,
			Presence: wc.PresenceBaseDeleted,
			Kind:     row.Kind,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// VictimConflict builds the moved-away conflict an update from oldRev to
// newRev leaves on the move source relpath.
func VictimConflict(repo store.Repository, relpath string, oldRev, newRev int64) (*wc.ConflictSkel, error) {
	loc := wc.Location{
		ReposRoot:    repo.Root,
		ReposUUID:    repo.UUID,
		ReposRelpath: relpath,
		Kind:         wc.KindDir,
	}
	oldLoc, newLoc := loc, loc
	oldLoc.Revision = oldRev
	newLoc.Revision = newRev
	skel := wc.NewConflictSkel(wc.OpUpdate, oldLoc, newLoc)
	err := skel.Add(wc.TreeConflict{
		Reason:        wc.ReasonMovedAway,
		Action:        wc.ActionEdit,
		MoveSrcOpRoot: relpath,
	})
	if err != nil {
		return nil, err
	}
	return skel, nil
}
