// Package worktree gives read access to the user's working files.
// Nothing here writes to disk; writes go through the work queue.
package worktree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/roach88/wcmove/internal/wc"
)

// Tree is a working copy directory on disk.
type Tree struct {
	root string
}

// New returns a Tree rooted at dir.
func New(dir string) *Tree {
	return &Tree{root: dir}
}

// Root returns the directory the tree is rooted at.
func (t *Tree) Root() string {
	return t.root
}

// Abspath converts a relpath to a filesystem path.
func (t *Tree) Abspath(relpath string) string {
	if relpath == "" {
		return t.root
	}
	return filepath.Join(t.root, filepath.FromSlash(relpath))
}

// Stat reports the on-disk kind of relpath, KindNone if nothing is there.
// Symlinks are not followed.
func (t *Tree) Stat(relpath string) (wc.Kind, error) {
	fi, err := os.Lstat(t.Abspath(relpath))
	if missing(err) {
		return wc.KindNone, nil
	}
	if err != nil {
		return wc.KindNone, fmt.Errorf("stat %s: %w", relpath, err)
	}
	switch {
	case fi.Mode()&fs.ModeSymlink != 0:
		return wc.KindSymlink, nil
	case fi.IsDir():
		return wc.KindDir, nil
	}
	return wc.KindFile, nil
}

// ReadFile returns the content of a working file.
func (t *Tree) ReadFile(relpath string) ([]byte, error) {
	data, err := os.ReadFile(t.Abspath(relpath))
	if err != nil {
		return nil, fmt.Errorf("read working file %s: %w", relpath, err)
	}
	return data, nil
}

// IsModified reports whether the working file differs from the text with
// the given checksum. A missing or non-file node counts as modified.
func (t *Tree) IsModified(relpath string, pristine wc.Checksum) (bool, error) {
	f, err := os.Open(t.Abspath(relpath))
	if missing(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("open working file %s: %w", relpath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat working file %s: %w", relpath, err)
	}
	if !fi.Mode().IsRegular() {
		return true, nil
	}
	sum, _, err := wc.ReaderChecksum(f)
	if err != nil {
		return false, fmt.Errorf("hash working file %s: %w", relpath, err)
	}
	return sum != pristine, nil
}

// missing reports whether err means nothing is at the path, including when
// an ancestor is a file.
func missing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
