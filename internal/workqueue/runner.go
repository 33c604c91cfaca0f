package workqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
)

// Source is the committed side of the work queue.
type Source interface {
	NextWork(ctx context.Context) (store.WorkItem, bool, error)
	CompleteWork(ctx context.Context, id int64) error
}

// Pristines opens pristine texts for file installs.
type Pristines interface {
	Read(checksum wc.Checksum) (io.ReadCloser, error)
}

// Stats summarises one Run.
type Stats struct {
	Items     int
	Installed int
	Removed   int
	Ensured   int
	Bytes     int64
}

// Runner drains the work queue against a working copy directory.
type Runner struct {
	src      Source
	pristine Pristines
	root     string
	logger   *slog.Logger
}

// NewRunner creates a runner writing below root.
func NewRunner(src Source, pristine Pristines, root string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{src: src, pristine: pristine, root: root, logger: logger}
}

// Run executes queued items oldest first until the queue is empty. Each
// item is removed from the queue only after it succeeded, so a failed or
// cancelled run can be resumed.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		row, ok, err := r.src.NextWork(ctx)
		if err != nil {
			return stats, err
		}
		if !ok {
			return stats, nil
		}
		it, err := Decode([]byte(row.Work))
		if err != nil {
			return stats, fmt.Errorf("work item %d: %w", row.ID, err)
		}
		if err := r.execute(it, &stats); err != nil {
			return stats, fmt.Errorf("work item %d: %w", row.ID, err)
		}
		if err := r.src.CompleteWork(ctx, row.ID); err != nil {
			return stats, err
		}
		stats.Items++
		r.logger.Debug("work item done", "id", row.ID, "op", it.Op, "path", it.Relpath)
	}
}

func (r *Runner) abspath(relpath string) string {
	return filepath.Join(r.root, filepath.FromSlash(relpath))
}

func (r *Runner) execute(it Item, stats *Stats) error {
	path := r.abspath(it.Relpath)
	switch it.Op {
	case OpFileInstall:
		n, err := r.install(path, it.Checksum)
		if err != nil {
			return fmt.Errorf("install %s: %w", it.Relpath, err)
		}
		stats.Installed++
		stats.Bytes += n
	case OpFileRemove:
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", it.Relpath, err)
		}
		stats.Removed++
	case OpDirRemove:
		if it.Recursive {
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("remove dir %s: %w", it.Relpath, err)
			}
		} else if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			// Unversioned content keeps the directory alive.
			r.logger.Warn("directory left in place", "path", it.Relpath, "error", err)
		}
		stats.Removed++
	case OpDirEnsure:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("ensure dir %s: %w", it.Relpath, err)
		}
		stats.Ensured++
	}
	return nil
}

// install writes a pristine text through a temp file in the target
// directory and renames it into place.
func (r *Runner) install(path string, checksum wc.Checksum) (int64, error) {
	src, err := r.pristine.Read(checksum)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, ".wcmove-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return n, nil
}
