// Package wcroot opens a working copy: its admin directory, metadata store,
// pristine store and working tree, guarded by an advisory lock so that only
// one process writes at a time.
package wcroot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofrs/flock"

	"github.com/roach88/wcmove/internal/config"
	"github.com/roach88/wcmove/internal/pristine"
	"github.com/roach88/wcmove/internal/reconcile"
	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/workqueue"
	"github.com/roach88/wcmove/internal/worktree"
)

var (
	ErrLocked          = errors.New("working copy locked by another process")
	ErrNotAWorkingCopy = errors.New("not a working copy")
)

// Mode selects how a working copy is opened.
type Mode int

const (
	// ReadOnly takes a shared lock.
	ReadOnly Mode = iota
	// ReadWrite takes an exclusive lock.
	ReadWrite
	// Create is ReadWrite and creates the admin directory if missing.
	Create
)

// WC is an open working copy.
type WC struct {
	Root     string
	Store    *store.Store
	Pristine *pristine.DirStore
	Files    *worktree.Tree

	cfg    *config.Config
	lock   *flock.Flock
	logger *slog.Logger
}

// Open opens the working copy described by cfg.
func Open(cfg *config.Config, mode Mode, logger *slog.Logger) (*WC, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	admin := cfg.AdminPath()
	if _, err := os.Stat(admin); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat admin dir: %w", err)
		}
		if mode != Create {
			return nil, fmt.Errorf("%s: %w", cfg.WCRoot, ErrNotAWorkingCopy)
		}
		if err := os.MkdirAll(admin, 0o755); err != nil {
			return nil, fmt.Errorf("create admin dir: %w", err)
		}
	}

	lock := flock.New(cfg.LockPath())
	var locked bool
	var err error
	if mode == ReadOnly {
		locked, err = lock.TryRLock()
	} else {
		locked, err = lock.TryLock()
	}
	if err != nil {
		return nil, fmt.Errorf("lock working copy: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	s, err := store.Open(cfg.DBPath(), store.WithBusyTimeout(cfg.BusyTimeout))
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	p, err := pristine.NewDirStore(cfg.PristineDir(), cfg.CacheSize)
	if err != nil {
		s.Close()
		lock.Unlock()
		return nil, err
	}

	logger.Debug("working copy opened", "root", cfg.WCRoot, "mode", mode)
	return &WC{
		Root:     cfg.WCRoot,
		Store:    s,
		Pristine: p,
		Files:    worktree.New(cfg.WCRoot),
		cfg:      cfg,
		lock:     lock,
		logger:   logger,
	}, nil
}

// Engine returns a reconciliation engine over the working copy.
func (w *WC) Engine(opts ...reconcile.EngineOption) *reconcile.Engine {
	opts = append([]reconcile.EngineOption{reconcile.WithLogger(w.logger)}, opts...)
	return reconcile.New(w.Store, w.Pristine, w.Files, opts...)
}

// Runner returns a work-queue runner writing into the working tree.
func (w *WC) Runner() *workqueue.Runner {
	return workqueue.NewRunner(w.Store, w.Pristine, w.Root, w.logger)
}

// Close closes the store and releases the lock.
func (w *WC) Close() error {
	err := w.Store.Close()
	if uerr := w.lock.Unlock(); uerr != nil && err == nil {
		err = fmt.Errorf("unlock working copy: %w", uerr)
	}
	return err
}

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "read-write"
	case Create:
		return "create"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}
