package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
)

// Pristines is the content-addressed text store the engine reads old and
// new file texts from and installs merge results into.
type Pristines interface {
	ReadAll(checksum wc.Checksum) ([]byte, error)
	InstallBytes(content []byte) (wc.Checksum, error)
}

// WorkingFiles is the read-only view of the on-disk working tree.
// All filesystem changes go through the work queue instead.
type WorkingFiles interface {
	Stat(relpath string) (wc.Kind, error)
	IsModified(relpath string, pristine wc.Checksum) (bool, error)
	ReadFile(relpath string) ([]byte, error)
}

// Engine reconciles move destinations with their updated sources.
//
// Every entry point runs in exactly one store transaction. Rows, ACTUAL
// state and work-queue items are committed together or not at all, and
// notifications are returned only after the commit.
//
// Thread-safety model: an Engine holds no per-operation state and may be
// shared, but the store serialises transactions on its single connection.
type Engine struct {
	store    *store.Store
	pristine Pristines
	files    WorkingFiles
	tokens   RunTokenGenerator
	logger   *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithRunTokens sets the generator for run tokens.
//
// Default: UUIDv7Generator. Tests use NewFixedGenerator for stable logs.
func WithRunTokens(gen RunTokenGenerator) EngineOption {
	return func(e *Engine) {
		e.tokens = gen
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine over a metadata store, a pristine store and the
// working tree.
func New(s *store.Store, pristine Pristines, files WorkingFiles, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    s,
		pristine: pristine,
		files:    files,
		tokens:   UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is what a committed operation reports back.
type Result struct {
	// RunToken correlates the operation's log lines.
	RunToken string `json:"run_token"`

	// Notifications lists the visible effects in emission order.
	Notifications []wc.Notification `json:"notifications"`
}

// BumpOptions configures PropagateBump.
type BumpOptions struct {
	// Depth is the depth the BASE tree was bumped to under the root.
	// Zero means DepthInfinity.
	Depth wc.Depth

	// Operation is recorded on raised conflicts. Zero means OpUpdate.
	Operation wc.Operation

	// Abandon lists move source roots whose moves are broken instead of
	// reconciled.
	Abandon []string
}

// ReconcileMovedSubtree applies the incoming change recorded by victim's
// moved-away tree conflict to the move destination.
func (e *Engine) ReconcileMovedSubtree(ctx context.Context, victim string) (Result, error) {
	return e.run(ctx, "reconcile", victim, func(op *operation, path string) error {
		return op.reconcileVictim(path)
	})
}

// PropagateBump carries a BASE bump under root into every move whose
// source lies in the bumped tree.
func (e *Engine) PropagateBump(ctx context.Context, root string, opts BumpOptions) (Result, error) {
	if opts.Depth == "" {
		opts.Depth = wc.DepthInfinity
	}
	if _, err := wc.ParseDepth(string(opts.Depth)); err != nil {
		return Result{}, NewInvalidDepthError(string(opts.Depth))
	}
	if opts.Operation == "" {
		opts.Operation = wc.OpUpdate
	}
	return e.run(ctx, "bump", root, func(op *operation, path string) error {
		return op.propagateBump(path, 0, opts)
	})
}

// BreakMove turns the move through path into a plain delete and a plain
// copy. path may be either end of the move.
func (e *Engine) BreakMove(ctx context.Context, path string) (Result, error) {
	return e.run(ctx, "break-move", path, func(op *operation, path string) error {
		return op.breakMoveAt(path)
	})
}

// BreakMovedChildren breaks every move whose source lies strictly below
// path.
func (e *Engine) BreakMovedChildren(ctx context.Context, path string) (Result, error) {
	return e.run(ctx, "break-moved-children", path, func(op *operation, path string) error {
		return op.breakMovedChildren(path)
	})
}

// operation is the state of one entry point call: the transaction, the
// notification spool and the engine's collaborators.
type operation struct {
	*Engine
	tx     *store.Tx
	spool  *spool
	logger *slog.Logger
}

func (e *Engine) run(ctx context.Context, name, path string, fn func(op *operation, path string) error) (Result, error) {
	path, err := wc.Normalize(path)
	if err != nil {
		return Result{}, err
	}
	token := e.tokens.Generate()
	logger := e.logger.With("run", token, "op", name)
	logger.Debug("operation started", "path", path)

	sp := newSpool()
	err = e.store.WithTx(ctx, func(tx *store.Tx) error {
		return fn(&operation{Engine: e, tx: tx, spool: sp, logger: logger}, path)
	})
	if err != nil {
		logger.Debug("operation rolled back", "path", path, "error", err)
		return Result{RunToken: token}, fmt.Errorf("%s %q: %w", name, path, err)
	}

	notes := sp.Drain()
	logger.Info("operation committed", "path", path, "notifications", len(notes))
	return Result{RunToken: token, Notifications: notes}, nil
}
