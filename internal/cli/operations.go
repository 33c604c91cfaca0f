package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wcmove/internal/reconcile"
	"github.com/roach88/wcmove/internal/wc"
	"github.com/roach88/wcmove/internal/wcroot"
)

// OperationOptions holds flags shared by the mutating commands.
type OperationOptions struct {
	*RootOptions
	NoRun bool // leave the work queue for a later run-queue
}

func (o *OperationOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.NoRun, "no-run", false, "do not run the work queue after committing")
}

type engineCall func(ctx context.Context, eng *reconcile.Engine, path string) (reconcile.Result, error)

// runOperation opens the working copy for writing, runs call, and unless
// NoRun is set drains the work queue the operation filled.
func runOperation(opts *OperationOptions, cmd *cobra.Command, op, path string, call engineCall) error {
	f := opts.formatter(cmd)

	w, err := opts.openWC(wcroot.ReadWrite)
	if err != nil {
		return f.Fail("failed to open working copy", err)
	}
	defer w.Close()

	ctx := cmd.Context()
	res, err := call(ctx, w.Engine(), path)
	if err != nil {
		return f.Fail(fmt.Sprintf("%s failed", op), err)
	}

	out := OperationOutput{
		Op:            op,
		Path:          path,
		RunToken:      res.RunToken,
		Notifications: res.Notifications,
	}
	if !opts.NoRun {
		stats, err := w.Runner().Run(ctx)
		if err != nil {
			return f.Fail("failed to run work queue", err)
		}
		out.Work = newWorkOutput(stats)
	}
	f.VerboseLog("run %s", res.RunToken)
	return f.Success(out)
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OperationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <victim>",
		Short: "Apply an incoming change to a move destination",
		Long: `Resolve the moved-away tree conflict on a move source.

The update recorded in the conflict is replayed onto the move
destination: added, changed and deleted nodes follow the source, local
edits at the destination are merged, and new tree conflicts are raised
where they cannot be. The victim's conflict is cleared on success.

Exit codes:
  0 - Conflict resolved
  1 - Refused (not a victim, mixed-revision source, ...)
  2 - Command error

Examples:
  wcmove resolve A/X
  wcmove resolve A/X --no-run --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(opts, cmd, "resolve", args[0],
				func(ctx context.Context, eng *reconcile.Engine, path string) (reconcile.Result, error) {
					return eng.ReconcileMovedSubtree(ctx, path)
				})
		},
	}
	opts.addFlags(cmd)
	return cmd
}

// BumpOptions holds flags for the bump command.
type BumpOptions struct {
	OperationOptions
	Depth     string
	Operation string
	Abandon   []string
}

// NewBumpCommand creates the bump command.
func NewBumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BumpOptions{OperationOptions: OperationOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "bump <root>",
		Short: "Carry a BASE bump into the moves below root",
		Long: `Propagate a BASE bump under root into every move whose source lies in
the bumped tree.

Moves the bump fully covers are updated in place. Moves it only partly
covers get a moved-away tree conflict on their source instead. Moves
listed with --abandon are broken.

Examples:
  wcmove bump A
  wcmove bump A --depth immediates
  wcmove bump A --abandon A/X`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bump := reconcile.BumpOptions{
				Depth:     wc.Depth(opts.Depth),
				Operation: wc.Operation(opts.Operation),
				Abandon:   opts.Abandon,
			}
			if bump.Operation != wc.OpUpdate && bump.Operation != wc.OpSwitch {
				err := NewExitError(ExitCommandError, fmt.Sprintf("invalid operation %q: must be update or switch", opts.Operation))
				return opts.formatter(cmd).Fail("invalid arguments", err)
			}
			return runOperation(&opts.OperationOptions, cmd, "bump", args[0],
				func(ctx context.Context, eng *reconcile.Engine, path string) (reconcile.Result, error) {
					return eng.PropagateBump(ctx, path, bump)
				})
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Depth, "depth", string(wc.DepthInfinity), "depth of the bump (empty|files|immediates|infinity)")
	cmd.Flags().StringVar(&opts.Operation, "operation", string(wc.OpUpdate), "operation recorded on raised conflicts (update|switch)")
	cmd.Flags().StringSliceVar(&opts.Abandon, "abandon", nil, "move source roots to break instead of update")
	return cmd
}

// NewBreakMoveCommand creates the break-move command.
func NewBreakMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OperationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "break-move <path>",
		Short: "Turn a move into a plain delete and copy",
		Long: `Break the move through path, which may be either its source or its
destination. The delete and the copy stay; only the link between them
is dropped.

Examples:
  wcmove break-move A/Y`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(opts, cmd, "break-move", args[0],
				func(ctx context.Context, eng *reconcile.Engine, path string) (reconcile.Result, error) {
					return eng.BreakMove(ctx, path)
				})
		},
	}
	opts.addFlags(cmd)
	return cmd
}

// NewBreakMovedChildrenCommand creates the break-moved-children command.
func NewBreakMovedChildrenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OperationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "break-moved-children <path>",
		Short: "Break every move whose source lies below path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(opts, cmd, "break-moved-children", args[0],
				func(ctx context.Context, eng *reconcile.Engine, path string) (reconcile.Result, error) {
					return eng.BreakMovedChildren(ctx, path)
				})
		},
	}
	opts.addFlags(cmd)
	return cmd
}
