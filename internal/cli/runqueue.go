package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/wcmove/internal/wcroot"
)

// NewRunQueueCommand creates the run-queue command.
func NewRunQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-queue",
		Short: "Apply pending work-queue items to the working files",
		Long: `Drain the persisted work queue: install texts from the pristine store,
remove files and directories, and create directories.

Operations run the queue themselves unless given --no-run. An item that
fails stays queued, so run-queue can be repeated after fixing the cause.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueue(rootOpts, cmd)
		},
	}
	return cmd
}

func runQueue(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	w, err := opts.openWC(wcroot.ReadWrite)
	if err != nil {
		return f.Fail("failed to open working copy", err)
	}
	defer w.Close()

	stats, err := w.Runner().Run(cmd.Context())
	if err != nil {
		return f.Fail("failed to run work queue", err)
	}
	return f.Success(newWorkOutput(stats))
}
