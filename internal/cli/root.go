package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/wcmove/internal/config"
	"github.com/roach88/wcmove/internal/wcroot"
)

// RootOptions holds global flags for all commands, and the configuration
// and logger resolved from them before a subcommand runs.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	WC       string
	LogLevel string

	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the wcmove CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wcmove",
		Short: "wcmove - keep moved subtrees in step with their sources",
		Long: `Reconcile local moves in a working copy with incoming changes.

When an update or switch changes a subtree that was moved locally, the
move destination is left behind. wcmove applies the change to the
destination, raises tree conflicts where local edits get in the way, and
breaks moves that should no longer be tracked.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.WC, "wc", ".", "working copy root")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")

	// Add subcommands
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewConflictsCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewBumpCommand(opts))
	cmd.AddCommand(NewBreakMoveCommand(opts))
	cmd.AddCommand(NewBreakMovedChildrenCommand(opts))
	cmd.AddCommand(NewRunQueueCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup resolves the configuration and installs the logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	level, err := cfg.Level()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	o.Config = cfg
	o.Format = cfg.Format
	o.Logger = newLogger(cmd.ErrOrStderr(), level)
	return nil
}

// newLogger writes human-readable logs to w, in colour when w is a
// terminal.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}

// openWC opens the configured working copy.
func (o *RootOptions) openWC(mode wcroot.Mode) (*wcroot.WC, error) {
	w, err := wcroot.Open(o.Config, mode, o.Logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open working copy %s", o.Config.WCRoot), err)
	}
	return w, nil
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
