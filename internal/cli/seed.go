package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wcmove/internal/fixture"
	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wcroot"
)

// SeedOutput reports what seed built.
type SeedOutput struct {
	Root     string `json:"root"`
	Fixture  string `json:"fixture"`
	Nodes    int    `json:"nodes"`
	Moves    int    `json:"moves"`
	Victims  int    `json:"victims"`
	Database string `json:"database"`
}

func (o SeedOutput) String() string {
	return fmt.Sprintf("seeded %s from %s: %d nodes, %d moves, %d victims", o.Root, o.Fixture, o.Nodes, o.Moves, o.Victims)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Create a working copy from a fixture file",
		Long: `Create a working copy at --wc and fill it from a fixture: BASE rows and
files, local moves and deletes, an update's new BASE rows and the
moved-away conflicts it left behind.

The working copy must not already hold nodes.

Examples:
  wcmove seed --wc /tmp/wc internal/cli/testdata/fixtures/moved-dir.yaml
  wcmove --wc /tmp/wc conflicts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runSeed(opts *RootOptions, cmd *cobra.Command, path string) error {
	f := opts.formatter(cmd)

	spec, err := fixture.Load(path)
	if err != nil {
		return f.Fail("failed to load fixture", NewExitError(ExitCommandError, err.Error()))
	}

	w, err := opts.openWC(wcroot.Create)
	if err != nil {
		return f.Fail("failed to open working copy", err)
	}
	defer w.Close()

	err = w.Store.WithTx(cmd.Context(), func(tx *store.Tx) error {
		rows, err := tx.SubtreeRows("")
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("working copy %s is not empty", w.Root))
		}
		return nil
	})
	if err != nil {
		return f.Fail("failed to seed working copy", err)
	}

	if err := spec.Apply(cmd.Context(), w.Store, w.Pristine, w.Root); err != nil {
		return f.Fail("failed to seed working copy", err)
	}

	return f.Success(SeedOutput{
		Root:     w.Root,
		Fixture:  path,
		Nodes:    len(spec.Base),
		Moves:    len(spec.Moves),
		Victims:  len(spec.Victims),
		Database: opts.Config.DBPath(),
	})
}
