package cli

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
	"github.com/roach88/wcmove/internal/wcroot"
)

// QueryOptions holds flags for the read-only commands.
type QueryOptions struct {
	*RootOptions
	Match string // doublestar pattern on relpaths
}

func (o *QueryOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Match, "match", "", "only show paths matching this glob (e.g. \"A/**/f*\")")
}

// matcher returns a predicate for the --match pattern.
func (o *QueryOptions) matcher() (func(relpath string) bool, error) {
	if o.Match == "" {
		return func(string) bool { return true }, nil
	}
	if !doublestar.ValidatePattern(o.Match) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid match pattern %q", o.Match))
	}
	pattern := o.Match
	return func(relpath string) bool {
		ok, _ := doublestar.Match(pattern, relpath)
		return ok
	}, nil
}

// NodeOutput is one row of the info command.
type NodeOutput struct {
	Path         string `json:"path"`
	OpDepth      int    `json:"op_depth"`
	Presence     string `json:"presence"`
	Kind         string `json:"kind"`
	Revision     int64  `json:"revision,omitempty"`
	ReposRelpath string `json:"repos_relpath,omitempty"`
	MovedTo      string `json:"moved_to,omitempty"`
	MovedHere    bool   `json:"moved_here,omitempty"`
	MovedFrom    string `json:"moved_from,omitempty"`
}

// InfoOutput lists the rows of a subtree.
type InfoOutput struct {
	Root  string       `json:"root"`
	Nodes []NodeOutput `json:"nodes"`
}

func (o InfoOutput) String() string {
	if len(o.Nodes) == 0 {
		return fmt.Sprintf("no nodes at or below %q", o.Root)
	}
	var b strings.Builder
	for _, n := range o.Nodes {
		path := n.Path
		if path == "" {
			path = "."
		}
		fmt.Fprintf(&b, "%-30s @%-2d %-12s %-4s r%-4d", path, n.OpDepth, n.Presence, n.Kind, n.Revision)
		switch {
		case n.MovedTo != "":
			fmt.Fprintf(&b, " moved to %s", n.MovedTo)
		case n.MovedFrom != "":
			fmt.Fprintf(&b, " moved from %s", n.MovedFrom)
		case n.MovedHere:
			b.WriteString(" moved here")
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func nodeOutput(row wc.NodeRow) NodeOutput {
	out := NodeOutput{
		Path:         row.Relpath,
		OpDepth:      row.OpDepth,
		Presence:     string(row.Presence),
		Kind:         string(row.Kind),
		Revision:     row.Revision,
		ReposRelpath: row.ReposRelpath,
		MovedHere:    row.MovedHere,
	}
	if row.MovedTo != nil {
		out.MovedTo = fmt.Sprintf("%s@%d", row.MovedTo.Relpath, row.MovedTo.OpDepth)
	}
	if row.MovedFrom != nil {
		out.MovedFrom = fmt.Sprintf("%s@%d", row.MovedFrom.Relpath, row.MovedFrom.OpDepth)
	}
	return out
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "info [path]",
		Short: "Show the layered rows of a subtree",
		Long: `List every row at or below path, lowest layer first, with the move
links recorded on them.

Examples:
  wcmove info
  wcmove info A --match "A/**/*.go"
  wcmove info --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(opts, cmd, optionalPath(args))
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func runInfo(opts *QueryOptions, cmd *cobra.Command, root string) error {
	f := opts.formatter(cmd)
	match, err := opts.matcher()
	if err != nil {
		return f.Fail("invalid arguments", err)
	}
	root, err = wc.Normalize(root)
	if err != nil {
		return f.Fail("invalid arguments", NewExitError(ExitCommandError, err.Error()))
	}

	w, err := opts.openWC(wcroot.ReadOnly)
	if err != nil {
		return f.Fail("failed to open working copy", err)
	}
	defer w.Close()

	out := InfoOutput{Root: root, Nodes: []NodeOutput{}}
	err = w.Store.WithTx(cmd.Context(), func(tx *store.Tx) error {
		rows, err := tx.SubtreeRows(root)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if match(row.Relpath) {
				out.Nodes = append(out.Nodes, nodeOutput(row))
			}
		}
		return nil
	})
	if err != nil {
		return f.Fail("failed to read nodes", err)
	}
	return f.Success(out)
}

// ConflictOutput is one conflicted path.
type ConflictOutput struct {
	Path          string   `json:"path"`
	Operation     string   `json:"operation"`
	Markers       []string `json:"markers"`
	Reason        string   `json:"reason,omitempty"`
	Action        string   `json:"action,omitempty"`
	MoveSrcOpRoot string   `json:"move_src_op_root,omitempty"`
}

// ConflictsOutput lists the conflicts of a subtree.
type ConflictsOutput struct {
	Root      string           `json:"root"`
	Conflicts []ConflictOutput `json:"conflicts"`
}

func (o ConflictsOutput) String() string {
	if len(o.Conflicts) == 0 {
		return fmt.Sprintf("no conflicts at or below %q", o.Root)
	}
	var b strings.Builder
	for _, c := range o.Conflicts {
		fmt.Fprintf(&b, "%s: %s (%s)", c.Path, strings.Join(c.Markers, ", "), c.Operation)
		if c.Reason != "" {
			fmt.Fprintf(&b, " local %s, incoming %s", c.Reason, c.Action)
		}
		if c.MoveSrcOpRoot != "" {
			fmt.Fprintf(&b, ", move source %s", c.MoveSrcOpRoot)
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func conflictOutput(a store.Actual) ConflictOutput {
	out := ConflictOutput{
		Path:      a.Relpath,
		Operation: string(a.Conflict.Operation),
		Markers:   make([]string, 0, len(a.Conflict.Markers)),
	}
	for _, m := range a.Conflict.Markers {
		out.Markers = append(out.Markers, string(m.Kind()))
	}
	if tc, ok := a.Conflict.Tree(); ok {
		out.Reason = string(tc.Reason)
		out.Action = string(tc.Action)
		out.MoveSrcOpRoot = tc.MoveSrcOpRoot
	}
	return out
}

// NewConflictsCommand creates the conflicts command.
func NewConflictsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conflicts [path]",
		Short: "List recorded conflicts",
		Long: `List the conflict records at or below path. Moved-away tree conflicts
name the move source they belong to; pass that path to resolve.

Examples:
  wcmove conflicts
  wcmove conflicts A --match "A/*"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflicts(opts, cmd, optionalPath(args))
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func runConflicts(opts *QueryOptions, cmd *cobra.Command, root string) error {
	f := opts.formatter(cmd)
	match, err := opts.matcher()
	if err != nil {
		return f.Fail("invalid arguments", err)
	}
	root, err = wc.Normalize(root)
	if err != nil {
		return f.Fail("invalid arguments", NewExitError(ExitCommandError, err.Error()))
	}

	w, err := opts.openWC(wcroot.ReadOnly)
	if err != nil {
		return f.Fail("failed to open working copy", err)
	}
	defer w.Close()

	out := ConflictsOutput{Root: root, Conflicts: []ConflictOutput{}}
	err = w.Store.WithTx(cmd.Context(), func(tx *store.Tx) error {
		actuals, err := tx.Conflicts(root)
		if err != nil {
			return err
		}
		for _, a := range actuals {
			if match(a.Relpath) {
				out.Conflicts = append(out.Conflicts, conflictOutput(a))
			}
		}
		return nil
	})
	if err != nil {
		return f.Fail("failed to read conflicts", err)
	}
	return f.Success(out)
}

func optionalPath(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
