package reconcile

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/testutil"
	"github.com/roach88/wcmove/internal/wc"
	"github.com/roach88/wcmove/internal/worktree"
)

// newTestEngine creates an engine over the fixture with a fixed run token
// and a silent logger.
func newTestEngine(w *testutil.WC) *Engine {
	return New(w.Store, w.Pristine, worktree.New(w.Dir),
		WithRunTokens(testutil.NewFixedTokenGenerator("run-test")),
		WithLogger(discardLogger()),
	)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cancellingFiles cancels the operation's context on first use.
type cancellingFiles struct {
	WorkingFiles
	cancel context.CancelFunc
}

func (c *cancellingFiles) Stat(relpath string) (wc.Kind, error) {
	c.cancel()
	return c.WorkingFiles.Stat(relpath)
}

// movedWC checks out X (dir) with the given children at r1 and moves X
// to Y.
func movedWC(t *testing.T, children ...testutil.Node) *testutil.WC {
	t.Helper()
	w := testutil.NewWC(t)
	w.Checkout(append([]testutil.Node{testutil.Dir("X", 1)}, children...)...)
	w.Move("X", "Y")
	return w
}

func bump(t *testing.T, w *testutil.WC, root string, opts BumpOptions) Result {
	t.Helper()
	res, err := newTestEngine(w).PropagateBump(context.Background(), root, opts)
	require.NoError(t, err)
	return res
}

// only returns the notifications for path.
func only(notes []wc.Notification, path string) []wc.Notification {
	var out []wc.Notification
	for _, n := range notes {
		if n.Path == path {
			out = append(out, n)
		}
	}
	return out
}
