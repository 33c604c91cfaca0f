package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
	"github.com/roach88/wcmove/internal/worktree"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, describeEvent(ev))
		}
	}
	return buf.String()
}

func describeEvent(ev TraceEvent) string {
	switch ev.Type {
	case EventNotification:
		return fmt.Sprintf("%s %s (%s, content %s, props %s)", ev.Action, ev.Path, ev.Kind, ev.ContentState, ev.PropState)
	case EventError:
		return fmt.Sprintf("%s %q failed: %s", ev.Op, ev.Path, ev.Code)
	}
	if ev.Path == "" {
		return ev.Op
	}
	return fmt.Sprintf("%s %q", ev.Op, ev.Path)
}

// assertNotification checks that the trace holds a notification for the
// assertion's path whose set fields all match.
func assertNotification(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Type != EventNotification || ev.Path != a.Path {
			continue
		}
		if matchField(string(ev.Action), a.Action) &&
			matchField(string(ev.Kind), a.Kind) &&
			matchField(string(ev.ContentState), a.ContentState) &&
			matchField(string(ev.PropState), a.PropState) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertNotification,
		Expected: fmt.Sprintf("notification %s", describeNotification(a)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func describeNotification(a Assertion) string {
	parts := []string{a.Path}
	for _, f := range []struct{ name, val string }{
		{"action", a.Action},
		{"kind", a.Kind},
		{"content_state", a.ContentState},
		{"prop_state", a.PropState},
	} {
		if f.val != "" {
			parts = append(parts, f.name+"="+f.val)
		}
	}
	return strings.Join(parts, " ")
}

// matchField reports whether got matches want. An empty want matches
// anything.
func matchField(got, want string) bool {
	return want == "" || got == want
}

// assertNotificationCount checks the total number of notifications.
func assertNotificationCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == EventNotification {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertNotificationCount,
			Expected: fmt.Sprintf("%d notifications", a.Count),
			Actual:   fmt.Sprintf("%d notifications", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertConflict checks the conflict record of a path. With want true the
// path must carry a tree conflict, with the assertion's reason if set.
func assertConflict(tx *store.Tx, a Assertion, want bool) error {
	actual, ok, err := tx.GetActual(a.Path)
	if err != nil {
		return err
	}
	var skel *wc.ConflictSkel
	if ok {
		skel = actual.Conflict
	}

	if !want {
		if skel != nil {
			return &AssertionError{
				Type:     AssertNoConflict,
				Expected: fmt.Sprintf("no conflict on %q", a.Path),
				Actual:   fmt.Sprintf("conflict with %d markers", len(skel.Markers)),
			}
		}
		return nil
	}

	if skel == nil {
		return &AssertionError{
			Type:     AssertConflict,
			Expected: fmt.Sprintf("tree conflict on %q", a.Path),
			Actual:   "no conflict record",
		}
	}
	tc, ok := skel.Tree()
	if !ok {
		return &AssertionError{
			Type:     AssertConflict,
			Expected: fmt.Sprintf("tree conflict on %q", a.Path),
			Actual:   "conflict record without tree marker",
		}
	}
	if !matchField(string(tc.Reason), a.Reason) {
		return &AssertionError{
			Type:     AssertConflict,
			Expected: fmt.Sprintf("reason %s", a.Reason),
			Actual:   fmt.Sprintf("reason %s", tc.Reason),
		}
	}
	return nil
}

// assertNode checks the row at (path, op_depth). With want false the row
// must not exist.
func assertNode(tx *store.Tx, a Assertion, want bool) error {
	row, err := tx.GetNode(a.Path, a.OpDepth)
	if errors.Is(err, store.ErrNodeNotFound) {
		if want {
			return &AssertionError{
				Type:     AssertNode,
				Expected: fmt.Sprintf("row %q@%d", a.Path, a.OpDepth),
				Actual:   "row not found",
			}
		}
		return nil
	}
	if err != nil {
		return err
	}
	if !want {
		return &AssertionError{
			Type:     AssertNoNode,
			Expected: fmt.Sprintf("no row %q@%d", a.Path, a.OpDepth),
			Actual:   fmt.Sprintf("row with presence %s", row.Presence),
		}
	}

	mismatch := func(field string, expected, actual any) error {
		return &AssertionError{
			Type:     AssertNode,
			Expected: fmt.Sprintf("%q@%d %s = %v", a.Path, a.OpDepth, field, expected),
			Actual:   fmt.Sprintf("%s = %v", field, actual),
		}
	}
	if !matchField(string(row.Presence), a.Presence) {
		return mismatch("presence", a.Presence, row.Presence)
	}
	if !matchField(string(row.Kind), a.Kind) {
		return mismatch("kind", a.Kind, row.Kind)
	}
	if a.Revision != 0 && row.Revision != a.Revision {
		return mismatch("revision", a.Revision, row.Revision)
	}
	if !matchField(row.ReposRelpath, a.ReposRelpath) {
		return mismatch("repos_relpath", a.ReposRelpath, row.ReposRelpath)
	}
	if a.MovedHere != nil && row.MovedHere != *a.MovedHere {
		return mismatch("moved_here", *a.MovedHere, row.MovedHere)
	}
	return nil
}

// assertFile checks the content of a working file.
func assertFile(files *worktree.Tree, a Assertion) error {
	data, err := files.ReadFile(a.Path)
	if err != nil {
		return &AssertionError{
			Type:     AssertFile,
			Expected: fmt.Sprintf("file %q", a.Path),
			Actual:   err.Error(),
		}
	}
	if string(data) != *a.Content {
		return &AssertionError{
			Type:     AssertFile,
			Expected: fmt.Sprintf("%q has content %q", a.Path, *a.Content),
			Actual:   fmt.Sprintf("content %q", data),
		}
	}
	return nil
}

// assertWorkCount checks the number of pending work-queue items.
func assertWorkCount(ctx context.Context, st *store.Store, a Assertion) error {
	items, err := st.PendingWork(ctx)
	if err != nil {
		return err
	}
	if len(items) != a.Count {
		return &AssertionError{
			Type:     AssertWorkCount,
			Expected: fmt.Sprintf("%d pending work items", a.Count),
			Actual:   fmt.Sprintf("%d pending work items", len(items)),
		}
	}
	return nil
}

// AssertionContext provides the working copy assertions read from.
type AssertionContext struct {
	Ctx   context.Context
	Store *store.Store
	Files *worktree.Tree
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// Trace assertions need no context; every other type reads from actx.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertNotification:
			err = assertNotification(result.Trace, assertion)
		case AssertNotificationCount:
			err = assertNotificationCount(result.Trace, assertion)
		case AssertConflict, AssertNoConflict, AssertNode, AssertNoNode:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a store", i, assertion.Type)
				break
			}
			err = actx.Store.WithTx(actx.Ctx, func(tx *store.Tx) error {
				switch assertion.Type {
				case AssertConflict, AssertNoConflict:
					return assertConflict(tx, assertion, assertion.Type == AssertConflict)
				default:
					return assertNode(tx, assertion, assertion.Type == AssertNode)
				}
			})
		case AssertFile:
			if actx == nil || actx.Files == nil {
				err = fmt.Errorf("assertion[%d]: file requires a working tree", i)
				break
			}
			err = assertFile(actx.Files, assertion)
		case AssertWorkCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: work_count requires a store", i)
				break
			}
			err = assertWorkCount(actx.Ctx, actx.Store, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
