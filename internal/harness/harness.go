package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/wcmove/internal/config"
	"github.com/roach88/wcmove/internal/reconcile"
	"github.com/roach88/wcmove/internal/testutil"
	"github.com/roach88/wcmove/internal/wc"
	"github.com/roach88/wcmove/internal/wcroot"
)

// Harness is the test execution engine for one scenario.
// It runs operations with a fixed run token and numbers trace events
// with a deterministic clock.
type Harness struct {
	wc     *wcroot.WC
	engine *reconcile.Engine
	clock  *reconcile.Clock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh working copy for isolation.
//
// Execution flow:
// 1. Create a working copy in a temporary directory
// 2. Apply the fixture
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "wcmove-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working copy dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// Suppress logs in tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w, err := wcroot.Open(config.Default(dir), wcroot.Create, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create working copy: %w", err)
	}
	defer w.Close()

	if err := scenario.Fixture.Apply(ctx, w.Store, w.Pristine, dir); err != nil {
		return nil, fmt.Errorf("failed to apply fixture: %w", err)
	}

	h := &Harness{
		wc:     w,
		engine: w.Engine(reconcile.WithRunTokens(testutil.NewFixedTokenGenerator(scenario.RunToken))),
		clock:  reconcile.NewClock(),
		logger: logger,
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Ctx:   ctx,
		Store: w.Store,
		Files: w.Files,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// A step that fails with a reconcile error code is traced and compared
// against its expect clause. Any other error aborts the scenario.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		result.Trace = append(result.Trace, TraceEvent{
			Type: EventOperation,
			Op:   step.Op,
			Path: step.Path,
			Seq:  h.clock.Next(),
		})

		if step.Op == OpRunQueue {
			if err := h.runQueue(ctx, result); err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			continue
		}

		res, err := h.invoke(ctx, step)
		got := CaseOK
		if err != nil {
			code := reconcile.CodeOf(err)
			if code == "" {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			got = string(code)
			result.Trace = append(result.Trace, TraceEvent{
				Type: EventError,
				Op:   step.Op,
				Path: step.Path,
				Code: got,
				Seq:  h.clock.Next(),
			})
		}
		for _, n := range res.Notifications {
			result.Trace = append(result.Trace, TraceEvent{
				Type:         EventNotification,
				Op:           step.Op,
				Path:         n.Path,
				Action:       n.Action,
				Kind:         n.Kind,
				ContentState: n.ContentState,
				PropState:    n.PropState,
				Seq:          h.clock.Next(),
			})
		}

		want := CaseOK
		if step.Expect != nil {
			want = step.Expect.Case
		}
		if got != want {
			result.AddError(fmt.Sprintf("flow[%d] %s %q: expected case %s, got %s", i, step.Op, step.Path, want, got))
		}

		h.logger.Info("flow step completed",
			"step", i,
			"op", step.Op,
			"path", step.Path,
			"case", got,
			"notifications", len(res.Notifications),
		)
	}
	return nil
}

func (h *Harness) invoke(ctx context.Context, step FlowStep) (reconcile.Result, error) {
	switch step.Op {
	case OpReconcile:
		return h.engine.ReconcileMovedSubtree(ctx, step.Path)
	case OpBump:
		return h.engine.PropagateBump(ctx, step.Path, reconcile.BumpOptions{
			Depth:   wc.Depth(step.Depth),
			Abandon: step.Abandon,
		})
	case OpBreakMove:
		return h.engine.BreakMove(ctx, step.Path)
	case OpBreakMovedChildren:
		return h.engine.BreakMovedChildren(ctx, step.Path)
	}
	return reconcile.Result{}, fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) runQueue(ctx context.Context, result *Result) error {
	stats, err := h.wc.Runner().Run(ctx)
	if err != nil {
		return err
	}
	result.Work.Items += stats.Items
	result.Work.Installed += stats.Installed
	result.Work.Removed += stats.Removed
	result.Work.Ensured += stats.Ensured
	result.Work.Bytes += stats.Bytes
	return nil
}
