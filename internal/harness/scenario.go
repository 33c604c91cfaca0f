package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wcmove/internal/fixture"
	"github.com/roach88/wcmove/internal/wc"
)

// Scenario defines a reconciliation test scenario: a working copy built
// from a fixture, a flow of operations run against it, and assertions on
// the resulting trace, rows and files.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunToken is the fixed run token every operation reports.
	// If empty, defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	// Fixture is the working-copy state the flow starts from.
	Fixture fixture.Spec `yaml:"fixture"`

	// Flow contains the operations to run, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and working-copy state.
	Assertions []Assertion `yaml:"assertions"`
}

// Flow step operations.
const (
	OpReconcile          = "reconcile"
	OpBump               = "bump"
	OpBreakMove          = "break-move"
	OpBreakMovedChildren = "break-moved-children"
	OpRunQueue           = "run-queue"
)

// FlowStep is one operation of the flow.
type FlowStep struct {
	// Op is one of reconcile, bump, break-move, break-moved-children or
	// run-queue.
	Op string `yaml:"op"`

	// Path is the operation's path argument. Unused by run-queue.
	Path string `yaml:"path,omitempty"`

	// Depth and Abandon configure bump steps.
	Depth   string   `yaml:"depth,omitempty"`
	Abandon []string `yaml:"abandon,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// CaseOK is the expected case of a step that succeeds.
const CaseOK = "ok"

// ExpectClause specifies expected step behavior.
type ExpectClause struct {
	// Case is "ok" or the error code the step must fail with
	// (e.g. "NOT_MOVED", "MIXED_REVISION").
	Case string `yaml:"case"`
}

// Assertion validates the trace or the final working-copy state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "notification": a notification for path with the given fields
	// - "notification_count": exactly count notifications
	// - "conflict": path carries a tree conflict, optionally with reason
	// - "no_conflict": path carries no conflict record
	// - "node": a row exists at (path, op_depth) with the given fields
	// - "no_node": no row exists at (path, op_depth)
	// - "file": the working file at path has content
	// - "work_count": exactly count work items are pending
	Type string `yaml:"type"`

	Path    string `yaml:"path,omitempty"`
	OpDepth int    `yaml:"op_depth,omitempty"`

	// Notification fields. Empty fields are not checked.
	Action       string `yaml:"action,omitempty"`
	Kind         string `yaml:"kind,omitempty"`
	ContentState string `yaml:"content_state,omitempty"`
	PropState    string `yaml:"prop_state,omitempty"`

	// Reason is the expected tree conflict reason.
	Reason string `yaml:"reason,omitempty"`

	// Node fields. Unset fields are not checked.
	Presence     string `yaml:"presence,omitempty"`
	Revision     int64  `yaml:"revision,omitempty"`
	ReposRelpath string `yaml:"repos_relpath,omitempty"`
	MovedHere    *bool  `yaml:"moved_here,omitempty"`

	// Content is the expected working file content.
	Content *string `yaml:"content,omitempty"`

	// Count is used by notification_count and work_count.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertNotification      = "notification"
	AssertNotificationCount = "notification_count"
	AssertConflict          = "conflict"
	AssertNoConflict        = "no_conflict"
	AssertNode              = "node"
	AssertNoNode            = "no_node"
	AssertFile              = "file"
	AssertWorkCount         = "work_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if err := s.Fixture.Validate(); err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateStep validates a single flow step based on its op.
func validateStep(index int, step *FlowStep) error {
	switch step.Op {
	case "":
		return fmt.Errorf("flow[%d]: op is required", index)
	case OpReconcile, OpBreakMove, OpBreakMovedChildren:
	case OpBump:
		if step.Depth != "" {
			if _, err := wc.ParseDepth(step.Depth); err != nil {
				return fmt.Errorf("flow[%d]: %w", index, err)
			}
		}
	case OpRunQueue:
		if step.Path != "" {
			return fmt.Errorf("flow[%d]: run-queue takes no path", index)
		}
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", index, step.Op)
	}
	if step.Op != OpBump && (step.Depth != "" || len(step.Abandon) > 0) {
		return fmt.Errorf("flow[%d]: depth and abandon are only valid for bump", index)
	}
	if step.Expect != nil && step.Expect.Case == "" {
		return fmt.Errorf("flow[%d].expect: case is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertNotification, AssertConflict, AssertNoConflict, AssertNode, AssertNoNode:
		// Path may be "" for the working copy root, except for
		// notifications which always name a path below it.
		if a.Type == AssertNotification && a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for notification", index)
		}
	case AssertFile:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for file", index)
		}
		if a.Content == nil {
			return fmt.Errorf("assertions[%d]: content is required for file", index)
		}
	case AssertNotificationCount, AssertWorkCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
