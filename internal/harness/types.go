package harness

import (
	"github.com/roach88/wcmove/internal/wc"
	"github.com/roach88/wcmove/internal/workqueue"
)

// Trace event types.
const (
	EventOperation    = "operation"
	EventNotification = "notification"
	EventError        = "error"
	EventWork         = "work"
)

// TraceEvent is one entry of a scenario trace: an operation started, a
// notification it produced, the error it failed with, or a work-queue run.
type TraceEvent struct {
	Type         string          `json:"type"`
	Op           string          `json:"op,omitempty"`
	Path         string          `json:"path,omitempty"`
	Action       wc.NotifyAction `json:"action,omitempty"`
	Kind         wc.Kind         `json:"kind,omitempty"`
	ContentState wc.State        `json:"content_state,omitempty"`
	PropState    wc.State        `json:"prop_state,omitempty"`
	Code         string          `json:"code,omitempty"`
	Seq          int64           `json:"seq"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every flow expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains every operation, notification and error in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Work sums the stats of every run-queue step.
	Work workqueue.Stats `json:"work"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Notifications returns the notification events of the trace.
func (r *Result) Notifications() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Type == EventNotification {
			out = append(out, ev)
		}
	}
	return out
}
