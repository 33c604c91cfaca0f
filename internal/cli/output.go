package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/roach88/wcmove/internal/reconcile"
	"github.com/roach88/wcmove/internal/wc"
	"github.com/roach88/wcmove/internal/workqueue"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation refused (precondition or consistency error) or scenarios failed
	ExitCommandError = 2 // Command error (no working copy, locked, bad arguments, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // reconcile error code or E_COMMAND
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// ErrCodeCommand is reported for errors that carry no reconcile code.
const ErrCodeCommand = "E_COMMAND"

// Success outputs a successful result in the configured format. In text
// mode data is printed with its String method or %v.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns it as an ExitError. Reconcile errors exit
// with ExitFailure and keep their code; anything else is a command error.
// Text output is left to the caller, which prints the returned error.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := ErrCodeCommand, ExitCommandError
	var details any
	var re *reconcile.Error
	var exitErr *ExitError
	switch {
	case errors.As(err, &re):
		code, exit = string(re.Code), ExitFailure
		if len(re.Details) > 0 {
			details = re.Details
		}
	case errors.As(err, &exitErr):
		exit = exitErr.Code
	}

	if f.Format == "json" {
		if ferr := f.Error(code, err.Error(), details); ferr != nil {
			return ferr
		}
	}
	if ee, ok := err.(*ExitError); ok {
		return ee
	}
	return WrapExitError(exit, message, err)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// OperationOutput is the result of a mutating command.
type OperationOutput struct {
	Op            string            `json:"op"`
	Path          string            `json:"path"`
	RunToken      string            `json:"run_token"`
	Notifications []wc.Notification `json:"notifications"`
	Work          *WorkOutput       `json:"work,omitempty"`
}

// WorkOutput summarises a work-queue run.
type WorkOutput struct {
	Items     int    `json:"items"`
	Installed int    `json:"installed"`
	Removed   int    `json:"removed"`
	Ensured   int    `json:"ensured"`
	Bytes     int64  `json:"bytes"`
	Size      string `json:"size"`
}

func newWorkOutput(s workqueue.Stats) *WorkOutput {
	return &WorkOutput{
		Items:     s.Items,
		Installed: s.Installed,
		Removed:   s.Removed,
		Ensured:   s.Ensured,
		Bytes:     s.Bytes,
		Size:      humanize.Bytes(uint64(s.Bytes)),
	}
}

func (w *WorkOutput) String() string {
	return fmt.Sprintf("%d work items: %d installed (%s), %d removed, %d directories",
		w.Items, w.Installed, w.Size, w.Removed, w.Ensured)
}

// String renders one line per notification, then the work summary.
func (o OperationOutput) String() string {
	var b strings.Builder
	for _, n := range o.Notifications {
		b.WriteString(formatNotification(n))
		b.WriteByte('\n')
	}
	if len(o.Notifications) == 0 {
		fmt.Fprintf(&b, "%s %q: nothing to do\n", o.Op, o.Path)
	}
	if o.Work != nil {
		b.WriteString(o.Work.String())
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// formatNotification renders a notification as "<action> <path>", with
// the content and property states when they apply.
func formatNotification(n wc.Notification) string {
	line := fmt.Sprintf("%-14s %s", n.Action, n.Path)
	var states []string
	if n.ContentState != wc.StateInapplicable && n.ContentState != "" {
		states = append(states, "content "+string(n.ContentState))
	}
	if n.PropState != wc.StateInapplicable && n.PropState != "" {
		states = append(states, "props "+string(n.PropState))
	}
	if len(states) > 0 {
		line += " (" + strings.Join(states, ", ") + ")"
	}
	return line
}
