package reconcile

import (
	"errors"
	"fmt"
)

// Error represents a precondition or consistency failure detected while
// reconciling. Any Error aborts the whole operation and rolls back its
// transaction.
//
// Errors fall into two groups:
//   - Preconditions: the caller asked for something the working copy does
//     not support (not a victim, mixed-revision source, ...)
//   - Consistency: the recorded state contradicts itself (a path already
//     carries a different tree conflict)
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the working-copy relpath the error is about.
	Path string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes reconciliation errors.
type ErrorCode string

const (
	// ErrCodeNotAVictim indicates the path has no moved-away tree conflict
	// raised by an update or switch.
	ErrCodeNotAVictim ErrorCode = "NOT_A_VICTIM"

	// ErrCodeNotMovedAway indicates the conflict's move source carries no
	// moved-to reference.
	ErrCodeNotMovedAway ErrorCode = "NOT_MOVED_AWAY"

	// ErrCodeMixedRevision indicates the move source spans several revisions.
	ErrCodeMixedRevision ErrorCode = "MIXED_REVISION"

	// ErrCodeSwitchedSource indicates a path below the move source is switched.
	ErrCodeSwitchedSource ErrorCode = "SWITCHED_SOURCE"

	// ErrCodeAlreadyConflicted indicates a path already records a different
	// tree conflict.
	ErrCodeAlreadyConflicted ErrorCode = "ALREADY_CONFLICTED"

	// ErrCodeNotMoved indicates the path is neither end of a move.
	ErrCodeNotMoved ErrorCode = "NOT_MOVED"

	// ErrCodeInvalidDepth indicates an unusable depth argument.
	ErrCodeInvalidDepth ErrorCode = "INVALID_DEPTH"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%q)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsPrecondition returns true if err reports an unmet precondition.
// Uses errors.As to handle wrapped errors.
func IsPrecondition(err error) bool {
	switch CodeOf(err) {
	case ErrCodeNotAVictim, ErrCodeNotMovedAway, ErrCodeMixedRevision,
		ErrCodeSwitchedSource, ErrCodeNotMoved, ErrCodeInvalidDepth:
		return true
	}
	return false
}

// IsConsistency returns true if err reports contradictory recorded state.
func IsConsistency(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyConflicted
}

// NewNotAVictimError creates an Error for a path without a usable conflict.
func NewNotAVictimError(path, why string) *Error {
	return &Error{
		Code:    ErrCodeNotAVictim,
		Message: why,
		Path:    path,
	}
}

// NewNotMovedAwayError creates an Error for a move source with no moved-to.
func NewNotMovedAwayError(path string) *Error {
	return &Error{
		Code:    ErrCodeNotMovedAway,
		Message: "move source is not moved away",
		Path:    path,
	}
}

// NewMixedRevisionError creates an Error for a multi-revision move source.
func NewMixedRevisionError(path string, minRev, maxRev int64) *Error {
	return &Error{
		Code:    ErrCodeMixedRevision,
		Message: fmt.Sprintf("move source is mixed-revision (r%d:r%d)", minRev, maxRev),
		Path:    path,
		Details: map[string]string{
			"min_revision": fmt.Sprintf("%d", minRev),
			"max_revision": fmt.Sprintf("%d", maxRev),
		},
	}
}

// NewSwitchedSourceError creates an Error for a switched move source.
func NewSwitchedSourceError(path string) *Error {
	return &Error{
		Code:    ErrCodeSwitchedSource,
		Message: "move source contains switched subtrees",
		Path:    path,
	}
}

// NewAlreadyConflictedError creates an Error for a conflicting tree marker.
func NewAlreadyConflictedError(path, existing, wanted string) *Error {
	return &Error{
		Code:    ErrCodeAlreadyConflicted,
		Message: "path already records a different tree conflict",
		Path:    path,
		Details: map[string]string{
			"existing": existing,
			"wanted":   wanted,
		},
	}
}

// NewNotMovedError creates an Error for a path that is not part of a move.
func NewNotMovedError(path string) *Error {
	return &Error{
		Code:    ErrCodeNotMoved,
		Message: "path is neither the source nor the destination of a move",
		Path:    path,
	}
}

// NewInvalidDepthError creates an Error for an unusable depth.
func NewInvalidDepthError(depth string) *Error {
	return &Error{
		Code:    ErrCodeInvalidDepth,
		Message: fmt.Sprintf("invalid depth %q", depth),
	}
}
