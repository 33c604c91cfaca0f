package reconcile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := NewNotMovedError("A/B")
	assert.Equal(t, `NOT_MOVED: path is neither the source nor the destination of a move (path="A/B")`, err.Error())

	err = NewInvalidDepthError("deep")
	assert.Equal(t, `INVALID_DEPTH: invalid depth "deep"`, err.Error())
}

func TestCodeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("reconcile %q: %w", "X", NewMixedRevisionError("X", 3, 5))
	assert.Equal(t, ErrCodeMixedRevision, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestErrorClasses(t *testing.T) {
	tests := []struct {
		err         error
		precondition bool
		consistency bool
	}{
		{NewNotAVictimError("X", "no conflict"), true, false},
		{NewNotMovedAwayError("X"), true, false},
		{NewMixedRevisionError("X", 1, 2), true, false},
		{NewSwitchedSourceError("X"), true, false},
		{NewNotMovedError("X"), true, false},
		{NewInvalidDepthError("x"), true, false},
		{NewAlreadyConflictedError("X", "deleted/edit", "edited/delete"), false, true},
		{errors.New("disk full"), false, false},
	}
	for _, tt := range tests {
		t.Run(string(CodeOf(tt.err)), func(t *testing.T) {
			assert.Equal(t, tt.precondition, IsPrecondition(tt.err))
			assert.Equal(t, tt.consistency, IsConsistency(tt.err))
		})
	}
}

func TestNewAlreadyConflictedError_Details(t *testing.T) {
	err := NewAlreadyConflictedError("Y/sub", "edited/edit", "deleted/edit")
	assert.Equal(t, "edited/edit", err.Details["existing"])
	assert.Equal(t, "deleted/edit", err.Details["wanted"])
}
