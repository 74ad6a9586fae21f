package service

import (
	"errors"
	"fmt"
)

// Sentinel domain errors surfaced to the handler layer.
var (
	ErrTryoutNotFound   = errors.New("tryout not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrSectionNotFound  = errors.New("section not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptRevoked   = errors.New("attempt has been revoked")
	ErrNotEligible      = errors.New("not eligible for this tryout")
)

// StateReason identifies which state-machine precondition failed. These are
// expected user-facing conditions, part of normal control flow — handlers
// map them to 409 responses, they are never logged as server errors.
type StateReason string

const (
	ReasonTryoutNotAvailable StateReason = "TRYOUT_NOT_AVAILABLE"
	ReasonNoSections         StateReason = "TRYOUT_EMPTY"
	ReasonAttemptFinished    StateReason = "ATTEMPT_FINISHED"
	ReasonPreviousUnfinished StateReason = "PREVIOUS_SECTION_UNFINISHED"
	ReasonNoActiveSection    StateReason = "NO_ACTIVE_SECTION"
	ReasonDeadlinePassed     StateReason = "DEADLINE_PASSED"
	ReasonSectionNotActive   StateReason = "SECTION_NOT_ACTIVE"
	ReasonSectionNotFinished StateReason = "SECTION_NOT_FINISHED"
)

// StateError is an INVALID_STATE result from the attempt state machine.
type StateError struct {
	Reason StateReason
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state: %s", e.Reason)
}

// NewStateError builds a StateError for the given reason.
func NewStateError(reason StateReason) error {
	return &StateError{Reason: reason}
}

// AsStateError unwraps err into a StateError if it is one.
func AsStateError(err error) (*StateError, bool) {
	var se *StateError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
