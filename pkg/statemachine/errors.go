package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("statemachine: transition needs from, to and event")
	ErrInvalidEvent      = errors.New("statemachine: nil event")
	ErrNoTransition      = errors.New("no transition defined")
	ErrRejected          = errors.New("rejected by guards")
)

// TransitionError reports an event that cannot be applied in State. Err is
// ErrNoTransition or ErrRejected.
type TransitionError struct {
	State string
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q in state %q: %v", e.Event, e.State, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

func IsNoTransitionAvailableError(err error) bool {
	return errors.Is(err, ErrNoTransition)
}

func IsTransitionRejectedError(err error) bool {
	return errors.Is(err, ErrRejected)
}
