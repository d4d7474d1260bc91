// Package statemachine implements a small finite state machine with guards and actions.
//
// Transitions are declared once through options passed to New and are
// read-only afterwards. At derives a machine positioned at any state while
// sharing the declared transitions, which makes the package usable as a
// validator for entities whose state is persisted elsewhere:
//
//	sm := statemachine.MustNew(Draft,
//	    statemachine.WithTransition(Draft, InReview, Submit),
//	)
//	to, err := sm.At(loadedState).Target(ctx, Submit, entity)
//
// Target resolves the destination without executing actions; Fire executes
// actions and moves the machine. Errors distinguish an undefined transition
// (IsNoTransitionAvailableError) from one rejected by guards
// (IsTransitionRejectedError).
package statemachine
