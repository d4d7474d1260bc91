package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// table indexes transitions as [fromState][event][]Transition. It is only
// written while options are applied in New and read-only afterwards, so
// machines derived with At share it without locking.
type table map[string]map[string][]Transition

func (t table) add(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	fromName := from.Name()
	if _, ok := t[fromName]; !ok {
		t[fromName] = make(map[string][]Transition)
	}

	// Multiple transitions allowed for same from/event to support guard-based branching
	t[fromName][event.Name()] = append(t[fromName][event.Name()], Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

// resolve returns the first transition whose guards all pass.
func (t table) resolve(ctx context.Context, current State, event Event, data any) (*Transition, error) {
	if event == nil {
		return nil, ErrInvalidEvent
	}

	candidates := t[current.Name()][event.Name()]
	if len(candidates) == 0 {
		return nil, &TransitionError{State: current.Name(), Event: event.Name(), Err: ErrNoTransition}
	}

	for i, tr := range candidates {
		if guardsPass(ctx, tr.Guards, current, event, data) {
			return &candidates[i], nil
		}
	}
	return nil, &TransitionError{State: current.Name(), Event: event.Name(), Err: ErrRejected}
}

func guardsPass(ctx context.Context, guards []Guard, current State, event Event, data any) bool {
	for _, guard := range guards {
		if guard != nil && !guard(ctx, current, event, data) {
			return false
		}
	}
	return true
}

// SimpleStateMachine is an in-memory machine safe for concurrent use.
type SimpleStateMachine struct {
	initialState State
	currentState State
	transitions  table
	mu           sync.RWMutex
}

func newSimpleStateMachine(initialState State, transitions table) *SimpleStateMachine {
	return &SimpleStateMachine{
		initialState: initialState,
		currentState: initialState,
		transitions:  transitions,
	}
}

// At returns a new machine positioned at state that shares this machine's
// transitions. Use it to evaluate events against persisted entities.
func (sm *SimpleStateMachine) At(state State) *SimpleStateMachine {
	return newSimpleStateMachine(state, sm.transitions)
}

func (sm *SimpleStateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

func (sm *SimpleStateMachine) Fire(ctx context.Context, event Event, data any) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	tr, err := sm.transitions.resolve(ctx, sm.currentState, event, data)
	if err != nil {
		return err
	}

	// Execute actions before state change; any failure aborts transition
	for _, action := range tr.Actions {
		if action != nil {
			if err := action(ctx, sm.currentState, tr.To, event, data); err != nil {
				return fmt.Errorf("action failed: %w", err)
			}
		}
	}

	sm.currentState = tr.To
	return nil
}

func (sm *SimpleStateMachine) CanFire(ctx context.Context, event Event, data any) bool {
	_, err := sm.Target(ctx, event, data)
	return err == nil
}

// Target returns the state the event would lead to without firing it.
// Actions are not executed.
func (sm *SimpleStateMachine) Target(ctx context.Context, event Event, data any) (State, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	tr, err := sm.transitions.resolve(ctx, sm.currentState, event, data)
	if err != nil {
		return nil, err
	}
	return tr.To, nil
}

func (sm *SimpleStateMachine) Reset() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.currentState = sm.initialState
	return nil
}
