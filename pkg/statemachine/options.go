package statemachine

import (
	"fmt"
)

// Option configures a state machine during construction.
type Option func(table) error

// TransitionOption configures a single transition with guards and actions.
type TransitionOption func(*transitionConfig)

// TransitionDef defines a transition between states.
type TransitionDef struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

type transitionConfig struct {
	guards  []Guard
	actions []Action
}

// New creates a new state machine with the given initial state and options.
func New(initialState State, opts ...Option) (*SimpleStateMachine, error) {
	if initialState == nil {
		return nil, fmt.Errorf("initial state cannot be nil")
	}

	transitions := make(table)
	for _, opt := range opts {
		if err := opt(transitions); err != nil {
			return nil, err
		}
	}

	return newSimpleStateMachine(initialState, transitions), nil
}

// MustNew creates a new state machine with the given initial state and options.
// Panics if any option fails to apply.
func MustNew(initialState State, opts ...Option) *SimpleStateMachine {
	sm, err := New(initialState, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return sm
}

// WithTransition adds a single transition to the state machine.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(t table) error {
		cfg := &transitionConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		return t.add(from, to, event, cfg.guards, cfg.actions)
	}
}

// WithTransitions adds multiple transitions to the state machine at once.
func WithTransitions(transitions []TransitionDef) Option {
	return func(t table) error {
		for i, def := range transitions {
			if err := t.add(def.From, def.To, def.Event, def.Guards, def.Actions); err != nil {
				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w",
					i, nameOf(def.From), nameOf(def.To), nameOf(def.Event), err)
			}
		}
		return nil
	}
}

func nameOf(n interface{ Name() string }) string {
	if n == nil {
		return "<nil>"
	}
	return n.Name()
}

// WithGuard adds a single guard to a transition.
func WithGuard(guard Guard) TransitionOption {
	return func(cfg *transitionConfig) {
		if guard != nil {
			cfg.guards = append(cfg.guards, guard)
		}
	}
}

// WithAction adds a single action to a transition.
func WithAction(action Action) TransitionOption {
	return func(cfg *transitionConfig) {
		if action != nil {
			cfg.actions = append(cfg.actions, action)
		}
	}
}
