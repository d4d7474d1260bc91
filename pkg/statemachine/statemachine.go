package statemachine

import "context"

// State and Event are identified by name only.
type State interface{ Name() string }

type Event interface{ Name() string }

// Guard decides at resolution time whether a transition applies to data.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Action runs on Fire before the state changes; an error aborts the change.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Transition is one declared edge. Several edges may share From and Event;
// the first whose guards pass wins.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

type StringState string

func (s StringState) Name() string { return string(s) }

type StringEvent string

func (e StringEvent) Name() string { return string(e) }
