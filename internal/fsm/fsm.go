// Package fsm implements the generic typed finite-state machine described
// in spec.md §4.C: a mapping {(state, action) -> state}. Apply transitions
// or fails with domain.ErrInvalidTransition.
//
// No third-party FSM library was found in any example repo (all five
// go.mod files and their source trees were inspected) — this is the one
// part of the engine built on the standard library (plus generics) by
// necessity, not preference; see DESIGN.md.
//
// FSMs are single-threaded; concurrent Apply calls on the same machine are
// a programming error and are not guarded here (the Order/Strategy/Engine
// state owners are each single-owner per spec.md §5).
package fsm

import (
	"fmt"

	"jax-eventengine/internal/domain"
)

// transitionKey is the (state, action) pair keying the transition table.
type transitionKey[S comparable, A comparable] struct {
	state  S
	action A
}

// Table is a mapping {(state, action) -> state}, shared read-only across
// every Machine instance built from it.
type Table[S comparable, A comparable] struct {
	transitions map[transitionKey[S, A]]S
}

// NewTable builds a Table from an explicit transition list, each entry
// (from, action, to).
func NewTable[S comparable, A comparable](entries []Transition[S, A]) *Table[S, A] {
	t := &Table[S, A]{transitions: make(map[transitionKey[S, A]]S, len(entries))}
	for _, e := range entries {
		t.transitions[transitionKey[S, A]{state: e.From, action: e.Action}] = e.To
	}
	return t
}

// Transition describes one (from, action) -> to entry in a Table.
type Transition[S comparable, A comparable] struct {
	From   S
	Action A
	To     S
}

// Machine is one instance of a typed FSM, starting at an initial state and
// evolving via Apply against a shared Table.
type Machine[S comparable, A comparable] struct {
	table *Table[S, A]
	state S
}

// NewMachine creates a Machine at the given initial state, governed by
// table.
func NewMachine[S comparable, A comparable](table *Table[S, A], initial S) *Machine[S, A] {
	return &Machine[S, A]{table: table, state: initial}
}

// State returns the machine's current state.
func (m *Machine[S, A]) State() S { return m.state }

// Apply transitions the machine according to action, or returns
// domain.ErrInvalidTransition if (state, action) has no entry in the
// table. On success the machine's state is updated and the new state is
// returned.
func (m *Machine[S, A]) Apply(action A) (S, error) {
	next, ok := m.table.transitions[transitionKey[S, A]{state: m.state, action: action}]
	if !ok {
		var zero S
		return zero, fmt.Errorf("%w: no transition from %v on %v", domain.ErrInvalidTransition, m.state, action)
	}
	m.state = next
	return next, nil
}

// CanApply reports whether action is legal from the machine's current
// state, without mutating it.
func (m *Machine[S, A]) CanApply(action A) bool {
	_, ok := m.table.transitions[transitionKey[S, A]{state: m.state, action: action}]
	return ok
}
