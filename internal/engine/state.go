package engine

import (
	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/statevalue"
)

// State is the immutable snapshot produced by Transition and InitialState
// (spec §3/§6). A State never mutates; each step produces a new one.
type State struct {
	Value   statevalue.Value
	Context chart.Context

	Event      chart.Event
	SCXMLEvent chart.SCXMLEvent

	// Actions is this step's resolved, ordered action list (exit ->
	// transition -> entry, spec §4.3 step 6), with Assign actions already
	// folded into Context and excluded. The interpreter owns executing it
	// through an action.Evaluator; State never runs side effects itself.
	Actions []chart.ActionRef

	Activities map[string]bool
	Children   map[string]bool

	Changed bool

	// History maps a history pseudo-state's absolute path to what it last
	// recorded: for shallow history, the single StateNode that was the
	// active immediate child; for deep history, the full set of active
	// atomic/final descendants (spec §4.3 step 5).
	History map[string][]*chart.StateNode

	NextEvents []string

	Done bool

	leaves []*chart.StateNode
}

// Matches reports whether path is present in the configuration (spec §4.2).
func (s State) Matches(path string) bool { return s.Value.Matches(path) }

// Leaves returns the chart nodes backing s's active leaves, computing them
// from Value against c if s was not produced by InitialState/Transition
// (e.g. after round-tripping through Create).
func (s State) Leaves(c *chart.Chart) []*chart.StateNode {
	if s.leaves != nil {
		return s.leaves
	}
	leaves, err := leavesFromValue(c, s.Value)
	if err != nil {
		return nil
	}
	return leaves
}

// Create rebuilds a usable State from a previously serialized value/context
// pair, re-deriving the derived fields (nextEvents, done) from the chart
// (spec §6 "State.create"). Actions, activities and children are empty:
// a created State represents configuration, not an in-flight step.
func Create(c *chart.Chart, value statevalue.Value, context chart.Context) (State, error) {
	leaves, err := leavesFromValue(c, value)
	if err != nil {
		return State{}, err
	}
	active := activeSet(leaves)
	return State{
		Value:      value,
		Context:    context,
		Activities: map[string]bool{},
		Children:   map[string]bool{},
		History:    map[string][]*chart.StateNode{},
		NextEvents: nextEvents(leaves),
		Done:       isDone(c.Root, active),
		leaves:     leaves,
	}, nil
}

// Inert builds a State that is valid for Matches/ToStrings/NextEvents
// purposes but carries no chart-derived bookkeeping, for tests and for
// actors that report a StateValue without a live interpreter (spec §6
// "State.inert").
func Inert(value statevalue.Value, context chart.Context) State {
	return State{
		Value:      value,
		Context:    context,
		Activities: map[string]bool{},
		Children:   map[string]bool{},
		History:    map[string][]*chart.StateNode{},
	}
}
