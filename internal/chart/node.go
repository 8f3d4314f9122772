package chart

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// NodeType enumerates the kinds of chart nodes (spec §3).
type NodeType int

const (
	Atomic NodeType = iota
	Compound
	Parallel
	Final
	History
)

func (t NodeType) String() string {
	switch t {
	case Atomic:
		return "atomic"
	case Compound:
		return "compound"
	case Parallel:
		return "parallel"
	case Final:
		return "final"
	case History:
		return "history"
	default:
		return "unknown"
	}
}

// HistoryKind distinguishes shallow vs. deep history pseudo-states.
type HistoryKind int

const (
	Shallow HistoryKind = iota
	Deep
)

// StateNode is a node in the immutable, once-parsed chart tree (spec §3).
// Children, On-transitions and After-transitions preserve chart-definition
// (document) order, which is load-bearing for conflict resolution and
// action ordering (spec §4.3 steps 3 and 6).
type StateNode struct {
	ID     string // local key, as given in the chart
	Abs    string // absolute dotted path from the machine root
	Type   NodeType
	Parent *StateNode

	Initial  string // default child key, for Compound
	Children []*StateNode
	byID     map[string]*StateNode

	// On maps an event descriptor (literal, "*", or "" for eventless) to
	// its ordered transition list, preserving document order.
	On *orderedmap.OrderedMap[string, []*Transition]

	OnEntry []ActionRef
	OnExit  []ActionRef

	After []DelayedTransition

	HistoryKind    HistoryKind // valid when Type == History
	HistoryDefault []string    // target selectors used when no history recorded

	FinalData any // valid when Type == Final
}

// DelayedTransition pairs a delay (in milliseconds, spec's "after" table)
// with the transition fired once that delay elapses.
type DelayedTransition struct {
	DelayMS    int64
	Transition *Transition
}

// Child looks up an immediate child by its local key.
func (n *StateNode) Child(id string) (*StateNode, bool) {
	c, ok := n.byID[id]
	return c, ok
}

// IsLeafType reports whether nodes of this type never have children
// (spec §3 invariant: "final and atomic have no children").
func (t NodeType) IsLeafType() bool {
	return t == Atomic || t == Final || t == History
}

// Transitions returns the node's own transitions for an exact event
// descriptor, in document order, or nil if none are registered.
func (n *StateNode) Transitions(descriptor string) []*Transition {
	if n.On == nil {
		return nil
	}
	ts, ok := n.On.Get(descriptor)
	if !ok {
		return nil
	}
	return ts
}

// EventDescriptors returns every event descriptor this node has a
// transition for, excluding the eventless ("") and wildcard ("*")
// descriptors (used to compute nextEvents, spec §4.3 step 9).
func (n *StateNode) EventDescriptors() []string {
	if n.On == nil {
		return nil
	}
	var out []string
	for pair := n.On.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == "" || pair.Key == "*" {
			continue
		}
		out = append(out, pair.Key)
	}
	return out
}
