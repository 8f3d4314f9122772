package resolver

import (
	"github.com/pkg/errors"

	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/statevalue"
)

// HistoryLookup returns a previously recorded leaf set for a history node,
// if one exists (spec §4.6/"Design Notes: History").
type HistoryLookup func(historyNode *chart.StateNode) ([]*chart.StateNode, bool)

// ExpandToLeaves resolves n down to the set of atomic/final StateNodes it
// represents by default: itself if already a leaf, its initial descendant
// chain if compound, every region's expansion if parallel, and the
// recorded-or-default set if a history pseudo-state (spec §4.3 step 5).
func ExpandToLeaves(c *chart.Chart, n *chart.StateNode, lookup HistoryLookup) ([]*chart.StateNode, error) {
	switch n.Type {
	case chart.Atomic, chart.Final:
		return []*chart.StateNode{n}, nil
	case chart.History:
		if lookup != nil {
			if leaves, ok := lookup(n); ok && len(leaves) > 0 {
				return leaves, nil
			}
		}
		var leaves []*chart.StateNode
		for _, sel := range n.HistoryDefault {
			target, err := GetRelative(c, n, sel)
			if err != nil {
				return nil, err
			}
			sub, err := ExpandToLeaves(c, target, lookup)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, sub...)
		}
		if len(leaves) == 0 && n.Parent != nil {
			return ExpandToLeaves(c, n.Parent, lookup)
		}
		return leaves, nil
	case chart.Compound:
		child, ok := n.Child(n.Initial)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownState, "initial %q of %q", n.Initial, n.Abs)
		}
		return ExpandToLeaves(c, child, lookup)
	case chart.Parallel:
		var leaves []*chart.StateNode
		for _, region := range n.Children {
			sub, err := ExpandToLeaves(c, region, lookup)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, sub...)
		}
		return leaves, nil
	default:
		return nil, errors.Errorf("resolver: node %q has unknown type", n.Abs)
	}
}

// ValueFromLeaves builds the StateValue representation of an active
// configuration described by its atomic/final leaves (spec §4.2).
func ValueFromLeaves(root *chart.StateNode, leaves []*chart.StateNode) statevalue.Value {
	active := make(map[*chart.StateNode]bool, len(leaves)*2)
	for _, leaf := range leaves {
		for cur := leaf; cur != nil; cur = cur.Parent {
			active[cur] = true
		}
	}
	return buildValue(root, active)
}

func buildValue(n *chart.StateNode, active map[*chart.StateNode]bool) statevalue.Value {
	if n.Type == chart.Atomic || n.Type == chart.Final {
		return statevalue.Atomic(n.ID)
	}
	if n.Type == chart.Compound {
		for _, c := range n.Children {
			if !active[c] {
				continue
			}
			if c.Type == chart.Atomic || c.Type == chart.Final {
				return statevalue.Atomic(c.ID)
			}
			return statevalue.Compound(map[string]statevalue.Value{c.ID: buildValue(c, active)})
		}
		return statevalue.Value{}
	}
	// Parallel: every region is simultaneously active.
	m := make(map[string]statevalue.Value, len(n.Children))
	for _, r := range n.Children {
		if r.Type == chart.Atomic || r.Type == chart.Final {
			m[r.ID] = statevalue.Atomic(r.ID)
			continue
		}
		m[r.ID] = buildValue(r, active)
	}
	return statevalue.Compound(m)
}

// LeavesFromValue is the inverse of ValueFromLeaves: it resolves a
// StateValue back into the chart's atomic/final StateNodes it names,
// validating the value's shape against the chart (spec §8 property 8:
// State.create(...) must be usable as the next transition's `from`).
func LeavesFromValue(root *chart.StateNode, v statevalue.Value) ([]*chart.StateNode, error) {
	var leaves []*chart.StateNode
	if err := collectLeaves(root, v, &leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}

func collectLeaves(n *chart.StateNode, v statevalue.Value, out *[]*chart.StateNode) error {
	if n.Type == chart.Atomic || n.Type == chart.Final {
		*out = append(*out, n)
		return nil
	}
	if n.Type == chart.Compound {
		if v.IsLeaf() {
			child, ok := n.Child(v.Leaf)
			if !ok {
				return errors.Wrapf(ErrUnknownState, "value %q under %q", v.Leaf, n.Abs)
			}
			return collectLeaves(child, statevalue.Value{}, out)
		}
		for key, sub := range v.Regions {
			child, ok := n.Child(key)
			if !ok {
				return errors.Wrapf(ErrUnknownState, "value %q under %q", key, n.Abs)
			}
			return collectLeaves(child, sub, out)
		}
		return errors.Wrapf(ErrUnknownState, "empty value under compound %q", n.Abs)
	}
	// Parallel
	if v.IsLeaf() {
		return errors.Wrapf(ErrUnknownState, "leaf value %q under parallel %q", v.Leaf, n.Abs)
	}
	for _, r := range n.Children {
		sub, ok := v.Regions[r.ID]
		if !ok {
			return errors.Wrapf(ErrUnknownState, "missing region %q under parallel %q", r.ID, n.Abs)
		}
		if r.Type == chart.Atomic || r.Type == chart.Final {
			*out = append(*out, r)
			continue
		}
		if err := collectLeaves(r, sub, out); err != nil {
			return err
		}
	}
	return nil
}
