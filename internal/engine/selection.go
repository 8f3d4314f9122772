package engine

import (
	"sort"

	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/resolver"
)

// selectForLeaf walks from leaf up to the chart root looking for the first
// ancestor that declares any transition for evt's descriptor (literal, then
// "*" wildcard), per spec §4.3 step 2. Once such a node is found, its own
// transitions are tried in document order and the first one whose guard
// passes is selected; if the node has transitions for the event but none of
// their guards pass, selection stops there for this leaf (it does not keep
// climbing past a node that matched).
func selectForLeaf(leaf *chart.StateNode, evt chart.SCXMLEvent, ctx chart.Context, guards GuardEvaluator) (*chart.Transition, error) {
	for n := leaf; n != nil; n = n.Parent {
		cands := n.Transitions(evt.Name)
		if len(cands) == 0 && evt.Name != "" {
			cands = n.Transitions("*")
		}
		if len(cands) == 0 {
			continue
		}
		for _, t := range cands {
			ok, err := guards.EvalGuard(t.Cond, ctx, evt.Data)
			if err != nil {
				return nil, err
			}
			if ok {
				return t, nil
			}
		}
		return nil, nil
	}
	return nil, nil
}

// selectTransitions runs selectForLeaf over every active leaf, in
// configuration order, discarding duplicates (a transition selected by more
// than one leaf of a parallel region is kept once) and pure no-ops.
func selectTransitions(leaves []*chart.StateNode, evt chart.SCXMLEvent, ctx chart.Context, guards GuardEvaluator) ([]*chart.Transition, error) {
	seen := map[*chart.Transition]bool{}
	var out []*chart.Transition
	for _, leaf := range leaves {
		t, err := selectForLeaf(leaf, evt, ctx, guards)
		if err != nil {
			return nil, err
		}
		if t == nil || t.IsNoop() || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// resolveConflicts drops transitions whose exit domains overlap with a
// higher-priority transition's, per spec §4.3 step 3: the transition with
// the deeper source wins; ties break by document order. Survivors are
// returned in document order for deterministic action execution.
func resolveConflicts(selected []*chart.Transition) []*chart.Transition {
	type scored struct {
		t     *chart.Transition
		depth int
	}
	items := make([]scored, 0, len(selected))
	for _, t := range selected {
		items = append(items, scored{t: t, depth: len(resolver.Ancestors(t.Source))})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].depth != items[j].depth {
			return items[i].depth > items[j].depth
		}
		return items[i].t.DocOrder < items[j].t.DocOrder
	})

	claimed := map[*chart.StateNode]bool{}
	var out []*chart.Transition
	for _, it := range items {
		ancestors := resolver.Ancestors(it.t.Source)
		conflict := false
		for _, a := range ancestors {
			if claimed[a] {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		for _, a := range ancestors {
			claimed[a] = true
		}
		out = append(out, it.t)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DocOrder < out[j].DocOrder })
	return out
}

// isInternalTransition reports whether t is internal once its targets are
// resolved (spec Transition.Internal doc comment): explicit internal flag
// if set, otherwise true iff there are no targets or every target is a
// proper descendant of Source.
func isInternalTransition(t *chart.Transition, targets []*chart.StateNode) bool {
	if t.InternalExplicit {
		return t.Internal
	}
	if len(targets) == 0 {
		return true
	}
	for _, target := range targets {
		if !resolver.IsDescendant(target, t.Source) {
			return false
		}
	}
	return true
}

// transitionDomain returns the scope a transition's exit/entry sets are
// computed against: Source itself for internal transitions, the LCCA of
// Source and every target otherwise (spec §4.1/§4.3 step 4).
func transitionDomain(t *chart.Transition, targets []*chart.StateNode, internal bool) *chart.StateNode {
	if internal {
		return t.Source
	}
	nodes := make([]*chart.StateNode, 0, len(targets)+1)
	nodes = append(nodes, t.Source)
	nodes = append(nodes, targets...)
	return resolver.LCCA(nodes)
}
