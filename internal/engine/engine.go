// Package engine implements the pure transition algorithm: given a chart, a
// previous State and an incoming event, it computes the next State. It
// performs no I/O, starts no timers and holds no goroutines — every
// dependency (the chart, the guard evaluator) is passed in explicitly, so a
// call with the same arguments always returns the same result (spec §4.3).
package engine

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/resolver"
	"github.com/quiescent/statechart/internal/statevalue"
)

// ErrNoSelection is returned by InitialState if the chart's initial
// configuration could not be expanded (malformed initial/history chains
// that passed chart.New's acyclicity check but still dead-end).
var ErrNoSelection = errors.New("engine: could not expand initial configuration")

// ErrNonDeterministicEntry is returned by Transition when two transitions
// selected for the same microstep disagree on which child to enter for the
// same compound region (spec §4.3 "Error conditions", §7).
var ErrNonDeterministicEntry = errors.New("engine: ambiguous entry into region")

// InitialState computes the machine's starting State: the chart's default
// configuration, entered top-down with xstate.init as the triggering event
// (spec §4.3/§6).
func InitialState(c *chart.Chart) (State, error) {
	leaves, err := resolver.ExpandToLeaves(c, c.Root, nil)
	if err != nil {
		return State{}, errors.Wrap(err, "engine: expand initial configuration")
	}
	if len(leaves) == 0 {
		return State{}, ErrNoSelection
	}

	active := activeSet(leaves)
	initEvt := chart.InitEvent()
	ctx := c.Context
	var actions []chart.ActionRef
	orderedWalk(c.Root, active, true, func(n *chart.StateNode) {
		for _, ref := range n.OnEntry {
			if ba, ok := ref.(chart.BuiltinAction); ok && ba.Kind == chart.KindAssign {
				if ba.AssignFn != nil {
					ctx = ctx.WithAll(ba.AssignFn(ctx, initEvt.Data))
				}
				continue
			}
			actions = append(actions, ref)
		}
	})

	return State{
		Value:      resolver.ValueFromLeaves(c.Root, leaves),
		Context:    ctx,
		Event:      initEvt.Data,
		SCXMLEvent: initEvt,
		Actions:    actions,
		Activities: map[string]bool{},
		Children:   map[string]bool{},
		Changed:    true,
		History:    map[string][]*chart.StateNode{},
		NextEvents: nextEvents(leaves),
		Done:       isDone(c.Root, active),
		leaves:     leaves,
	}, nil
}

// Transition computes the next State of c given prev and evt (spec §4.3
// steps 1-9). guards may be nil, in which case only inline func guards are
// supported (DefaultGuardEvaluator).
func Transition(c *chart.Chart, prev State, evt chart.SCXMLEvent, guards GuardEvaluator) (State, error) {
	if guards == nil {
		guards = DefaultGuardEvaluator()
	}

	leaves := prev.leaves
	if leaves == nil {
		var err error
		leaves, err = resolver.LeavesFromValue(c.Root, prev.Value)
		if err != nil {
			return State{}, err
		}
	}

	selected, err := selectTransitions(leaves, evt, prev.Context, guards)
	if err != nil {
		return State{}, err
	}
	selected = resolveConflicts(selected)

	if len(selected) == 0 {
		next := prev
		next.Event = evt.Data
		next.SCXMLEvent = evt
		next.Actions = nil
		next.Changed = false
		next.leaves = leaves
		return next, nil
	}

	active := activeSet(leaves)
	resolvedTargets := make(map[*chart.Transition][]*chart.StateNode, len(selected))
	exitSet := map[*chart.StateNode]bool{}
	entrySet := map[*chart.StateNode]bool{}
	enteringChild := map[*chart.StateNode]*chart.StateNode{}

	for _, t := range selected {
		targets, err := resolver.ResolveTargets(c, t)
		if err != nil {
			return State{}, err
		}
		resolvedTargets[t] = targets
		if t.IsTargetless() {
			continue
		}
		internal := isInternalTransition(t, targets)
		if internal && len(targets) == 1 && targets[0] == t.Source {
			// A self-targeted internal transition ("target: '.'", internal:
			// true) never escapes its own subtree: no exit, no entry (spec
			// §4.3 step 4).
			continue
		}
		domain := transitionDomain(t, targets, internal)
		if domain == nil {
			return State{}, errors.Errorf("engine: no common ancestor for transition from %q", t.Source.Abs)
		}
		for s := range active {
			if resolver.IsDescendant(s, domain) {
				exitSet[s] = true
			}
		}
		for _, target := range targets {
			for cur := target; cur != nil && cur != domain; cur = cur.Parent {
				entrySet[cur] = true
				if cur.Parent != nil && cur.Parent.Type == chart.Compound {
					if existing, ok := enteringChild[cur.Parent]; ok && existing != cur {
						return State{}, errors.Wrapf(ErrNonDeterministicEntry, "region %q", cur.Parent.Abs)
					}
					enteringChild[cur.Parent] = cur
				}
			}
		}
	}

	recorded := recordHistory(exitSet, active, leaves)

	lookup := historyLookup(c, prev.History)
	if err := defaultExpand(c, entrySet, lookup); err != nil {
		return State{}, err
	}

	newActive := map[*chart.StateNode]bool{}
	for n := range active {
		if !exitSet[n] {
			newActive[n] = true
		}
	}
	for n := range entrySet {
		newActive[n] = true
	}

	var exitOrder []*chart.StateNode
	orderedWalk(c.Root, active, true, func(n *chart.StateNode) {
		if exitSet[n] {
			exitOrder = append(exitOrder, n)
		}
	})
	var entryOrder []*chart.StateNode
	orderedWalk(c.Root, newActive, true, func(n *chart.StateNode) {
		if entrySet[n] {
			entryOrder = append(entryOrder, n)
		}
	})

	runningCtx := prev.Context
	var finalActions []chart.ActionRef
	fold := func(ref chart.ActionRef) {
		if ba, ok := ref.(chart.BuiltinAction); ok && ba.Kind == chart.KindAssign {
			if ba.AssignFn != nil {
				runningCtx = runningCtx.WithAll(ba.AssignFn(runningCtx, evt.Data))
			}
			return
		}
		finalActions = append(finalActions, ref)
	}
	for i := len(exitOrder) - 1; i >= 0; i-- {
		for _, ref := range exitOrder[i].OnExit {
			fold(ref)
		}
	}
	for _, t := range selected {
		for _, ref := range t.Actions {
			fold(ref)
		}
	}
	for _, n := range entryOrder {
		for _, ref := range n.OnEntry {
			fold(ref)
		}
	}

	var newLeaves []*chart.StateNode
	orderedWalk(c.Root, newActive, true, func(n *chart.StateNode) {
		if n.Type == chart.Atomic || n.Type == chart.Final {
			newLeaves = append(newLeaves, n)
		}
	})

	newHistory := make(map[string][]*chart.StateNode, len(prev.History)+len(recorded))
	for k, v := range prev.History {
		newHistory[k] = v
	}
	for k, v := range recorded {
		newHistory[k] = v
	}

	return State{
		Value:      resolver.ValueFromLeaves(c.Root, newLeaves),
		Context:    runningCtx,
		Event:      evt.Data,
		SCXMLEvent: evt,
		Actions:    finalActions,
		Activities: carryActivities(prev.Activities, finalActions),
		Children:   prev.Children,
		Changed:    true,
		History:    newHistory,
		NextEvents: nextEvents(newLeaves),
		Done:       isDone(c.Root, newActive),
		leaves:     newLeaves,
	}, nil
}

func carryActivities(prev map[string]bool, actions []chart.ActionRef) map[string]bool {
	out := make(map[string]bool, len(prev))
	for k, v := range prev {
		out[k] = v
	}
	for _, ref := range actions {
		ba, ok := ref.(chart.BuiltinAction)
		if !ok {
			continue
		}
		switch ba.Kind {
		case chart.KindStart:
			out[ba.Activity] = true
		case chart.KindStop:
			delete(out, ba.Activity)
		}
	}
	return out
}

// activeSet expands leaves into the full set of active nodes: every leaf
// and all of its ancestors up to the chart root.
func activeSet(leaves []*chart.StateNode) map[*chart.StateNode]bool {
	active := make(map[*chart.StateNode]bool, len(leaves)*2)
	for _, leaf := range leaves {
		for cur := leaf; cur != nil; cur = cur.Parent {
			active[cur] = true
		}
	}
	return active
}

// orderedWalk visits nodes of the subtree rooted at root that belong to
// active, in document pre-order (parent before child, children in their
// chart-declared order). includeRoot controls whether root itself (when
// active) is visited.
func orderedWalk(root *chart.StateNode, active map[*chart.StateNode]bool, includeRoot bool, visit func(*chart.StateNode)) {
	var walk func(n *chart.StateNode, isRoot bool)
	walk = func(n *chart.StateNode, isRoot bool) {
		if !isRoot || includeRoot {
			visit(n)
		}
		for _, c := range n.Children {
			if active[c] {
				walk(c, false)
			}
		}
	}
	walk(root, true)
}

// defaultExpand grows entrySet to a fixpoint: any compound node in the set
// with no active-or-entering child gets its initial chain added; any
// parallel node gets every region's expansion added (spec §4.3 step 5).
func defaultExpand(c *chart.Chart, entrySet map[*chart.StateNode]bool, lookup resolver.HistoryLookup) error {
	for {
		changed := false
		for n := range snapshot(entrySet) {
			switch n.Type {
			case chart.Compound:
				hasChild := false
				for _, child := range n.Children {
					if entrySet[child] {
						hasChild = true
						break
					}
				}
				if hasChild {
					continue
				}
				leaves, err := resolver.ExpandToLeaves(c, n, lookup)
				if err != nil {
					return err
				}
				if markChain(entrySet, n, leaves) {
					changed = true
				}
			case chart.Parallel:
				for _, region := range n.Children {
					if entrySet[region] {
						continue
					}
					leaves, err := resolver.ExpandToLeaves(c, region, lookup)
					if err != nil {
						return err
					}
					if markChain(entrySet, n, leaves) {
						changed = true
					}
				}
			case chart.History:
				// A transition that targets a history pseudo-state directly
				// (rather than reaching it only through its parent's default
				// expansion) needs its recorded-or-default leaves marked
				// explicitly: the pseudo-state itself is never a leaf.
				leaves, err := resolver.ExpandToLeaves(c, n, lookup)
				if err != nil {
					return err
				}
				if markChain(entrySet, n.Parent, leaves) {
					changed = true
				}
			}
		}
		if !changed {
			return nil
		}
	}
}

// markChain marks every node between stop (exclusive) and each leaf
// (inclusive) as entering, reporting whether anything new was added.
func markChain(entrySet map[*chart.StateNode]bool, stop *chart.StateNode, leaves []*chart.StateNode) bool {
	added := false
	for _, leaf := range leaves {
		for cur := leaf; cur != nil && cur != stop; cur = cur.Parent {
			if !entrySet[cur] {
				entrySet[cur] = true
				added = true
			}
		}
	}
	return added
}

func snapshot(m map[*chart.StateNode]bool) map[*chart.StateNode]bool {
	out := make(map[*chart.StateNode]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// recordHistory captures, for every history pseudo-state whose containing
// compound/parallel node is being exited, the configuration it should
// restore on re-entry (spec §4.3 step 5).
func recordHistory(exitSet, active map[*chart.StateNode]bool, oldLeaves []*chart.StateNode) map[string][]*chart.StateNode {
	recorded := map[string][]*chart.StateNode{}
	for n := range exitSet {
		for _, child := range n.Children {
			if child.Type != chart.History {
				continue
			}
			if child.HistoryKind == chart.Deep {
				var leaves []*chart.StateNode
				for _, leaf := range oldLeaves {
					if resolver.IsDescendantOrSelf(leaf, n) {
						leaves = append(leaves, leaf)
					}
				}
				recorded[child.Abs] = leaves
				continue
			}
			for _, sibling := range n.Children {
				if sibling.Type != chart.History && active[sibling] {
					recorded[child.Abs] = []*chart.StateNode{sibling}
					break
				}
			}
		}
	}
	return recorded
}

// historyLookup adapts a State's recorded History into a resolver.HistoryLookup,
// expanding a recorded shallow entry (a single, possibly non-leaf, child
// node) to its own default leaves at restore time.
func historyLookup(c *chart.Chart, prevHistory map[string][]*chart.StateNode) resolver.HistoryLookup {
	return func(h *chart.StateNode) ([]*chart.StateNode, bool) {
		recorded, ok := prevHistory[h.Abs]
		if !ok || len(recorded) == 0 {
			return nil, false
		}
		if h.HistoryKind == chart.Deep {
			return recorded, true
		}
		child := recorded[0]
		if child.Type == chart.Atomic || child.Type == chart.Final {
			return []*chart.StateNode{child}, true
		}
		leaves, err := resolver.ExpandToLeaves(c, child, nil)
		if err != nil {
			return nil, false
		}
		return leaves, true
	}
}

// nextEvents collects, in sorted order, every non-eventless/non-wildcard
// event descriptor reachable from the current configuration (spec §4.3
// step 9).
func nextEvents(leaves []*chart.StateNode) []string {
	seen := map[string]bool{}
	var out []string
	for _, leaf := range leaves {
		for cur := leaf; cur != nil; cur = cur.Parent {
			for _, d := range cur.EventDescriptors() {
				if !seen[d] {
					seen[d] = true
					out = append(out, d)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// isDone reports whether the machine's top-level final state has been
// reached (spec §4.4 "done.state" / §6).
func isDone(root *chart.StateNode, active map[*chart.StateNode]bool) bool {
	if root.Type != chart.Compound {
		return false
	}
	for _, c := range root.Children {
		if active[c] && c.Type == chart.Final {
			return true
		}
	}
	return false
}

func leavesFromValue(c *chart.Chart, v statevalue.Value) ([]*chart.StateNode, error) {
	return resolver.LeavesFromValue(c.Root, v)
}

// ShutdownActions returns every OnExit action for state's full active
// configuration, in bottom-up execution order: the order the interpreter
// runs them in on Stop (spec §5 "executes exit actions for the entire
// current configuration (bottom-up)").
func ShutdownActions(c *chart.Chart, state State) []chart.ActionRef {
	leaves := state.leaves
	if leaves == nil {
		var err error
		leaves, err = resolver.LeavesFromValue(c.Root, state.Value)
		if err != nil {
			return nil
		}
	}
	active := activeSet(leaves)
	var order []*chart.StateNode
	orderedWalk(c.Root, active, true, func(n *chart.StateNode) { order = append(order, n) })
	var actions []chart.ActionRef
	for i := len(order) - 1; i >= 0; i-- {
		actions = append(actions, order[i].OnExit...)
	}
	return actions
}
