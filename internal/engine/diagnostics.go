package engine

import "github.com/quiescent/statechart/internal/chart"

// RejectionReason tags why a candidate transition did not survive into
// the final selected set (spec §4.3's optional diagnostics extension for
// the visualizer/debug adapter).
type RejectionReason string

const (
	// RejectedGuardFalse means the transition's cond evaluated false.
	RejectedGuardFalse RejectionReason = "guard_false"
	// RejectedConflictLost means a deeper or earlier-document-order
	// transition claimed an overlapping exit set first.
	RejectedConflictLost RejectionReason = "conflict_lost"
)

// RejectedTransition pairs a candidate with why it was dropped.
type RejectedTransition struct {
	Transition *chart.Transition
	Reason     RejectionReason
}

// Diagnostics reports transitions that were considered but not taken.
// It never influences State and is purely informational: nil is a valid,
// empty Diagnostics for callers that ignore it.
type Diagnostics struct {
	Rejected []RejectedTransition
}

// TransitionWithDiagnostics behaves exactly like Transition, additionally
// returning a Diagnostics describing every candidate transition that was
// evaluated but not selected, and why (spec §4.3 diagnostics extension).
func TransitionWithDiagnostics(c *chart.Chart, prev State, evt chart.SCXMLEvent, guards GuardEvaluator) (State, *Diagnostics, error) {
	if guards == nil {
		guards = DefaultGuardEvaluator()
	}

	leaves := prev.leaves
	if leaves == nil {
		var err error
		leaves, err = leavesFromValue(c, prev.Value)
		if err != nil {
			return State{}, nil, err
		}
	}

	diag := &Diagnostics{}
	considered, err := selectTransitionsDiag(leaves, evt, prev.Context, guards, diag)
	if err != nil {
		return State{}, nil, err
	}
	survivors := resolveConflicts(considered)

	survivorSet := make(map[*chart.Transition]bool, len(survivors))
	for _, t := range survivors {
		survivorSet[t] = true
	}
	for _, t := range considered {
		if !survivorSet[t] {
			diag.Rejected = append(diag.Rejected, RejectedTransition{Transition: t, Reason: RejectedConflictLost})
		}
	}

	next, err := Transition(c, prev, evt, guards)
	if err != nil {
		return State{}, nil, err
	}
	return next, diag, nil
}

// selectTransitionsDiag mirrors selectTransitions but additionally records
// a RejectedGuardFalse entry for every candidate whose guard evaluated
// false, per leaf, in the same document-order walk selectForLeaf performs.
func selectTransitionsDiag(leaves []*chart.StateNode, evt chart.SCXMLEvent, ctx chart.Context, guards GuardEvaluator, diag *Diagnostics) ([]*chart.Transition, error) {
	seen := map[*chart.Transition]bool{}
	var out []*chart.Transition
	for _, leaf := range leaves {
		for n := leaf; n != nil; n = n.Parent {
			cands := n.Transitions(evt.Name)
			if len(cands) == 0 && evt.Name != "" {
				cands = n.Transitions("*")
			}
			if len(cands) == 0 {
				continue
			}
			var picked *chart.Transition
			for _, t := range cands {
				ok, err := guards.EvalGuard(t.Cond, ctx, evt.Data)
				if err != nil {
					return nil, err
				}
				if ok {
					picked = t
					break
				}
				diag.Rejected = append(diag.Rejected, RejectedTransition{Transition: t, Reason: RejectedGuardFalse})
			}
			if picked != nil && !picked.IsNoop() && !seen[picked] {
				seen[picked] = true
				out = append(out, picked)
			}
			break
		}
	}
	return out, nil
}
