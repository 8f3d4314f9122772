package chart

// Transition is owned by a source StateNode (spec §3). Target is the
// ordered list of target selectors as written in the chart (relative with
// a leading ".", absolute via "#id", or a sibling key); it is resolved
// against the chart by internal/resolver at transition-selection time, not
// at parse time, since selector resolution depends on the source node.
type Transition struct {
	Source *StateNode

	// Event is the event descriptor: a literal event name, "*" for
	// wildcard, or "" for an eventless ("always") transition.
	Event string

	Cond GuardRef

	// Target holds zero or more target selectors. Zero targets with no
	// actions is a no-op transition, discarded during selection; zero
	// targets with actions is a legal internal self-transition (spec §9
	// Open Question resolution).
	Target []string

	// Internal holds the declared value when InternalExplicit is set (the
	// chart author set it explicitly). Otherwise it stays false and
	// internal-ness is derived once targets are resolved: true iff Target
	// is empty or every target is a proper descendant of Source.
	Internal         bool
	InternalExplicit bool

	Actions []ActionRef

	// DocOrder is the transition's position within its source node's
	// overall document order, used as a conflict-resolution tiebreak
	// among same-depth candidates (spec §4.3 step 3).
	DocOrder int
}

// IsNoop reports whether the transition is a pure no-op: no target and no
// actions. Such transitions are discarded during selection (spec §4.3
// step 3).
func (t *Transition) IsNoop() bool {
	return len(t.Target) == 0 && len(t.Actions) == 0
}

// IsTargetless reports whether the transition declares no target at all
// (it may still carry actions, making it a legal internal self-transition).
func (t *Transition) IsTargetless() bool {
	return len(t.Target) == 0
}
