// Package builder provides a fluent, stack-based constructor for
// chart.Config trees, mirroring the teacher's MachineBuilder/StateBuilder
// nesting API (internal/primitives/machinebuilder.go) but targeting this
// module's Config/NodeConfig/TransitionConfig shapes and chart.New as the
// terminal build step.
package builder

import "github.com/quiescent/statechart/internal/chart"

// MachineBuilder accumulates a chart.Config's root-level fields and a
// stack of in-progress NodeConfig ancestors. Compound/ParallelState push
// onto the stack; Up pops; Atomic/Final/History attach a leaf to whatever
// is on top.
type MachineBuilder struct {
	cfg   chart.Config
	stack []*NodeBuilder
}

// New starts a MachineBuilder for a chart with the given root id and
// initial child id.
func New(id, initial string) *MachineBuilder {
	return &MachineBuilder{cfg: chart.Config{ID: id, Initial: initial}}
}

// WithContext sets the chart's initial context.
func (b *MachineBuilder) WithContext(ctx map[string]any) *MachineBuilder {
	b.cfg.Context = ctx
	return b
}

// Parallel marks the root chart itself as a parallel region (its States
// are concurrent regions rather than exclusive alternatives).
func (b *MachineBuilder) Parallel() *MachineBuilder {
	b.cfg.Type = "parallel"
	return b
}

// OnRoot adds a transition to the chart's root node.
func (b *MachineBuilder) OnRoot(event string, target ...string) *MachineBuilder {
	b.cfg.On = append(b.cfg.On, chart.TransitionConfig{Event: event, Target: target})
	return b
}

func (b *MachineBuilder) attach(n *NodeBuilder) {
	if len(b.stack) > 0 {
		top := b.stack[len(b.stack)-1]
		top.node.States = append(top.node.States, n.node)
	} else {
		b.cfg.States = append(b.cfg.States, n.node)
	}
}

// Compound starts a compound (nested exclusive) state and pushes it onto
// the nesting stack; children are attached via subsequent calls until Up.
func (b *MachineBuilder) Compound(id string) *NodeBuilder {
	n := &NodeBuilder{node: &chart.NodeConfig{ID: id, Type: "compound"}, mb: b}
	b.attach(n)
	b.stack = append(b.stack, n)
	return n
}

// ParallelState starts a parallel (concurrent regions) state and pushes it.
func (b *MachineBuilder) ParallelState(id string) *NodeBuilder {
	n := &NodeBuilder{node: &chart.NodeConfig{ID: id, Type: "parallel"}, mb: b}
	b.attach(n)
	b.stack = append(b.stack, n)
	return n
}

// Atomic adds a leaf atomic state under the current nesting level.
func (b *MachineBuilder) Atomic(id string) *NodeBuilder {
	n := &NodeBuilder{node: &chart.NodeConfig{ID: id}, mb: b}
	b.attach(n)
	return n
}

// Final adds a final leaf state under the current nesting level.
func (b *MachineBuilder) Final(id string) *NodeBuilder {
	n := &NodeBuilder{node: &chart.NodeConfig{ID: id, Type: "final", Final: true}, mb: b}
	b.attach(n)
	return n
}

// History adds a history pseudostate under the current nesting level.
// shallow selects shallow history; otherwise deep.
func (b *MachineBuilder) History(id string, shallow bool, defaultTarget ...string) *NodeBuilder {
	kind := "deep"
	if shallow {
		kind = "shallow"
	}
	n := &NodeBuilder{node: &chart.NodeConfig{ID: id, Type: "history", History: kind, HistoryDefault: defaultTarget}, mb: b}
	b.attach(n)
	return n
}

// Build validates and constructs the Chart from the accumulated Config.
func (b *MachineBuilder) Build() (*chart.Chart, error) {
	return chart.New(b.cfg)
}

// NodeBuilder configures one in-progress NodeConfig: its own transitions,
// entry/exit actions, and (for compound/parallel nodes) nested children
// via the MachineBuilder the node was pushed onto.
type NodeBuilder struct {
	node *chart.NodeConfig
	mb   *MachineBuilder
}

// WithInitial sets the initial child id for a compound node.
func (n *NodeBuilder) WithInitial(initial string) *NodeBuilder {
	n.node.Initial = initial
	return n
}

// WithNodeKey sets an explicit "#id" selector target distinct from the
// node's absolute path.
func (n *NodeBuilder) WithNodeKey(key string) *NodeBuilder {
	n.node.NodeKey = key
	return n
}

// OnEntry appends entry actions, run in call order on every entry.
func (n *NodeBuilder) OnEntry(actions ...chart.ActionRef) *NodeBuilder {
	n.node.Entry = append(n.node.Entry, actions...)
	return n
}

// OnExit appends exit actions, run in call order on every exit.
func (n *NodeBuilder) OnExit(actions ...chart.ActionRef) *NodeBuilder {
	n.node.Exit = append(n.node.Exit, actions...)
	return n
}

// TransitionOption configures a TransitionConfig built by On.
type TransitionOption func(*chart.TransitionConfig)

// Cond attaches a guard to the transition.
func Cond(g chart.GuardRef) TransitionOption {
	return func(t *chart.TransitionConfig) { t.Cond = g }
}

// Internal marks the transition as a non-exiting internal transition.
func Internal(internal bool) TransitionOption {
	return func(t *chart.TransitionConfig) { t.Internal = &internal }
}

// Actions attaches actions run when the transition fires.
func Actions(actions ...chart.ActionRef) TransitionOption {
	return func(t *chart.TransitionConfig) { t.Actions = append(t.Actions, actions...) }
}

// On adds an event-triggered transition to the node. An empty event
// string marks an eventless ("always") transition, evaluated after
// every stabilizing microstep.
func (n *NodeBuilder) On(event string, target []string, opts ...TransitionOption) *NodeBuilder {
	t := chart.TransitionConfig{Event: event, Target: target}
	for _, opt := range opts {
		opt(&t)
	}
	n.node.On = append(n.node.On, t)
	return n
}

// Always adds an eventless transition, evaluated repeatedly until no
// further eventless transition is enabled (spec §4.5 microstep loop).
func (n *NodeBuilder) Always(target []string, opts ...TransitionOption) *NodeBuilder {
	return n.On("", target, opts...)
}

// After adds a delayed transition, armed while the node is active and
// disarmed on exit.
func (n *NodeBuilder) After(delayMS int64, target []string, opts ...TransitionOption) *NodeBuilder {
	t := chart.TransitionConfig{Target: target}
	for _, opt := range opts {
		opt(&t)
	}
	n.node.After = append(n.node.After, chart.DelayedTransitionConfig{DelayMS: delayMS, TransitionConfig: t})
	return n
}

// FinalData attaches the data payload a final child reports via its
// done.state.<parent> event.
func (n *NodeBuilder) FinalData(data any) *NodeBuilder {
	n.node.FinalData = data
	return n
}

// Compound nests a compound child under n and pushes it onto the stack.
func (n *NodeBuilder) Compound(id string) *NodeBuilder {
	return n.mb.Compound(id)
}

// ParallelState nests a parallel child under n and pushes it onto the stack.
func (n *NodeBuilder) ParallelState(id string) *NodeBuilder {
	return n.mb.ParallelState(id)
}

// Atomic nests an atomic leaf under n.
func (n *NodeBuilder) Atomic(id string) *NodeBuilder {
	return n.mb.Atomic(id)
}

// Final nests a final leaf under n.
func (n *NodeBuilder) Final(id string) *NodeBuilder {
	return n.mb.Final(id)
}

// History nests a history pseudostate under n.
func (n *NodeBuilder) History(id string, shallow bool, defaultTarget ...string) *NodeBuilder {
	return n.mb.History(id, shallow, defaultTarget...)
}

// Up pops the nesting stack and returns the new top NodeBuilder. It
// returns nil once the stack is empty, and returns n unchanged if the
// stack was already empty.
func (n *NodeBuilder) Up() *NodeBuilder {
	st := n.mb.stack
	if len(st) == 0 {
		return n
	}
	// pop n (must be the top) and return the new top, if any.
	n.mb.stack = st[:len(st)-1]
	if len(n.mb.stack) == 0 {
		return nil
	}
	return n.mb.stack[len(n.mb.stack)-1]
}

// Build finalizes the whole machine from any node in the tree.
func (n *NodeBuilder) Build() (*chart.Chart, error) {
	return n.mb.Build()
}
