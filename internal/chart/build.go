package chart

import (
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Sentinel errors, wrapped with call-site context via errors.Wrap
// (spec §7).
var (
	ErrEmptyID          = errors.New("chart: id is required")
	ErrEmptyInitial     = errors.New("chart: initial is required for a compound or parallel node")
	ErrBadInitial       = errors.New("chart: initial does not name a child state")
	ErrNeedsChildren    = errors.New("chart: compound/parallel node requires at least one child")
	ErrParallelArity    = errors.New("chart: parallel node requires at least two regions")
	ErrLeafHasChildren  = errors.New("chart: atomic/final/history nodes cannot have children")
	ErrDuplicateNodeID  = errors.New("chart: duplicate absolute or explicit node id")
	ErrUnknownType      = errors.New("chart: unknown node type")
	ErrUnknownHistory   = errors.New("chart: unknown history kind")
	ErrInitialCycle     = errors.New("chart: initial-state cycle detected")
)

// Chart is the immutable, validated, once-parsed chart tree (spec §3/§4.1).
type Chart struct {
	ID      string
	Root    *StateNode
	Context Context

	byAbs    map[string]*StateNode
	byNodeID map[string]*StateNode
}

// ByAbs looks up a node by its absolute dotted path (e.g. "two.deep.foo").
func (c *Chart) ByAbs(path string) (*StateNode, bool) {
	n, ok := c.byAbs[path]
	return n, ok
}

// ByNodeID looks up a node by its explicit "#id" identifier.
func (c *Chart) ByNodeID(id string) (*StateNode, bool) {
	n, ok := c.byNodeID[id]
	return n, ok
}

// New parses and validates cfg into an immutable Chart (spec §4.1).
func New(cfg Config) (*Chart, error) {
	if cfg.ID == "" {
		return nil, ErrEmptyID
	}

	c := &Chart{
		ID:       cfg.ID,
		Context:  NewContext(cfg.Context),
		byAbs:    make(map[string]*StateNode),
		byNodeID: make(map[string]*StateNode),
	}

	rootType := Compound
	if cfg.Type == "parallel" {
		rootType = Parallel
	}
	root := &StateNode{
		ID:      cfg.ID,
		Abs:     "",
		Type:    rootType,
		Initial: cfg.Initial,
		byID:    make(map[string]*StateNode),
		OnEntry: cfg.Entry,
		OnExit:  cfg.Exit,
	}
	c.Root = root

	for docOrder, nc := range cfg.States {
		child, err := buildNode(nc, root, "", docOrder, c)
		if err != nil {
			return nil, errors.Wrapf(err, "state %q", nc.ID)
		}
		root.Children = append(root.Children, child)
		root.byID[child.ID] = child
	}
	attachOn(root, cfg.On, 0)

	if err := validateCompoundLike(root); err != nil {
		return nil, errors.Wrapf(err, "root %q", cfg.ID)
	}
	if err := checkInitialAcyclic(root, map[*StateNode]bool{}); err != nil {
		return nil, err
	}

	return c, nil
}

func buildNode(nc *NodeConfig, parent *StateNode, prefix string, docOrder int, c *Chart) (*StateNode, error) {
	if nc.ID == "" {
		return nil, ErrEmptyID
	}
	abs := nc.ID
	if prefix != "" {
		abs = prefix + "." + nc.ID
	}

	typ, err := parseType(nc.Type)
	if err != nil {
		return nil, err
	}

	n := &StateNode{
		ID:        nc.ID,
		Abs:       abs,
		Type:      typ,
		Parent:    parent,
		Initial:   nc.Initial,
		byID:      make(map[string]*StateNode),
		OnEntry:   nc.Entry,
		OnExit:    nc.Exit,
		FinalData: nc.FinalData,
	}

	if typ == History {
		kind, err := parseHistoryKind(nc.History)
		if err != nil {
			return nil, err
		}
		n.HistoryKind = kind
		n.HistoryDefault = nc.HistoryDefault
	}

	if typ.IsLeafType() && len(nc.States) > 0 {
		return nil, ErrLeafHasChildren
	}

	for i, child := range nc.States {
		cn, err := buildNode(child, n, abs, i, c)
		if err != nil {
			return nil, errors.Wrapf(err, "state %q", child.ID)
		}
		n.Children = append(n.Children, cn)
		n.byID[cn.ID] = cn
	}

	attachOn(n, nc.On, 0)
	attachAfter(n, nc.After)

	nodeID := nc.NodeKey
	if nodeID == "" {
		nodeID = abs
	}
	if _, dup := c.byNodeID[nodeID]; dup {
		return nil, errors.Wrapf(ErrDuplicateNodeID, "%q", nodeID)
	}
	c.byNodeID[nodeID] = n
	c.byAbs[abs] = n

	if typ == Compound || typ == Parallel {
		if err := validateCompoundLike(n); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func parseType(s string) (NodeType, error) {
	switch s {
	case "", "atomic":
		return Atomic, nil
	case "compound":
		return Compound, nil
	case "parallel":
		return Parallel, nil
	case "final":
		return Final, nil
	case "history":
		return History, nil
	default:
		return Atomic, errors.Wrapf(ErrUnknownType, "%q", s)
	}
}

func parseHistoryKind(s string) (HistoryKind, error) {
	switch s {
	case "", "shallow":
		return Shallow, nil
	case "deep":
		return Deep, nil
	default:
		return Shallow, errors.Wrapf(ErrUnknownHistory, "%q", s)
	}
}

func validateCompoundLike(n *StateNode) error {
	if len(n.Children) == 0 {
		return errors.Wrapf(ErrNeedsChildren, "node %q", n.Abs)
	}
	if n.Type == Parallel {
		if len(n.Children) < 2 {
			return errors.Wrapf(ErrParallelArity, "node %q", n.Abs)
		}
		return nil
	}
	// Compound: Initial may be omitted only when the node's sole child is a
	// non-history node, which then becomes the initial; otherwise Initial
	// is required.
	if n.Initial == "" {
		if len(n.Children) == 1 && n.Children[0].Type != History {
			n.Initial = n.Children[0].ID
			return nil
		}
		return errors.Wrapf(ErrEmptyInitial, "node %q", n.Abs)
	}
	if _, ok := n.Child(n.Initial); !ok {
		return errors.Wrapf(ErrBadInitial, "node %q initial %q", n.Abs, n.Initial)
	}
	return nil
}

func checkInitialAcyclic(n *StateNode, seen map[*StateNode]bool) error {
	if n.Type != Compound && n.Type != Parallel {
		return nil
	}
	if n.Type == Compound {
		cur := n
		visited := map[*StateNode]bool{}
		for cur.Type == Compound {
			if visited[cur] {
				return errors.Wrapf(ErrInitialCycle, "node %q", n.Abs)
			}
			visited[cur] = true
			child, ok := cur.Child(cur.Initial)
			if !ok {
				break
			}
			cur = child
		}
	}
	for _, child := range n.Children {
		if err := checkInitialAcyclic(child, seen); err != nil {
			return err
		}
	}
	return nil
}

func attachOn(n *StateNode, transitions []TransitionConfig, baseDocOrder int) {
	if len(transitions) == 0 {
		return
	}
	if n.On == nil {
		n.On = orderedmap.New[string, []*Transition]()
	}
	for i, tc := range transitions {
		t := &Transition{
			Source:   n,
			Event:    tc.Event,
			Cond:     tc.Cond,
			Target:   tc.Target,
			Actions:  tc.Actions,
			DocOrder: baseDocOrder + i,
		}
		if tc.Internal != nil {
			t.InternalExplicit = true
			t.Internal = *tc.Internal
		}
		existing, _ := n.On.Get(tc.Event)
		n.On.Set(tc.Event, append(existing, t))
	}
}

func attachAfter(n *StateNode, after []DelayedTransitionConfig) {
	for _, dtc := range after {
		descriptor := afterDescriptor(dtc.DelayMS, n.Abs)
		t := &Transition{
			Source: n,
			Event:  descriptor,
			Cond:   dtc.Cond,
			Target: dtc.Target,
			Actions: dtc.Actions,
		}
		if dtc.Internal != nil {
			t.InternalExplicit = true
			t.Internal = *dtc.Internal
		}
		if n.On == nil {
			n.On = orderedmap.New[string, []*Transition]()
		}
		existing, _ := n.On.Get(descriptor)
		n.On.Set(descriptor, append(existing, t))
		n.After = append(n.After, DelayedTransition{DelayMS: dtc.DelayMS, Transition: t})
	}
}

func afterDescriptor(delayMS int64, abs string) string {
	return AfterEvent(delayMS, abs)
}
