// Package resolver resolves relative/absolute state identifiers against a
// chart and computes the least common compound ancestor (LCCA) used to
// scope external transitions (spec §4.1).
package resolver

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/quiescent/statechart/internal/chart"
)

// ErrUnknownState is returned when a selector does not resolve to exactly
// one StateNode (spec §4.3 error conditions).
var ErrUnknownState = errors.New("resolver: unknown state")

// GetByID performs a strict lookup by absolute dotted path or explicit
// node id (spec §4.1).
func GetByID(c *chart.Chart, ref string) (*chart.StateNode, error) {
	if n, ok := c.ByNodeID(ref); ok {
		return n, nil
	}
	if n, ok := c.ByAbs(ref); ok {
		return n, nil
	}
	return nil, errors.Wrapf(ErrUnknownState, "id %q", ref)
}

// GetRelative resolves a selector written on a transition sourced at
// source (spec §4.1):
//
//	""  or "."        -> source itself
//	".foo.bar"         -> descendant of source by dotted path
//	"#id"              -> absolute, by explicit node id or abs path
//	"sibling"          -> resolved within source's parent
//
// As a pragmatic extension, a bare selector that
// is not a sibling of source is also tried as an absolute path/top-level
// key, so charts may target any state by its full dotted id without a
// leading "#".
func GetRelative(c *chart.Chart, source *chart.StateNode, selector string) (*chart.StateNode, error) {
	switch {
	case selector == "" || selector == ".":
		return source, nil
	case strings.HasPrefix(selector, "#"):
		return GetByID(c, selector[1:])
	case strings.HasPrefix(selector, "."):
		return GetByID(c, source.Abs+selector)
	default:
		if source.Parent != nil {
			if child, ok := source.Parent.Child(selector); ok {
				return child, nil
			}
		}
		if n, ok := c.ByAbs(selector); ok {
			return n, nil
		}
		if n, ok := c.Root.Child(selector); ok {
			return n, nil
		}
		return nil, errors.Wrapf(ErrUnknownState, "selector %q from %q", selector, source.Abs)
	}
}

// ResolveTargets resolves every selector on a transition.
func ResolveTargets(c *chart.Chart, t *chart.Transition) ([]*chart.StateNode, error) {
	out := make([]*chart.StateNode, 0, len(t.Target))
	for _, sel := range t.Target {
		n, err := GetRelative(c, t.Source, sel)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Ancestors returns the chain from the chart root down to and including n.
func Ancestors(n *chart.StateNode) []*chart.StateNode {
	var chain []*chart.StateNode
	for cur := n; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// IsDescendant reports whether a is a strict descendant of b.
func IsDescendant(a, b *chart.StateNode) bool {
	for cur := a.Parent; cur != nil; cur = cur.Parent {
		if cur == b {
			return true
		}
	}
	return false
}

// IsDescendantOrSelf reports whether a equals b or is a strict descendant
// of b.
func IsDescendantOrSelf(a, b *chart.StateNode) bool {
	return a == b || IsDescendant(a, b)
}

// LCCA returns the least common compound ancestor of nodes: the lowest
// non-parallel ancestor containing every input (spec §4.1). Returns nil if
// nodes is empty.
func LCCA(nodes []*chart.StateNode) *chart.StateNode {
	if len(nodes) == 0 {
		return nil
	}
	chains := make([][]*chart.StateNode, len(nodes))
	minLen := -1
	for i, n := range nodes {
		chains[i] = Ancestors(n)
		if minLen == -1 || len(chains[i]) < minLen {
			minLen = len(chains[i])
		}
	}
	common := 0
	for i := 0; i < minLen; i++ {
		candidate := chains[0][i]
		same := true
		for _, chain := range chains {
			if chain[i] != candidate {
				same = false
				break
			}
		}
		if !same {
			break
		}
		common = i + 1
	}
	if common == 0 {
		return nil
	}
	node := chains[0][common-1]
	// An input that contains every other input is not its own ancestor:
	// step to its parent.
	for _, n := range nodes {
		if n == node && node.Parent != nil {
			node = node.Parent
			break
		}
	}
	for node != nil && node.Type == chart.Parallel && node.Parent != nil {
		node = node.Parent
	}
	return node
}
