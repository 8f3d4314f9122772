package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/engine"
	"github.com/quiescent/statechart/internal/resolver"
)

// DefaultVisualizer renders a chart.Chart as Graphviz DOT (highlighting
// current's active nodes) or as an introspectable JSON tree.
type DefaultVisualizer struct{}

// ExportDOT implements interpreter.Visualizer.
func (v *DefaultVisualizer) ExportDOT(c *chart.Chart, current engine.State) string {
	var buf bytes.Buffer
	buf.WriteString("digraph Statechart {\n  rankdir=LR;\n  node [shape=box, fontsize=10, style=rounded];\n  edge [fontsize=9];\n")

	active := make(map[string]bool)
	for _, path := range current.Value.ToStrings() {
		active[path] = true
	}

	renderNode(&buf, c.Root, active)
	renderEdges(&buf, c, c.Root)

	buf.WriteString("}\n")
	return buf.String()
}

func renderNode(buf *bytes.Buffer, n *chart.StateNode, active map[string]bool) {
	for _, child := range n.Children {
		if len(child.Children) > 0 {
			fmt.Fprintf(buf, "  subgraph cluster_%s {\n", dotID(child.Abs))
			style := ""
			if active[child.Abs] {
				style = " style=filled fillcolor=orange"
			}
			fmt.Fprintf(buf, "    label=\"%s (%s)\"%s;\n", child.ID, child.Type, style)
			fmt.Fprintf(buf, "    \"%s\" [label=\"%s\" shape=ellipse%s];\n", dotID(child.Abs), child.ID, style)
			renderNode(buf, child, active)
			buf.WriteString("  }\n")
			continue
		}
		style := ""
		if active[child.Abs] {
			style = " style=filled fillcolor=lightgreen"
		}
		fmt.Fprintf(buf, "  \"%s\" [label=\"%s\"%s];\n", dotID(child.Abs), child.ID, style)
	}
}

func renderEdges(buf *bytes.Buffer, c *chart.Chart, n *chart.StateNode) {
	for _, event := range n.EventDescriptors() {
		for _, t := range n.Transitions(event) {
			targets, err := resolver.ResolveTargets(c, t)
			if err != nil {
				continue
			}
			for _, target := range targets {
				fmt.Fprintf(buf, "  \"%s\" -> \"%s\" [label=\"%s\"];\n", dotID(n.Abs), dotID(target.Abs), event)
			}
		}
	}
	for _, child := range n.Children {
		renderEdges(buf, c, child)
	}
}

// dotID substitutes the root's empty Abs with a stable label.
func dotID(abs string) string {
	if abs == "" {
		return "(root)"
	}
	return abs
}

// ExportJSON implements interpreter.Visualizer: a JSON tree of the chart's
// structure (ids, type, children, outgoing event descriptors).
func (v *DefaultVisualizer) ExportJSON(c *chart.Chart) ([]byte, error) {
	return json.MarshalIndent(nodeTree(c.Root), "", "  ")
}

type nodeJSON struct {
	ID       string      `json:"id"`
	Abs      string      `json:"abs"`
	Type     string      `json:"type"`
	Initial  string      `json:"initial,omitempty"`
	Events   []string    `json:"events,omitempty"`
	Children []*nodeJSON `json:"children,omitempty"`
}

func nodeTree(n *chart.StateNode) *nodeJSON {
	out := &nodeJSON{ID: n.ID, Abs: dotID(n.Abs), Type: n.Type.String(), Initial: n.Initial, Events: n.EventDescriptors()}
	for _, child := range n.Children {
		out.Children = append(out.Children, nodeTree(child))
	}
	return out
}
