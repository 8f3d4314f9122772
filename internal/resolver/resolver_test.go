package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/resolver"
)

func lightChart(t *testing.T) *chart.Chart {
	t.Helper()
	c, err := chart.New(chart.Config{
		ID:      "light",
		Initial: "traffic",
		States: []*chart.NodeConfig{
			{
				ID:      "traffic",
				Type:    "compound",
				Initial: "red",
				States: []*chart.NodeConfig{
					{ID: "red", NodeKey: "theRed", On: []chart.TransitionConfig{{Event: "NEXT", Target: []string{"green"}}}},
					{ID: "green", On: []chart.TransitionConfig{{Event: "NEXT", Target: []string{".caution"}, Internal: boolPtr(false)}}, Type: "compound", Initial: "caution",
						States: []*chart.NodeConfig{{ID: "caution"}}},
				},
			},
			{ID: "off", On: []chart.TransitionConfig{{Event: "RESET", Target: []string{"#theRed"}}}},
		},
	})
	require.NoError(t, err)
	return c
}

func boolPtr(b bool) *bool { return &b }

func TestGetRelativeSibling(t *testing.T) {
	c := lightChart(t)
	red, ok := c.ByAbs("traffic.red")
	require.True(t, ok)

	n, err := resolver.GetRelative(c, red, "green")
	require.NoError(t, err)
	assert.Equal(t, "traffic.green", n.Abs)
}

func TestGetRelativeDescendantDotPath(t *testing.T) {
	c := lightChart(t)
	green, ok := c.ByAbs("traffic.green")
	require.True(t, ok)

	n, err := resolver.GetRelative(c, green, ".caution")
	require.NoError(t, err)
	assert.Equal(t, "traffic.green.caution", n.Abs)
}

func TestGetRelativeExplicitNodeKey(t *testing.T) {
	c := lightChart(t)
	off, ok := c.ByAbs("off")
	require.True(t, ok)

	n, err := resolver.GetRelative(c, off, "#theRed")
	require.NoError(t, err)
	assert.Equal(t, "traffic.red", n.Abs)
}

func TestGetRelativeSelf(t *testing.T) {
	c := lightChart(t)
	red, ok := c.ByAbs("traffic.red")
	require.True(t, ok)

	n, err := resolver.GetRelative(c, red, "")
	require.NoError(t, err)
	assert.Equal(t, red, n)
}

func TestGetRelativeUnknownSelector(t *testing.T) {
	c := lightChart(t)
	red, ok := c.ByAbs("traffic.red")
	require.True(t, ok)

	_, err := resolver.GetRelative(c, red, "nowhere")
	assert.ErrorIs(t, err, resolver.ErrUnknownState)
}

func TestAncestorsOrdersRootFirst(t *testing.T) {
	c := lightChart(t)
	caution, ok := c.ByAbs("traffic.green.caution")
	require.True(t, ok)

	chain := resolver.Ancestors(caution)
	require.Len(t, chain, 4)
	assert.Equal(t, c.Root, chain[0])
	assert.Equal(t, caution, chain[3])
}

func TestIsDescendant(t *testing.T) {
	c := lightChart(t)
	traffic, ok := c.ByAbs("traffic")
	require.True(t, ok)
	red, ok := c.ByAbs("traffic.red")
	require.True(t, ok)

	assert.True(t, resolver.IsDescendant(red, traffic))
	assert.False(t, resolver.IsDescendant(traffic, red))
	assert.False(t, resolver.IsDescendant(traffic, traffic))
	assert.True(t, resolver.IsDescendantOrSelf(traffic, traffic))
}

func TestLCCAOfSiblingsIsParent(t *testing.T) {
	c := lightChart(t)
	red, ok := c.ByAbs("traffic.red")
	require.True(t, ok)
	green, ok := c.ByAbs("traffic.green")
	require.True(t, ok)

	lcca := resolver.LCCA([]*chart.StateNode{red, green})
	assert.Equal(t, "traffic", lcca.Abs)
}

func TestLCCASkipsParallelAncestor(t *testing.T) {
	c, err := chart.New(chart.Config{
		ID:      "m",
		Initial: "on",
		States: []*chart.NodeConfig{
			{
				ID:      "on",
				Type:    "parallel",
				States: []*chart.NodeConfig{
					{ID: "power", Type: "compound", Initial: "lit", States: []*chart.NodeConfig{{ID: "lit"}, {ID: "dim"}}},
					{ID: "alarm", Type: "compound", Initial: "silent", States: []*chart.NodeConfig{{ID: "silent"}, {ID: "ringing"}}},
				},
			},
		},
	})
	require.NoError(t, err)

	lit, ok := c.ByAbs("on.power.lit")
	require.True(t, ok)
	silent, ok := c.ByAbs("on.alarm.silent")
	require.True(t, ok)

	lcca := resolver.LCCA([]*chart.StateNode{lit, silent})
	assert.Equal(t, c.Root, lcca)
}

func TestResolveTargets(t *testing.T) {
	c := lightChart(t)
	red, ok := c.ByAbs("traffic.red")
	require.True(t, ok)
	ts := red.Transitions("NEXT")
	require.Len(t, ts, 1)

	targets, err := resolver.ResolveTargets(c, ts[0])
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "traffic.green", targets[0].Abs)
}
