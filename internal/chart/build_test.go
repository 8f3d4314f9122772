package chart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiescent/statechart/internal/chart"
)

func TestNewRejectsEmptyID(t *testing.T) {
	_, err := chart.New(chart.Config{
		States: []*chart.NodeConfig{{ID: "a"}},
	})
	assert.ErrorIs(t, err, chart.ErrEmptyID)
}

func TestNewInfersInitialForSingleChild(t *testing.T) {
	c, err := chart.New(chart.Config{
		ID: "solo",
		States: []*chart.NodeConfig{
			{ID: "only"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "only", c.Root.Initial)
}

func TestNewRequiresInitialForMultipleChildren(t *testing.T) {
	_, err := chart.New(chart.Config{
		ID: "m",
		States: []*chart.NodeConfig{
			{ID: "a"}, {ID: "b"},
		},
	})
	assert.ErrorIs(t, err, chart.ErrEmptyInitial)
}

func TestNewRejectsBadInitial(t *testing.T) {
	_, err := chart.New(chart.Config{
		ID:      "m",
		Initial: "nope",
		States:  []*chart.NodeConfig{{ID: "a"}, {ID: "b"}},
	})
	assert.ErrorIs(t, err, chart.ErrBadInitial)
}

func TestNewRejectsParallelWithFewerThanTwoRegions(t *testing.T) {
	_, err := chart.New(chart.Config{
		ID:   "m",
		Type: "parallel",
		States: []*chart.NodeConfig{
			{ID: "solo"},
		},
	})
	assert.ErrorIs(t, err, chart.ErrParallelArity)
}

func TestNewAcceptsParallelWithTwoRegions(t *testing.T) {
	c, err := chart.New(chart.Config{
		ID:   "m",
		Type: "parallel",
		States: []*chart.NodeConfig{
			{ID: "one"}, {ID: "two"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, c.Root.Children, 2)
}

func TestNewRejectsLeafWithChildren(t *testing.T) {
	_, err := chart.New(chart.Config{
		ID:      "m",
		Initial: "a",
		States: []*chart.NodeConfig{
			{ID: "a", Type: "atomic", States: []*chart.NodeConfig{{ID: "nope"}}},
		},
	})
	assert.ErrorIs(t, err, chart.ErrLeafHasChildren)
}

func TestNewRejectsDuplicateNodeID(t *testing.T) {
	_, err := chart.New(chart.Config{
		ID:      "m",
		Initial: "a",
		States: []*chart.NodeConfig{
			{ID: "a", NodeKey: "dup"},
			{ID: "b", NodeKey: "dup"},
		},
	})
	assert.ErrorIs(t, err, chart.ErrDuplicateNodeID)
}

func TestNewRejectsSelfNamedInitial(t *testing.T) {
	a := &chart.NodeConfig{ID: "a", Type: "compound", Initial: "a", States: []*chart.NodeConfig{{ID: "x"}}}
	_, err := chart.New(chart.Config{
		ID:      "m",
		Initial: "a",
		States:  []*chart.NodeConfig{a},
	})
	assert.ErrorIs(t, err, chart.ErrBadInitial)
}

func TestNewBuildsAbsolutePaths(t *testing.T) {
	c, err := chart.New(chart.Config{
		ID:      "m",
		Initial: "outer",
		States: []*chart.NodeConfig{
			{
				ID:      "outer",
				Type:    "compound",
				Initial: "inner",
				States:  []*chart.NodeConfig{{ID: "inner"}},
			},
		},
	})
	require.NoError(t, err)
	n, ok := c.ByAbs("outer.inner")
	require.True(t, ok)
	assert.Equal(t, "inner", n.ID)
}

func TestNewResolvesExplicitNodeKey(t *testing.T) {
	c, err := chart.New(chart.Config{
		ID:      "m",
		Initial: "outer",
		States: []*chart.NodeConfig{
			{
				ID:      "outer",
				Type:    "compound",
				Initial: "inner",
				States:  []*chart.NodeConfig{{ID: "inner", NodeKey: "theInner"}},
			},
		},
	})
	require.NoError(t, err)
	n, ok := c.ByNodeID("theInner")
	require.True(t, ok)
	assert.Equal(t, "outer.inner", n.Abs)
}

func TestEventDescriptorsExcludeEventlessAndWildcard(t *testing.T) {
	c, err := chart.New(chart.Config{
		ID:      "m",
		Initial: "a",
		States: []*chart.NodeConfig{
			{
				ID: "a",
				On: []chart.TransitionConfig{
					{Event: "GO", Target: []string{"b"}},
					{Event: "", Target: []string{"b"}},
					{Event: "*", Target: []string{"b"}},
				},
			},
			{ID: "b"},
		},
	})
	require.NoError(t, err)
	a, ok := c.ByAbs("a")
	require.True(t, ok)
	assert.Equal(t, []string{"GO"}, a.EventDescriptors())
}
