package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/engine"
)

func TestTransitionWithDiagnosticsRecordsGuardFalse(t *testing.T) {
	c, err := chart.New(chart.Config{
		ID:      "gated",
		Initial: "idle",
		Context: map[string]any{"allowed": false},
		States: []*chart.NodeConfig{
			{ID: "idle", On: []chart.TransitionConfig{
				{Event: "GO", Target: []string{"done"}, Cond: func(ctx chart.Context, e chart.Event) bool {
					v, _ := ctx.Get("allowed")
					b, _ := v.(bool)
					return b
				}},
			}},
			{ID: "done", Type: "final"},
		},
	})
	require.NoError(t, err)

	initial, err := engine.InitialState(c)
	require.NoError(t, err)

	next, diag, err := engine.TransitionWithDiagnostics(c, initial, chart.ToSCXML(chart.NewEvent("GO", nil), chart.KindExternal), nil)
	require.NoError(t, err)
	require.NotNil(t, diag)
	assert.False(t, next.Changed)
	require.Len(t, diag.Rejected, 1)
	assert.Equal(t, engine.RejectedGuardFalse, diag.Rejected[0].Reason)
	assert.Equal(t, "GO", diag.Rejected[0].Transition.Event)
}

func TestTransitionWithDiagnosticsRecordsNothingWhenGuardPasses(t *testing.T) {
	c, err := chart.New(chart.Config{
		ID:      "gated",
		Initial: "idle",
		Context: map[string]any{"allowed": true},
		States: []*chart.NodeConfig{
			{ID: "idle", On: []chart.TransitionConfig{
				{Event: "GO", Target: []string{"done"}, Cond: func(ctx chart.Context, e chart.Event) bool {
					v, _ := ctx.Get("allowed")
					b, _ := v.(bool)
					return b
				}},
			}},
			{ID: "done", Type: "final"},
		},
	})
	require.NoError(t, err)

	initial, err := engine.InitialState(c)
	require.NoError(t, err)

	next, diag, err := engine.TransitionWithDiagnostics(c, initial, chart.ToSCXML(chart.NewEvent("GO", nil), chart.KindExternal), nil)
	require.NoError(t, err)
	require.NotNil(t, diag)
	assert.True(t, next.Matches("done"))
	assert.Empty(t, diag.Rejected)
}

func TestTransitionWithDiagnosticsRecordsConflictLost(t *testing.T) {
	c, err := chart.New(chart.Config{
		ID:      "panel",
		Initial: "on",
		States: []*chart.NodeConfig{
			{
				ID:   "on",
				Type: "parallel",
				States: []*chart.NodeConfig{
					{ID: "a", Type: "compound", Initial: "a1", On: []chart.TransitionConfig{
						{Event: "GO", Target: []string{"#shared"}},
					}, States: []*chart.NodeConfig{{ID: "a1"}}},
					{ID: "b", Type: "compound", Initial: "b1", On: []chart.TransitionConfig{
						{Event: "GO", Target: []string{"#shared"}},
					}, States: []*chart.NodeConfig{{ID: "b1"}}},
				},
			},
			{ID: "shared", NodeKey: "shared", Type: "final"},
		},
	})
	require.NoError(t, err)

	initial, err := engine.InitialState(c)
	require.NoError(t, err)

	_, diag, err := engine.TransitionWithDiagnostics(c, initial, chart.ToSCXML(chart.NewEvent("GO", nil), chart.KindExternal), nil)
	require.NoError(t, err)
	require.NotNil(t, diag)
	require.Len(t, diag.Rejected, 1)
	assert.Equal(t, engine.RejectedConflictLost, diag.Rejected[0].Reason)
}
