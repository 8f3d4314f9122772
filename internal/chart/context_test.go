package chart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quiescent/statechart/internal/chart"
)

func TestContextWithLeavesReceiverUntouched(t *testing.T) {
	base := chart.NewContext(map[string]any{"count": 0})
	next := base.With("count", 1)

	count, ok := base.Get("count")
	assert.True(t, ok)
	assert.Equal(t, 0, count)

	nextCount, ok := next.Get("count")
	assert.True(t, ok)
	assert.Equal(t, 1, nextCount)
}

func TestContextWithAllMergesOverExisting(t *testing.T) {
	base := chart.NewContext(map[string]any{"a": 1, "b": 2})
	next := base.WithAll(map[string]any{"b": 20, "c": 3})

	a, _ := next.Get("a")
	b, _ := next.Get("b")
	c, _ := next.Get("c")
	assert.Equal(t, 1, a)
	assert.Equal(t, 20, b)
	assert.Equal(t, 3, c)
}

func TestContextSnapshotIsDefensiveCopy(t *testing.T) {
	base := chart.NewContext(map[string]any{"a": 1})
	snap := base.Snapshot()
	snap["a"] = 99

	a, _ := base.Get("a")
	assert.Equal(t, 1, a)
}

func TestContextEqual(t *testing.T) {
	a := chart.NewContext(map[string]any{"x": 1, "y": "hi"})
	b := chart.NewContext(map[string]any{"x": 1, "y": "hi"})
	c := chart.NewContext(map[string]any{"x": 2, "y": "hi"})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestContextEqualDifferentKeySets(t *testing.T) {
	a := chart.NewContext(map[string]any{"x": 1})
	b := chart.NewContext(map[string]any{"x": 1, "y": 2})
	assert.False(t, a.Equal(b))
}
