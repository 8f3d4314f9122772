package statevalue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quiescent/statechart/internal/statevalue"
)

func TestAtomicMatches(t *testing.T) {
	v := statevalue.Atomic("on")
	assert.True(t, v.Matches("on"))
	assert.False(t, v.Matches("off"))
	assert.False(t, v.Matches("on.sub"))
}

func TestCompoundMatchesAncestorPaths(t *testing.T) {
	v := statevalue.Compound(map[string]statevalue.Value{
		"steps": statevalue.Compound(map[string]statevalue.Value{
			"one": statevalue.Atomic("one"),
		}),
	})
	assert.True(t, v.Matches("steps"))
	assert.True(t, v.Matches("steps.one"))
	assert.False(t, v.Matches("steps.two"))
}

func TestParallelMatchesEveryRegion(t *testing.T) {
	v := statevalue.Compound(map[string]statevalue.Value{
		"power": statevalue.Atomic("lit"),
		"alarm": statevalue.Atomic("silent"),
	})
	assert.True(t, v.Matches("power"))
	assert.True(t, v.Matches("power.lit"))
	assert.True(t, v.Matches("alarm.silent"))
	assert.False(t, v.Matches("alarm.ringing"))
}

func TestToStringsEnumeratesAncestorPaths(t *testing.T) {
	v := statevalue.Compound(map[string]statevalue.Value{
		"two": statevalue.Compound(map[string]statevalue.Value{
			"deep": statevalue.Atomic("foo"),
		}),
	})
	assert.Equal(t, []string{"two", "two.deep", "two.deep.foo"}, v.ToStrings())
}

func TestToStringsAtomicIsSingleEntry(t *testing.T) {
	v := statevalue.Atomic("one")
	assert.Equal(t, []string{"one"}, v.ToStrings())
}

func TestToStringsSortsRegionsDeterministically(t *testing.T) {
	v := statevalue.Compound(map[string]statevalue.Value{
		"b": statevalue.Atomic("x"),
		"a": statevalue.Atomic("y"),
	})
	assert.Equal(t, []string{"a", "a.y", "b", "b.x"}, v.ToStrings())
}

func TestEqualsStructuralRecursion(t *testing.T) {
	a := statevalue.Compound(map[string]statevalue.Value{
		"power": statevalue.Atomic("lit"),
		"alarm": statevalue.Atomic("silent"),
	})
	b := statevalue.Compound(map[string]statevalue.Value{
		"alarm": statevalue.Atomic("silent"),
		"power": statevalue.Atomic("lit"),
	})
	c := statevalue.Compound(map[string]statevalue.Value{
		"power": statevalue.Atomic("dim"),
		"alarm": statevalue.Atomic("silent"),
	})

	assert.True(t, statevalue.Equals(a, b))
	assert.False(t, statevalue.Equals(a, c))
}

func TestEqualsLeafVsRegionMismatch(t *testing.T) {
	leaf := statevalue.Atomic("on")
	region := statevalue.Compound(map[string]statevalue.Value{"on": statevalue.Atomic("on")})
	assert.False(t, statevalue.Equals(leaf, region))
}

func TestIsLeaf(t *testing.T) {
	assert.True(t, statevalue.Atomic("x").IsLeaf())
	assert.False(t, statevalue.Compound(map[string]statevalue.Value{"x": statevalue.Atomic("x")}).IsLeaf())
}
