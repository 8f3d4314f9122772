// Package statevalue represents and compares hierarchical/parallel
// configuration values (spec §3/§4.2): either a string (an atomic leaf of
// a compound) or a map from region name to Value (parallel/nested).
package statevalue

import "sort"

// Value is either a leaf (Leaf != "", Regions == nil) or a region map
// (Leaf == "", Regions != nil), never both. The zero Value is invalid.
type Value struct {
	Leaf    string
	Regions map[string]Value
}

// Atomic builds a leaf Value.
func Atomic(name string) Value { return Value{Leaf: name} }

// Compound builds a region-map Value. Use for both "compound with a single
// active child" (one entry) and "parallel with N active regions"
// (N entries); the two shapes are indistinguishable at the Value level,
// by design (spec §3: "StateValue: either a string ... or a map").
func Compound(regions map[string]Value) Value { return Value{Regions: regions} }

// IsLeaf reports whether v is an atomic leaf.
func (v Value) IsLeaf() bool { return v.Regions == nil }

// Matches reports whether every dot-separated segment of path appears on
// the configuration branch in order (spec §4.2).
func (v Value) Matches(path string) bool {
	segs := splitPath(path)
	return matches(v, segs)
}

func matches(v Value, segs []string) bool {
	if len(segs) == 0 {
		return true
	}
	if v.IsLeaf() {
		return v.Leaf == segs[0] && len(segs) == 1
	}
	child, ok := v.Regions[segs[0]]
	if !ok {
		return false
	}
	return matches(child, segs[1:])
}

// ToStrings enumerates, depth-first, every ancestor path present in the
// configuration (spec §4.2/§8 property 3): atomic "one" -> ["one"];
// {two:{deep:"foo"}} -> ["two", "two.deep", "two.deep.foo"].
func (v Value) ToStrings() []string {
	var out []string
	toStrings(v, "", &out)
	return out
}

func toStrings(v Value, prefix string, out *[]string) {
	if v.IsLeaf() {
		*out = append(*out, join(prefix, v.Leaf))
		return
	}
	keys := make([]string, 0, len(v.Regions))
	for k := range v.Regions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := join(prefix, k)
		*out = append(*out, path)
		toStrings(v.Regions[k], path, out)
	}
}

// Equals reports structural recursive equality (spec §4.2).
func Equals(a, b Value) bool {
	if a.IsLeaf() != b.IsLeaf() {
		return false
	}
	if a.IsLeaf() {
		return a.Leaf == b.Leaf
	}
	if len(a.Regions) != len(b.Regions) {
		return false
	}
	for k, av := range a.Regions {
		bv, ok := b.Regions[k]
		if !ok || !Equals(av, bv) {
			return false
		}
	}
	return true
}

func join(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}
