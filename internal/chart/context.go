package chart

// Context is the opaque, copy-on-assign extended state owned by a machine
// instance (spec §3). Values are read with Get and updated with With, which
// returns a new Context so that prior State snapshots referencing the old
// Context remain valid (spec §5).
type Context struct {
	data map[string]any
}

// NewContext builds a Context from an initial value set. A nil or empty map
// is equivalent to an empty context.
func NewContext(initial map[string]any) Context {
	c := Context{data: make(map[string]any, len(initial))}
	for k, v := range initial {
		c.data[k] = v
	}
	return c
}

// Get returns the value stored under key, and whether it was present.
func (c Context) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// With returns a new Context with key set to value, leaving the receiver
// untouched.
func (c Context) With(key string, value any) Context {
	next := make(map[string]any, len(c.data)+1)
	for k, v := range c.data {
		next[k] = v
	}
	next[key] = value
	return Context{data: next}
}

// WithAll returns a new Context with every key in updates applied over the
// receiver, in map iteration order (assign payloads are plain key/value
// sets so order across keys is immaterial; order across successive assign
// actions in the same transition is preserved by the engine applying them
// one at a time).
func (c Context) WithAll(updates map[string]any) Context {
	next := make(map[string]any, len(c.data)+len(updates))
	for k, v := range c.data {
		next[k] = v
	}
	for k, v := range updates {
		next[k] = v
	}
	return Context{data: next}
}

// Snapshot returns a defensive copy of the context's data, for serialization.
func (c Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// Equal reports whether two contexts hold identical key sets and values
// under shallow (==) comparison. Non-comparable values compare unequal.
func (c Context) Equal(other Context) bool {
	if len(c.data) != len(other.data) {
		return false
	}
	for k, v := range c.data {
		ov, ok := other.data[k]
		if !ok {
			return false
		}
		if !shallowEqual(v, ov) {
			return false
		}
	}
	return true
}

func shallowEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = a == nil && b == nil
		}
	}()
	return a == b
}
