package action

import (
	"log"
	"sync"

	"github.com/quiescent/statechart/internal/chart"
)

func stdLogf(format string, args ...any) {
	log.Printf(format, args...)
}

// Registry resolves string-named guards and actions, the "opaque | invoke
// a registered function" half of spec §4.4. Safe for concurrent use: a
// chart's guard/action names are typically registered once at machine
// construction, but Register may be called after Start for plugins loaded
// later.
type Registry struct {
	mu     sync.RWMutex
	guards map[string]func(chart.Context, chart.Event) bool
	acts   map[string]func(chart.Context, chart.Event)
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		guards: make(map[string]func(chart.Context, chart.Event) bool),
		acts:   make(map[string]func(chart.Context, chart.Event)),
	}
}

// RegisterGuard names a guard function for use as a string GuardRef.
func (r *Registry) RegisterGuard(name string, fn func(chart.Context, chart.Event) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards[name] = fn
}

// RegisterAction names an action function for use as a string ActionRef.
func (r *Registry) RegisterAction(name string, fn func(chart.Context, chart.Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acts[name] = fn
}

// Guard looks up a registered guard by name.
func (r *Registry) Guard(name string) (func(chart.Context, chart.Event) bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.guards[name]
	return fn, ok
}

// Action looks up a registered action by name.
func (r *Registry) Action(name string) (func(chart.Context, chart.Event), bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.acts[name]
	return fn, ok
}

// RegistryEvaluator resolves string ActionRefs against a Registry before
// falling back to DefaultEvaluator for inline funcs and built-ins.
type RegistryEvaluator struct {
	Registry *Registry
	fallback Evaluator
}

// NewRegistryEvaluator builds a RegistryEvaluator backed by reg.
func NewRegistryEvaluator(reg *Registry) *RegistryEvaluator {
	return &RegistryEvaluator{Registry: reg, fallback: DefaultEvaluator{}}
}

// Run implements Evaluator.
func (e *RegistryEvaluator) Run(ctx chart.Context, ref chart.ActionRef, event chart.Event, host Host) error {
	if name, ok := ref.(string); ok {
		if fn, ok := e.Registry.Action(name); ok {
			fn(ctx, event)
			return nil
		}
	}
	return e.fallback.Run(ctx, ref, event, host)
}

// RegistryGuardEvaluator implements engine.GuardEvaluator by resolving
// string-named guards against a Registry, falling back to inline funcs.
type RegistryGuardEvaluator struct {
	Registry *Registry
}

// NewRegistryGuardEvaluator builds a RegistryGuardEvaluator backed by reg.
func NewRegistryGuardEvaluator(reg *Registry) *RegistryGuardEvaluator {
	return &RegistryGuardEvaluator{Registry: reg}
}

// EvalGuard implements engine.GuardEvaluator.
func (e *RegistryGuardEvaluator) EvalGuard(ref chart.GuardRef, ctx chart.Context, event chart.Event) (bool, error) {
	if ref == nil {
		return true, nil
	}
	if name, ok := ref.(string); ok {
		fn, ok := e.Registry.Guard(name)
		if !ok {
			return false, nil
		}
		return evalSafely(fn, ctx, event)
	}
	fn, ok := ref.(func(chart.Context, chart.Event) bool)
	if !ok {
		return false, nil
	}
	return evalSafely(fn, ctx, event)
}

func evalSafely(fn func(chart.Context, chart.Event) bool, ctx chart.Context, event chart.Event) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return fn(ctx, event), nil
}
