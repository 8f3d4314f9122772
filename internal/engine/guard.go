package engine

import (
	"github.com/pkg/errors"

	"github.com/quiescent/statechart/internal/chart"
)

// ErrGuardPanic wraps a recovered panic from an inline guard function.
var ErrGuardPanic = errors.New("engine: guard panicked")

// GuardEvaluator resolves a GuardRef against the current context and event
// during transition selection (spec §4.3 step 2). The interpreter wires in
// an evaluator backed by the action package's registry so that string-named
// guards (as well as inline funcs) can be used; the engine package itself
// stays agnostic of how a named guard is looked up.
type GuardEvaluator interface {
	EvalGuard(ref chart.GuardRef, ctx chart.Context, event chart.Event) (bool, error)
}

// DefaultGuardEvaluator evaluates inline func(Context, Event) bool guards
// and rejects string-named ones; used when the interpreter has not wired a
// registry-backed evaluator.
func DefaultGuardEvaluator() GuardEvaluator { return defaultGuardEvaluator{} }

type defaultGuardEvaluator struct{}

func (defaultGuardEvaluator) EvalGuard(ref chart.GuardRef, ctx chart.Context, event chart.Event) (ok bool, err error) {
	if ref == nil {
		return true, nil
	}
	fn, isFunc := ref.(func(chart.Context, chart.Event) bool)
	if !isFunc {
		return false, errors.Errorf("engine: guard %v is not an inline func; use an evaluator with a registry", ref)
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = errors.Wrapf(ErrGuardPanic, "%v", r)
		}
	}()
	return fn(ctx, event), nil
}
