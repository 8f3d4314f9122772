package interpreter

import (
	"log"

	"github.com/quiescent/statechart/internal/action"
	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/engine"
)

// WithGuardEvaluator configures the Interpreter with a custom
// engine.GuardEvaluator (e.g. action.NewRegistryGuardEvaluator).
func WithGuardEvaluator(g engine.GuardEvaluator) Option {
	return func(ip *Interpreter) { ip.guards = g }
}

// WithActionEvaluator configures the Interpreter with a custom
// action.Evaluator (e.g. action.NewRegistryEvaluator or
// action.NewLoggingEvaluator).
func WithActionEvaluator(e action.Evaluator) Option {
	return func(ip *Interpreter) { ip.evaluator = e }
}

// WithLogger configures the diagnostic logger: it receives interpreter
// errors (guard panics among them) when no OnError handler is registered,
// publish/persist/registry failures, and Log action output. Defaults to
// log.Default().
func WithLogger(l *log.Logger) Option {
	return func(ip *Interpreter) { ip.logger = l }
}

// WithPersister configures the Interpreter with a State snapshot store.
func WithPersister(p Persister) Option {
	return func(ip *Interpreter) { ip.persister = p }
}

// WithPublisher configures the Interpreter with an EventPublisher.
func WithPublisher(p EventPublisher) Option {
	return func(ip *Interpreter) { ip.publisher = p }
}

// WithVisualizer configures the Interpreter with a Visualizer.
func WithVisualizer(v Visualizer) Option {
	return func(ip *Interpreter) { ip.visualizer = v }
}

// WithRegistry configures the Interpreter with a versioned snapshot
// Registry.
func WithRegistry(r Registry) Option {
	return func(ip *Interpreter) { ip.registry = r }
}

// WithQueueSize overrides the external event queue's buffer size
// (default 1000). Must be called before the Interpreter is used.
func WithQueueSize(size int) Option {
	return func(ip *Interpreter) { ip.queueSize = size; ip.external = make(chan chart.SCXMLEvent, size) }
}

// WithParent wires ip as a child actor of parent: SendToParent routes to
// parent, and ip's done.invoke.<id> event is dispatched to parent when ip
// reaches its final state (spec §4.6 "Machine" source).
func WithParent(parent ActorHandle) Option {
	return func(ip *Interpreter) { ip.parent = parent }
}
