// Package interpreter runs a chart's macrostep/microstep event loop: it
// owns the single goroutine that feeds events through internal/engine's
// pure Transition function, executes the resulting actions through
// internal/action, arms/cancels delayed-send timers, and notifies
// listeners of committed states (spec §4.5).
package interpreter

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quiescent/statechart/internal/action"
	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/engine"
)

// Sentinel errors (spec §7).
var (
	ErrStopped   = errors.New("interpreter: stopped")
	ErrQueueFull = errors.New("interpreter: event queue full (backpressure)")
)

// ActorHandle is the minimal surface an actor needs to receive routed
// events and be torn down. It is declared here, not in the actor package,
// so actor can depend on interpreter (to spawn child interpreters for
// machine-source actors) without an import cycle back into interpreter.
type ActorHandle interface {
	// Dispatch enqueues evt for the actor's own processing. For a child
	// Interpreter this is its external queue; for promise/callback/
	// observable actors it is whatever the actor's adapter does with
	// inbound sends.
	Dispatch(chart.SCXMLEvent)
	Stop()
}

// Listener is notified with every committed State (spec's "notify
// listeners of currentState").
type Listener func(engine.State)

// ErrorHandler receives interpreter-level errors: engine errors (guard
// panics among them) and action failures (spec §7).
type ErrorHandler func(error)

// Unsubscribe detaches a previously registered Listener or ErrorHandler.
type Unsubscribe func()

// Persister saves/loads a State snapshot for process-local resume
// (spec §2A/§6A; NON-GOALS: not a cross-restart history mechanism).
type Persister interface {
	Save(machineID string, state engine.State) error
	Load(machineID string) (engine.State, error)
}

// EventPublisher fans out committed states to an external sink.
type EventPublisher interface {
	Publish(state engine.State) error
	Close() error
}

// Visualizer renders the chart and/or current configuration.
type Visualizer interface {
	ExportDOT(c *chart.Chart, current engine.State) string
	ExportJSON(c *chart.Chart) ([]byte, error)
}

// Registry tracks named, versioned State snapshots across machine
// instances (spec §2A; mirrors the teacher's own optional Registry hook).
type Registry interface {
	Register(machineID string, state engine.State) error
	Latest(machineID string) (engine.State, bool)
}

// Option configures an Interpreter via the functional options pattern.
type Option func(*Interpreter)

type actorEntry struct {
	handle ActorHandle
	owner  string // absolute path of the state whose entry spawned it
}

// Interpreter drives one chart's event loop on a single goroutine
// (spec §4.5/§5). Send, Stop, Subscribe, OnError and actor callbacks are
// safe to call from any goroutine — every one of them only ever enqueues
// or registers a callback; none touches State or Context directly.
type Interpreter struct {
	id    string
	chart *chart.Chart

	guards    engine.GuardEvaluator
	evaluator action.Evaluator
	logger    *log.Logger

	persister  Persister
	publisher  EventPublisher
	visualizer Visualizer
	registry   Registry

	queueSize int
	external     chan chart.SCXMLEvent
	done         chan struct{}
	started      chan struct{}
	stopOnce     sync.Once
	startOnce    sync.Once
	shutdownOnce sync.Once

	mu    sync.RWMutex
	state engine.State

	// internal is the raised-event queue; only the loop goroutine (and
	// Start, before the loop goroutine exists) ever touches it.
	internal []chart.SCXMLEvent

	afterNodes []*chart.StateNode

	timersMu sync.Mutex
	timers   map[string]*time.Timer
	armed    map[string]*chart.StateNode

	listenersMu sync.Mutex
	listeners   []Listener
	errHandlers []ErrorHandler

	actorsMu sync.Mutex
	actors   map[string]actorEntry

	parent ActorHandle
}

// New builds an Interpreter for c. Pluggable components default to the
// pure/stdlib stand-ins (nil = defaults, matching the teacher's own
// "pluggable components: nil = defaults/stubs" convention) until
// overridden by an Option.
func New(c *chart.Chart, opts ...Option) *Interpreter {
	ip := &Interpreter{
		id:         c.ID,
		chart:      c,
		guards:     engine.DefaultGuardEvaluator(),
		evaluator:  action.DefaultEvaluator{},
		logger:     log.Default(),
		queueSize:  1000,
		done:       make(chan struct{}),
		started:    make(chan struct{}),
		timers:     make(map[string]*time.Timer),
		armed:      make(map[string]*chart.StateNode),
		actors:     make(map[string]actorEntry),
		afterNodes: collectAfterNodes(c.Root),
	}
	for _, opt := range opts {
		opt(ip)
	}
	if ip.external == nil {
		ip.external = make(chan chart.SCXMLEvent, ip.queueSize)
	}
	return ip
}

func collectAfterNodes(n *chart.StateNode) []*chart.StateNode {
	var out []*chart.StateNode
	if len(n.After) > 0 {
		out = append(out, n)
	}
	for _, child := range n.Children {
		out = append(out, collectAfterNodes(child)...)
	}
	return out
}

// ID returns the interpreter's machine id (the chart's id, spec §6).
func (ip *Interpreter) ID() string { return ip.id }

// Chart returns the chart this interpreter runs.
func (ip *Interpreter) Chart() *chart.Chart { return ip.chart }

// Snapshot returns the most recently committed State.
func (ip *Interpreter) Snapshot() engine.State {
	ip.mu.RLock()
	defer ip.mu.RUnlock()
	return ip.state
}

// Start computes and enters the chart's initial configuration, runs it to
// stability (eventless transitions), and launches the event loop. Safe to
// call more than once; only the first call has effect.
func (ip *Interpreter) Start() engine.State {
	ip.startOnce.Do(func() {
		initial, err := engine.InitialState(ip.chart)
		if err != nil {
			ip.emitError(errors.Wrap(err, "interpreter: compute initial state"))
			return
		}
		ip.mu.Lock()
		ip.state = initial
		ip.mu.Unlock()

		ip.runActions(initial.Actions, initial.SCXMLEvent)
		ip.rearmTimers(initial)
		ip.notify(initial)
		ip.stabilize()

		close(ip.started)
		go ip.loop()
	})
	return ip.Snapshot()
}

// Send enqueues e as an external event, to be processed by the next
// macrostep. Safe from any goroutine (spec §5).
func (ip *Interpreter) Send(e chart.Event) error {
	return ip.enqueueExternal(chart.ToSCXML(e, chart.KindExternal))
}

func (ip *Interpreter) enqueueExternal(evt chart.SCXMLEvent) error {
	select {
	case <-ip.done:
		return ErrStopped
	default:
	}
	select {
	case ip.external <- evt:
		return nil
	default:
		return errors.Wrapf(ErrQueueFull, "event %q", evt.Name)
	}
}

// Dispatch implements ActorHandle: it is how a parent interpreter or
// sibling actor routes an event to this one without blocking its own
// goroutine.
func (ip *Interpreter) Dispatch(evt chart.SCXMLEvent) {
	go func() {
		select {
		case ip.external <- evt:
		case <-ip.done:
		}
	}()
}

// Subscribe registers l to run after every committed State.
func (ip *Interpreter) Subscribe(l Listener) Unsubscribe {
	ip.listenersMu.Lock()
	defer ip.listenersMu.Unlock()
	ip.listeners = append(ip.listeners, l)
	idx := len(ip.listeners) - 1
	return func() {
		ip.listenersMu.Lock()
		defer ip.listenersMu.Unlock()
		if idx < len(ip.listeners) {
			ip.listeners[idx] = nil
		}
	}
}

// OnError registers h to run on interpreter-level errors (spec §7).
func (ip *Interpreter) OnError(h ErrorHandler) Unsubscribe {
	ip.listenersMu.Lock()
	defer ip.listenersMu.Unlock()
	ip.errHandlers = append(ip.errHandlers, h)
	idx := len(ip.errHandlers) - 1
	return func() {
		ip.listenersMu.Lock()
		defer ip.listenersMu.Unlock()
		if idx < len(ip.errHandlers) {
			ip.errHandlers[idx] = nil
		}
	}
}

// RegisterActor attaches handle under id, owned by the state at ownerAbs:
// handle is stopped automatically once ownerAbs leaves the configuration
// (lifecycle rule (a), spec §4.6).
func (ip *Interpreter) RegisterActor(id, ownerAbs string, handle ActorHandle) {
	ip.actorsMu.Lock()
	defer ip.actorsMu.Unlock()
	ip.actors[id] = actorEntry{handle: handle, owner: ownerAbs}
}

// Stop halts the event loop: pending external events are dropped, exit
// actions run bottom-up for the entire current configuration, all owned
// actors are stopped and all pending timers are canceled (spec §5). Safe
// to call more than once.
func (ip *Interpreter) Stop() {
	ip.stopOnce.Do(func() {
		close(ip.done)
		select {
		case <-ip.started:
			// the loop goroutine observes ip.done and runs shutdown itself,
			// after finishing whatever macrostep is in flight.
		default:
			// Start was never called: nothing to drain, run synchronously.
			ip.shutdown()
		}
	})
}

// shutdown runs the Stop sequence exactly once, whichever of Stop's caller
// or the loop goroutine reaches it first.
func (ip *Interpreter) shutdown() {
	ip.shutdownOnce.Do(func() {
		st := ip.Snapshot()
		ip.runActions(engine.ShutdownActions(ip.chart, st), chart.NullEvent())

		ip.timersMu.Lock()
		for id, t := range ip.timers {
			t.Stop()
			delete(ip.timers, id)
		}
		ip.armed = map[string]*chart.StateNode{}
		ip.timersMu.Unlock()

		ip.actorsMu.Lock()
		for _, ent := range ip.actors {
			ent.handle.Stop()
		}
		ip.actors = map[string]actorEntry{}
		ip.actorsMu.Unlock()
	})
}

func (ip *Interpreter) loop() {
	for {
		select {
		case evt := <-ip.external:
			ip.runMacrostep(evt)
		case <-ip.done:
			ip.shutdown()
			return
		}
	}
}

// runMacrostep processes one external event to completion: the triggering
// microstep, then every raised-internal-event microstep, then eventless
// microsteps, until the internal queue is empty and no eventless
// transition fires (spec §4.5/§5).
func (ip *Interpreter) runMacrostep(evt chart.SCXMLEvent) {
	ip.applyTransition(evt)
	ip.stabilize()
}

func (ip *Interpreter) stabilize() {
	for {
		if len(ip.internal) > 0 {
			evt := ip.internal[0]
			ip.internal = ip.internal[1:]
			ip.applyTransition(evt)
			continue
		}
		cur := ip.Snapshot()
		probe, err := engine.Transition(ip.chart, cur, chart.NullEvent(), ip.guards)
		if err != nil {
			ip.emitError(err)
			return
		}
		if !probe.Changed {
			return
		}
		ip.commit(probe)
	}
}

func (ip *Interpreter) applyTransition(evt chart.SCXMLEvent) {
	cur := ip.Snapshot()
	next, err := engine.Transition(ip.chart, cur, evt, ip.guards)
	if err != nil {
		ip.emitError(err)
		return
	}
	ip.commit(next)
}

func (ip *Interpreter) commit(next engine.State) {
	prev := ip.Snapshot()

	ip.mu.Lock()
	ip.state = next
	ip.mu.Unlock()

	ip.runActions(next.Actions, next.SCXMLEvent)
	ip.rearmTimers(next)
	ip.reapActors(prev, next)
	ip.notify(next)

	if next.Done && ip.parent != nil {
		data := chart.NewEvent(chart.DoneInvokeEvent(ip.id), next.Context.Snapshot())
		ip.parent.Dispatch(chart.SCXMLEvent{
			Name:     chart.DoneInvokeEvent(ip.id),
			Type:     chart.KindExternal,
			InvokeID: ip.id,
			Data:     data,
		})
	}
}

func (ip *Interpreter) reapActors(prev, next engine.State) {
	ip.actorsMu.Lock()
	defer ip.actorsMu.Unlock()
	for id, ent := range ip.actors {
		if prev.Matches(ent.owner) && !next.Matches(ent.owner) {
			ent.handle.Stop()
			delete(ip.actors, id)
		}
	}
}

func (ip *Interpreter) runActions(actions []chart.ActionRef, evt chart.SCXMLEvent) {
	for _, ref := range actions {
		if err := ip.runOne(ref, evt); err != nil {
			ip.emitError(err)
			ip.internal = append(ip.internal, chart.SCXMLEvent{
				Name: chart.EventErrorExec,
				Type: chart.KindInternal,
				Data: chart.NewEvent(chart.EventErrorExec, map[string]any{"error": err.Error()}),
			})
		}
	}
}

func (ip *Interpreter) runOne(ref chart.ActionRef, evt chart.SCXMLEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("interpreter: action panicked: %v", r)
		}
	}()
	ctx := ip.Snapshot().Context
	return ip.evaluator.Run(ctx, ref, evt.Data, ip)
}

func (ip *Interpreter) rearmTimers(state engine.State) {
	ip.timersMu.Lock()
	defer ip.timersMu.Unlock()

	for id, node := range ip.armed {
		if !state.Matches(node.Abs) {
			if t, ok := ip.timers[id]; ok {
				t.Stop()
				delete(ip.timers, id)
			}
			delete(ip.armed, id)
		}
	}
	for _, node := range ip.afterNodes {
		if !state.Matches(node.Abs) {
			continue
		}
		for _, dt := range node.After {
			id := dt.Transition.Event
			if _, ok := ip.armed[id]; ok {
				continue
			}
			ip.armed[id] = node
			ip.timers[id] = time.AfterFunc(time.Duration(dt.DelayMS)*time.Millisecond, ip.fireAfter(dt.Transition.Event))
		}
	}
}

func (ip *Interpreter) fireAfter(eventName string) func() {
	return func() {
		evt := chart.SCXMLEvent{Name: eventName, Type: chart.KindPlatform, Data: chart.NewEvent(eventName, nil)}
		select {
		case ip.external <- evt:
		case <-ip.done:
		}
	}
}

func (ip *Interpreter) notify(s engine.State) {
	ip.listenersMu.Lock()
	ls := append([]Listener(nil), ip.listeners...)
	ip.listenersMu.Unlock()
	for _, l := range ls {
		if l != nil {
			l(s)
		}
	}

	if ip.publisher != nil {
		go func() {
			if err := ip.publisher.Publish(s); err != nil {
				ip.logger.Printf("interpreter: publish: %v", err)
			}
		}()
	}
	if ip.persister != nil {
		go func() {
			if err := ip.persister.Save(ip.id, s); err != nil {
				ip.logger.Printf("interpreter: persist: %v", err)
			}
		}()
	}
	if ip.registry != nil {
		go func() {
			if err := ip.registry.Register(ip.id, s); err != nil {
				ip.logger.Printf("interpreter: registry: %v", err)
			}
		}()
	}
}

func (ip *Interpreter) emitError(err error) {
	ip.listenersMu.Lock()
	hs := append([]ErrorHandler(nil), ip.errHandlers...)
	ip.listenersMu.Unlock()
	if len(hs) == 0 {
		ip.logger.Printf("interpreter: %v", err)
		return
	}
	for _, h := range hs {
		if h != nil {
			h(err)
		}
	}
}

// Visualize renders the chart via the configured Visualizer.
func (ip *Interpreter) Visualize() string {
	if ip.visualizer == nil {
		return "ERROR: no visualizer configured; use interpreter.WithVisualizer"
	}
	return ip.visualizer.ExportDOT(ip.chart, ip.Snapshot())
}

// action.Host implementation. EnqueueInternal/SendToActor/SendToParent are
// only ever called from the loop goroutine (they run inside action
// evaluation, which only happens there), so they touch ip.internal
// directly without locking. EnqueueExternal and EnqueueDelayed may fire
// from a timer goroutine, so they go through the channel.

func (ip *Interpreter) EnqueueInternal(evt chart.SCXMLEvent) {
	ip.internal = append(ip.internal, evt)
}

func (ip *Interpreter) EnqueueExternal(evt chart.SCXMLEvent) {
	ip.Dispatch(evt)
}

func (ip *Interpreter) EnqueueDelayed(id string, delay time.Duration, evt chart.SCXMLEvent) {
	ip.timersMu.Lock()
	defer ip.timersMu.Unlock()
	if t, ok := ip.timers[id]; ok {
		t.Stop()
	}
	ip.timers[id] = time.AfterFunc(delay, func() {
		select {
		case ip.external <- evt:
		case <-ip.done:
		}
	})
}

func (ip *Interpreter) CancelDelayed(id string) {
	ip.timersMu.Lock()
	defer ip.timersMu.Unlock()
	if t, ok := ip.timers[id]; ok {
		t.Stop()
		delete(ip.timers, id)
	}
}

func (ip *Interpreter) SendToActor(actorID string, evt chart.SCXMLEvent) {
	ip.actorsMu.Lock()
	ent, ok := ip.actors[actorID]
	ip.actorsMu.Unlock()
	if !ok {
		ip.EnqueueInternal(chart.SCXMLEvent{
			Name: chart.EventErrorExec,
			Type: chart.KindInternal,
			Data: chart.NewEvent(chart.EventErrorExec, map[string]any{"error": "unknown actor " + actorID}),
		})
		return
	}
	ent.handle.Dispatch(evt)
}

func (ip *Interpreter) SendToParent(evt chart.SCXMLEvent) {
	if ip.parent == nil {
		ip.EnqueueInternal(chart.SCXMLEvent{
			Name: chart.EventErrorExec,
			Type: chart.KindInternal,
			Data: chart.NewEvent(chart.EventErrorExec, map[string]any{"error": "interpreter has no parent"}),
		})
		return
	}
	ip.parent.Dispatch(evt)
}

func (ip *Interpreter) Log(label string, value any) {
	ip.logger.Printf("statechart: %s = %v", label, value)
}
