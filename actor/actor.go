// Package actor implements spawn/stop for the four actor source kinds
// named in spec §4.6: machine, promise, callback and observable, plus the
// null actor returned when spawn is called outside a live interpreter.
package actor

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/engine"
	"github.com/quiescent/statechart/internal/statevalue"
	"github.com/quiescent/statechart/interpreter"
)

// Actor is an addressable message recipient with its own lifecycle,
// spawned from a machine, promise, callback or observable source
// (spec §3 "Actor", §4.6).
type Actor interface {
	interpreter.ActorHandle // Dispatch(SCXMLEvent), Stop()
	ID() string
	Send(chart.Event) error
	Snapshot() engine.State
}

// Options configures a Spawn call.
type Options struct {
	ID          string
	Sync        bool
	AutoForward bool
}

// Option mutates Options via the functional options pattern.
type Option func(*Options)

// WithID assigns an explicit actor id (default: a generated one).
func WithID(id string) Option { return func(o *Options) { o.ID = id } }

// WithSync makes a Machine-source actor emit xstate.update to its owner on
// every transition, so the owner's own macrostep re-runs with the child's
// progress (spec §4.6 "Machine").
func WithSync(sync bool) Option { return func(o *Options) { o.Sync = sync } }

// WithAutoForward forwards every external event the owner processes to
// this Machine-source actor as well, after the owner's own commit
// (spec §4.6 "Machine").
func WithAutoForward(af bool) Option { return func(o *Options) { o.AutoForward = af } }

var idCounter int64

func resolve(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.ID == "" {
		o.ID = "actor-" + strconv.FormatInt(atomic.AddInt64(&idCounter, 1), 10)
	}
	return o
}

// NullActor is returned by Spawn when no live owner interpreter is
// supplied: a stub whose Send/Dispatch are no-ops, holding the underlying
// source for later activation (spec §4.6, ErrorHandling's
// "ActorSpawnFailure: returns null actor").
type NullActor struct {
	id     string
	source any
}

// ID implements Actor.
func (n *NullActor) ID() string { return n.id }

// Send implements Actor: a no-op.
func (n *NullActor) Send(chart.Event) error { return nil }

// Dispatch implements interpreter.ActorHandle: a no-op.
func (n *NullActor) Dispatch(chart.SCXMLEvent) {}

// Stop implements interpreter.ActorHandle: a no-op.
func (n *NullActor) Stop() {}

// Snapshot implements Actor: an inert "null" state.
func (n *NullActor) Snapshot() engine.State {
	return engine.Inert(statevalue.Atomic("null"), chart.NewContext(nil))
}

// Source returns the spawn source the null actor was built from, so a
// caller that later gets a live owner can spawn it for real.
func (n *NullActor) Source() any { return n.source }

// SpawnMachine creates a child Interpreter for c, registers it with owner
// under ownerStateAbs (so it is stopped when that state exits, spec §4.6
// lifecycle rule (a)), and starts it. owner == nil yields a null actor
// holding c.
func SpawnMachine(owner *interpreter.Interpreter, ownerStateAbs string, c *chart.Chart, opts ...Option) Actor {
	o := resolve(opts)
	if owner == nil {
		return &NullActor{id: o.ID, source: c}
	}

	child := interpreter.New(c, interpreter.WithParent(owner))
	child.Start()

	if o.Sync {
		child.Subscribe(func(engine.State) {
			owner.Dispatch(chart.SCXMLEvent{
				Name: chart.EventUpdate,
				Type: chart.KindInternal,
				Data: chart.NewEvent(chart.EventUpdate, nil),
			})
		})
	}
	if o.AutoForward {
		owner.Subscribe(func(s engine.State) {
			if s.SCXMLEvent.Type == chart.KindExternal {
				child.Dispatch(s.SCXMLEvent)
			}
		})
	}

	owner.RegisterActor(o.ID, ownerStateAbs, child)
	return child
}

// promiseActor backs SpawnPromise (spec §4.6 "Promise").
type promiseActor struct {
	id     string
	parent interpreter.ActorHandle

	mu    sync.Mutex
	state engine.State

	stopOnce sync.Once
	stopped  chan struct{}
}

// SpawnPromise runs fn in its own goroutine and, on settlement, enqueues
// done.invoke.<id> (resolve) or error.execution (reject) on owner. owner
// == nil yields a null actor holding fn; the goroutine still never runs in
// that case.
func SpawnPromise(owner *interpreter.Interpreter, ownerStateAbs string, fn func() (any, error), opts ...Option) Actor {
	o := resolve(opts)
	if owner == nil {
		return &NullActor{id: o.ID, source: fn}
	}

	p := &promiseActor{
		id:      o.ID,
		parent:  owner,
		state:   engine.Inert(statevalue.Atomic("pending"), chart.NewContext(nil)),
		stopped: make(chan struct{}),
	}
	go p.run(fn)
	owner.RegisterActor(o.ID, ownerStateAbs, p)
	return p
}

func (p *promiseActor) run(fn func() (any, error)) {
	value, err := fn()

	p.mu.Lock()
	select {
	case <-p.stopped:
		p.mu.Unlock()
		return
	default:
	}
	if err != nil {
		p.state = engine.Inert(statevalue.Atomic("rejected"), chart.NewContext(map[string]any{"error": err.Error()}))
	} else {
		p.state = engine.Inert(statevalue.Atomic("resolved"), chart.NewContext(map[string]any{"value": value}))
	}
	p.mu.Unlock()

	if err != nil {
		p.parent.Dispatch(chart.SCXMLEvent{
			Name: chart.EventErrorExec,
			Type: chart.KindExternal,
			Data: chart.NewEvent(chart.EventErrorExec, map[string]any{"error": err.Error()}),
		})
		return
	}
	name := chart.DoneInvokeEvent(p.id)
	p.parent.Dispatch(chart.SCXMLEvent{
		Name:     name,
		Type:     chart.KindExternal,
		InvokeID: p.id,
		Data:     chart.NewEvent(name, map[string]any{"value": value}),
	})
}

func (p *promiseActor) ID() string                { return p.id }
func (p *promiseActor) Send(chart.Event) error    { return nil }
func (p *promiseActor) Dispatch(chart.SCXMLEvent) {}
func (p *promiseActor) Stop() {
	p.stopOnce.Do(func() { close(p.stopped) })
}
func (p *promiseActor) Snapshot() engine.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// callbackActor backs SpawnCallback (spec §4.6 "Callback").
type callbackActor struct {
	id     string
	parent interpreter.ActorHandle

	mu       sync.Mutex
	listener func(chart.Event)
	stopped  bool
}

// SpawnCallback invokes fn(send, receive): send routes an event to owner,
// receive registers the handler that Send/Dispatch on this actor calls.
// owner == nil yields a null actor and fn is never invoked.
func SpawnCallback(owner *interpreter.Interpreter, ownerStateAbs string, fn func(send func(chart.Event), receive func(func(chart.Event))), opts ...Option) Actor {
	o := resolve(opts)
	if owner == nil {
		return &NullActor{id: o.ID, source: fn}
	}

	c := &callbackActor{id: o.ID, parent: owner}
	send := func(e chart.Event) {
		owner.Dispatch(chart.ToSCXML(e, chart.KindExternal))
	}
	receive := func(l func(chart.Event)) {
		c.mu.Lock()
		c.listener = l
		c.mu.Unlock()
	}
	fn(send, receive)

	owner.RegisterActor(o.ID, ownerStateAbs, c)
	return c
}

func (c *callbackActor) ID() string { return c.id }
func (c *callbackActor) Send(e chart.Event) error {
	c.mu.Lock()
	l, stopped := c.listener, c.stopped
	c.mu.Unlock()
	if !stopped && l != nil {
		l(e)
	}
	return nil
}
func (c *callbackActor) Dispatch(evt chart.SCXMLEvent) { c.Send(evt.Data) }
func (c *callbackActor) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}
func (c *callbackActor) Snapshot() engine.State {
	return engine.Inert(statevalue.Atomic("active"), chart.NewContext(nil))
}

// observableActor backs SpawnObservable (spec §4.6 "Observable").
type observableActor struct {
	id          string
	unsubscribe func()

	mu      sync.Mutex
	stopped bool
}

// SpawnObservable subscribes to source, enqueueing every emission as an
// external event on owner. owner == nil yields a null actor and source is
// never subscribed.
func SpawnObservable(owner *interpreter.Interpreter, ownerStateAbs string, source func(next func(chart.Event)) func(), opts ...Option) Actor {
	o := resolve(opts)
	if owner == nil {
		return &NullActor{id: o.ID, source: source}
	}

	obs := &observableActor{id: o.ID}
	next := func(e chart.Event) {
		obs.mu.Lock()
		stopped := obs.stopped
		obs.mu.Unlock()
		if stopped {
			return
		}
		owner.Dispatch(chart.ToSCXML(e, chart.KindExternal))
	}
	obs.unsubscribe = source(next)

	owner.RegisterActor(o.ID, ownerStateAbs, obs)
	return obs
}

func (o *observableActor) ID() string                { return o.id }
func (o *observableActor) Send(chart.Event) error    { return nil }
func (o *observableActor) Dispatch(chart.SCXMLEvent) {}
func (o *observableActor) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.mu.Unlock()
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
}
func (o *observableActor) Snapshot() engine.State {
	return engine.Inert(statevalue.Atomic("active"), chart.NewContext(nil))
}
