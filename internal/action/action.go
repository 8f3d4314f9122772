// Package action evaluates the chart's tagged action variants against a
// Host supplied by the interpreter. Built-ins are dispatched by a type
// switch over chart.BuiltinAction.Kind rather than through virtual methods,
// so the closed set of kinds stays exhaustively checkable in one place
// (spec §4.4).
package action

import (
	"time"

	"github.com/pkg/errors"

	"github.com/quiescent/statechart/internal/chart"
)

// ErrUnregistered is returned when a string-named action or guard has no
// matching registry entry.
var ErrUnregistered = errors.New("action: unregistered reference")

// Host is the interpreter-side sink for action side effects. Evaluator
// itself never touches a queue, a clock or an actor table directly.
type Host interface {
	EnqueueInternal(evt chart.SCXMLEvent)
	EnqueueExternal(evt chart.SCXMLEvent)
	EnqueueDelayed(id string, delay time.Duration, evt chart.SCXMLEvent)
	CancelDelayed(id string)
	SendToActor(actorID string, evt chart.SCXMLEvent)
	SendToParent(evt chart.SCXMLEvent)
	Log(label string, value any)
}

// Evaluator runs a single ActionRef.
type Evaluator interface {
	Run(ctx chart.Context, ref chart.ActionRef, event chart.Event, host Host) error
}

// DefaultEvaluator dispatches chart.BuiltinAction by kind, runs inline
// func(Context, Event) actions directly, and fails closed on unregistered
// string references (spec §4.4; mirrors the teacher's DefaultActionRunner
// type switch).
type DefaultEvaluator struct{}

// Run implements Evaluator.
func (DefaultEvaluator) Run(ctx chart.Context, ref chart.ActionRef, event chart.Event, host Host) error {
	switch a := ref.(type) {
	case nil:
		return nil
	case chart.BuiltinAction:
		return runBuiltin(ctx, a, event, host)
	case func(chart.Context, chart.Event):
		a(ctx, event)
		return nil
	case string:
		return errors.Wrapf(ErrUnregistered, "action %q", a)
	default:
		return errors.Errorf("action: unsupported action type %T", ref)
	}
}

func runBuiltin(ctx chart.Context, a chart.BuiltinAction, event chart.Event, host Host) error {
	switch a.Kind {
	case chart.KindAssign:
		// Folded into Context by the engine before actions run; nothing
		// left to do here.
		return nil

	case chart.KindRaise:
		data := chart.Event{}
		if a.DataFn != nil {
			data = chart.NewEvent(a.EventType, a.DataFn(ctx, event))
		}
		host.EnqueueInternal(chart.SCXMLEvent{Name: a.EventType, Type: chart.KindInternal, Data: data})
		return nil

	case chart.KindSend:
		data := chart.NewEvent(a.EventType, nil)
		if a.DataFn != nil {
			data = chart.NewEvent(a.EventType, a.DataFn(ctx, event))
		}
		evt := chart.SCXMLEvent{Name: a.EventType, Type: chart.KindExternal, SendID: a.ID, Data: data}
		switch {
		case a.Delay > 0:
			host.EnqueueDelayed(a.ID, a.Delay, evt)
		case a.To != "":
			host.SendToActor(a.To, evt)
		default:
			host.EnqueueExternal(evt)
		}
		return nil

	case chart.KindSendParent:
		data := chart.NewEvent(a.EventType, nil)
		if a.DataFn != nil {
			data = chart.NewEvent(a.EventType, a.DataFn(ctx, event))
		}
		host.SendToParent(chart.SCXMLEvent{Name: a.EventType, Type: chart.KindExternal, SendID: a.ID, Data: data})
		return nil

	case chart.KindCancel:
		host.CancelDelayed(a.CancelID)
		return nil

	case chart.KindLog:
		var value any
		if a.Expr != nil {
			value = a.Expr(ctx, event)
		}
		host.Log(a.Label, value)
		return nil

	case chart.KindStart, chart.KindStop:
		// Activity bookkeeping is carried on engine.State directly; the
		// evaluator has nothing further to run.
		return nil

	case chart.KindOpaque:
		if a.Fn == nil {
			return errors.New("action: opaque action has no function")
		}
		a.Fn(ctx, event)
		return nil

	default:
		return errors.Errorf("action: unknown builtin kind %v", a.Kind)
	}
}

// LoggingEvaluator wraps an Evaluator and logs around each action, matching
// the teacher's LoggingActionRunner decorator.
type LoggingEvaluator struct {
	inner  Evaluator
	logger func(format string, args ...any)
}

// NewLoggingEvaluator wraps inner, using logf to emit before/after lines
// (pass log.Printf, or nil to use the standard logger).
func NewLoggingEvaluator(inner Evaluator, logf func(format string, args ...any)) *LoggingEvaluator {
	if logf == nil {
		logf = stdLogf
	}
	return &LoggingEvaluator{inner: inner, logger: logf}
}

// Run implements Evaluator.
func (l *LoggingEvaluator) Run(ctx chart.Context, ref chart.ActionRef, event chart.Event, host Host) error {
	l.logger("action: running %v for event %q", ref, event.Type)
	start := time.Now()
	err := l.inner.Run(ctx, ref, event, host)
	l.logger("action: %v completed in %v: %v", ref, time.Since(start), err)
	return err
}
