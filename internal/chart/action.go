package chart

import "time"

// ActionKind tags the closed set of built-in action variants (spec §4.4,
// Design Notes: "use a tagged variant ... do not rely on virtual dispatch
// through opaque callables for built-ins").
type ActionKind int

const (
	KindAssign ActionKind = iota
	KindRaise
	KindSend
	KindSendParent
	KindCancel
	KindLog
	KindStart
	KindStop
	KindOpaque
)

func (k ActionKind) String() string {
	switch k {
	case KindAssign:
		return "assign"
	case KindRaise:
		return "raise"
	case KindSend:
		return "send"
	case KindSendParent:
		return "sendParent"
	case KindCancel:
		return "cancel"
	case KindLog:
		return "log"
	case KindStart:
		return "start"
	case KindStop:
		return "stop"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// ActionRef references an action attached to a transition or to a state's
// entry/exit list. It is either a BuiltinAction (produced by the
// constructors below), a raw func(Context, Event) (an inline opaque
// action), or a string naming an opaque action registered with the
// action.Evaluator (spec §4.4's "opaque | Invoke user-provided function").
type ActionRef any

// GuardRef references a transition guard: either a func(Context, Event)
// bool, or a string naming a guard registered with the evaluator.
type GuardRef any

// BuiltinAction is the concrete representation of a built-in action kind.
// Action constructors (Assign, Raise, Send, ...) all return a BuiltinAction
// wrapped as an ActionRef.
type BuiltinAction struct {
	Kind ActionKind

	// Assign: AssignFn computes the context updates to merge.
	AssignFn func(Context, Event) map[string]any

	// Raise, Send, SendParent: EventType names the event to enqueue;
	// DataFn computes its payload.
	EventType string
	DataFn    func(Context, Event) map[string]any

	// Send: To names the destination actor id ("" = self). Delay schedules
	// the send via the host clock. ID names the pending send for Cancel.
	To    string
	Delay time.Duration
	ID    string

	// Cancel: CancelID names the pending send to evict.
	CancelID string

	// Log: Label is a static tag; Expr optionally computes a value to log.
	Label string
	Expr  func(Context, Event) any

	// Start, Stop: Activity names the activity to toggle.
	Activity string

	// Opaque (when constructed via Opaque(fn)): Fn runs with (ctx, event).
	Fn func(Context, Event)
}

// Assign folds updates computed by fn into the context. Already folded by
// the engine during step 7; a no-op at action-evaluation time (spec §4.4).
func Assign(fn func(Context, Event) map[string]any) ActionRef {
	return BuiltinAction{Kind: KindAssign, AssignFn: fn}
}

// Raise enqueues an internal event, drained before external events
// (spec §4.4/§4.5).
func Raise(eventType string, data func(Context, Event) map[string]any) ActionRef {
	return BuiltinAction{Kind: KindRaise, EventType: eventType, DataFn: data}
}

// SendOption configures a Send action.
type SendOption func(*BuiltinAction)

// To sets the destination actor id for a Send.
func To(actorID string) SendOption { return func(b *BuiltinAction) { b.To = actorID } }

// After delays delivery of a Send by d.
func After(d time.Duration) SendOption { return func(b *BuiltinAction) { b.Delay = d } }

// WithID assigns a cancelable id to a Send.
func WithID(id string) SendOption { return func(b *BuiltinAction) { b.ID = id } }

// WithData attaches a payload builder to a Send.
func WithData(fn func(Context, Event) map[string]any) SendOption {
	return func(b *BuiltinAction) { b.DataFn = fn }
}

// Send enqueues eventType onto a target: self, an actor (To), or a
// delayed (After) external event, optionally cancelable (WithID).
func Send(eventType string, opts ...SendOption) ActionRef {
	b := BuiltinAction{Kind: KindSend, EventType: eventType}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// SendParent is Send with the target fixed to the owning interpreter's
// parent.
func SendParent(eventType string, opts ...SendOption) ActionRef {
	b := BuiltinAction{Kind: KindSendParent, EventType: eventType}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Cancel removes a pending delayed Send by id, idempotently.
func Cancel(id string) ActionRef {
	return BuiltinAction{Kind: KindCancel, CancelID: id}
}

// Log dispatches label and the optional expr's value to the interpreter's
// observer.
func Log(label string, expr func(Context, Event) any) ActionRef {
	return BuiltinAction{Kind: KindLog, Label: label, Expr: expr}
}

// StartActivity starts a named activity, tracked per-State.
func StartActivity(id string) ActionRef {
	return BuiltinAction{Kind: KindStart, Activity: id}
}

// StopActivity stops a named activity.
func StopActivity(id string) ActionRef {
	return BuiltinAction{Kind: KindStop, Activity: id}
}

// Opaque wraps an arbitrary user action function.
func Opaque(fn func(Context, Event)) ActionRef {
	return BuiltinAction{Kind: KindOpaque, Fn: fn}
}
