// Package chart defines the immutable chart model: state nodes, transitions,
// events and the extended-state context. The chart is parsed once at machine
// construction and never mutated afterward.
package chart

// Event is the caller-facing event shape. Type is the event name; Data
// carries the shorthand payload fields a caller attached to the event.
//
// Construct with NewEvent; once built, an Event should not be mutated —
// callers share Event values across goroutines via the interpreter's
// queues.
type Event struct {
	Type string
	Data map[string]any
}

// NewEvent builds an Event from a type name and optional payload.
func NewEvent(eventType string, data map[string]any) Event {
	return Event{Type: eventType, Data: data}
}

// SCXMLKind enumerates the SCXMLEvent.Type field.
type SCXMLKind string

const (
	KindPlatform SCXMLKind = "platform"
	KindExternal SCXMLKind = "external"
	KindInternal SCXMLKind = "internal"
)

// SCXMLEvent is the envelope carrying routing metadata alongside the user
// Event, per spec §6.
type SCXMLEvent struct {
	Name       string
	Type       SCXMLKind
	SendID     string
	Origin     string
	OriginType string
	InvokeID   string
	Data       Event
}

// Reserved event names generated by the runtime (spec §4.4/§6).
const (
	EventInit          = "xstate.init"
	EventUpdate        = "xstate.update"
	EventErrorExec     = "error.execution"
	EventErrorPlatform = "error.platform"
)

// DoneInvokeEvent builds the "done.invoke.<id>" event name for a settled actor.
func DoneInvokeEvent(actorID string) string { return "done.invoke." + actorID }

// DoneStateEvent builds the "done.state.<id>" event name for a final state.
func DoneStateEvent(stateID string) string { return "done.state." + stateID }

// AfterEvent builds the "xstate.after(<ms>)#<stateID>" delayed-transition event name.
func AfterEvent(ms int64, stateID string) string {
	return "xstate.after(" + itoa(ms) + ")#" + stateID
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ToSCXML wraps a raw caller event into a fresh SCXMLEvent envelope of the
// given kind, named after e.Type. Event carries no envelope of its own, so
// a caller cannot supply a pre-built envelope through it.
func ToSCXML(e Event, kind SCXMLKind) SCXMLEvent {
	return SCXMLEvent{Name: e.Type, Type: kind, Data: e}
}

// InitEvent is the synthetic initial event fed to the engine on interpreter
// start (spec §6: name "xstate.init", type platform).
func InitEvent() SCXMLEvent {
	return SCXMLEvent{Name: EventInit, Type: KindPlatform, Data: NewEvent(EventInit, nil)}
}

// NullEvent represents the absence of an event, used to probe eventless
// ("always") transitions during macrostep stabilization (spec §4.5).
func NullEvent() SCXMLEvent {
	return SCXMLEvent{Name: "", Type: KindInternal, Data: Event{}}
}
