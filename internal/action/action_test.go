package action_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiescent/statechart/internal/action"
	"github.com/quiescent/statechart/internal/chart"
)

type fakeHost struct {
	internal []chart.SCXMLEvent
	external []chart.SCXMLEvent
	delayed  map[string]chart.SCXMLEvent
	canceled []string
	toActor  map[string]chart.SCXMLEvent
	toParent []chart.SCXMLEvent
	logs     []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{delayed: map[string]chart.SCXMLEvent{}, toActor: map[string]chart.SCXMLEvent{}}
}

func (h *fakeHost) EnqueueInternal(evt chart.SCXMLEvent) { h.internal = append(h.internal, evt) }
func (h *fakeHost) EnqueueExternal(evt chart.SCXMLEvent) { h.external = append(h.external, evt) }
func (h *fakeHost) EnqueueDelayed(id string, delay time.Duration, evt chart.SCXMLEvent) {
	h.delayed[id] = evt
}
func (h *fakeHost) CancelDelayed(id string) { h.canceled = append(h.canceled, id) }
func (h *fakeHost) SendToActor(actorID string, evt chart.SCXMLEvent) { h.toActor[actorID] = evt }
func (h *fakeHost) SendToParent(evt chart.SCXMLEvent)                { h.toParent = append(h.toParent, evt) }
func (h *fakeHost) Log(label string, value any)                      { h.logs = append(h.logs, label) }

func TestDefaultEvaluatorRaise(t *testing.T) {
	h := newFakeHost()
	ref := chart.Raise("PING", nil)
	err := action.DefaultEvaluator{}.Run(chart.Context{}, ref, chart.Event{}, h)
	require.NoError(t, err)
	require.Len(t, h.internal, 1)
	assert.Equal(t, "PING", h.internal[0].Name)
	assert.Equal(t, chart.KindInternal, h.internal[0].Type)
}

func TestDefaultEvaluatorSendDefaultsToExternal(t *testing.T) {
	h := newFakeHost()
	ref := chart.Send("PONG")
	err := action.DefaultEvaluator{}.Run(chart.Context{}, ref, chart.Event{}, h)
	require.NoError(t, err)
	require.Len(t, h.external, 1)
	assert.Equal(t, "PONG", h.external[0].Name)
}

func TestDefaultEvaluatorSendToActor(t *testing.T) {
	h := newFakeHost()
	ref := chart.Send("PONG", chart.To("child1"))
	err := action.DefaultEvaluator{}.Run(chart.Context{}, ref, chart.Event{}, h)
	require.NoError(t, err)
	_, ok := h.toActor["child1"]
	assert.True(t, ok)
}

func TestDefaultEvaluatorSendDelayed(t *testing.T) {
	h := newFakeHost()
	ref := chart.Send("PONG", chart.After(10*time.Millisecond), chart.WithID("timer1"))
	err := action.DefaultEvaluator{}.Run(chart.Context{}, ref, chart.Event{}, h)
	require.NoError(t, err)
	_, ok := h.delayed["timer1"]
	assert.True(t, ok)
}

func TestDefaultEvaluatorSendParent(t *testing.T) {
	h := newFakeHost()
	ref := chart.SendParent("DONE")
	err := action.DefaultEvaluator{}.Run(chart.Context{}, ref, chart.Event{}, h)
	require.NoError(t, err)
	require.Len(t, h.toParent, 1)
	assert.Equal(t, "DONE", h.toParent[0].Name)
}

func TestDefaultEvaluatorCancel(t *testing.T) {
	h := newFakeHost()
	err := action.DefaultEvaluator{}.Run(chart.Context{}, chart.Cancel("timer1"), chart.Event{}, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"timer1"}, h.canceled)
}

func TestDefaultEvaluatorLog(t *testing.T) {
	h := newFakeHost()
	err := action.DefaultEvaluator{}.Run(chart.Context{}, chart.Log("hello", nil), chart.Event{}, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, h.logs)
}

func TestDefaultEvaluatorOpaqueFunc(t *testing.T) {
	h := newFakeHost()
	ran := false
	ref := chart.Opaque(func(chart.Context, chart.Event) { ran = true })
	err := action.DefaultEvaluator{}.Run(chart.Context{}, ref, chart.Event{}, h)
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDefaultEvaluatorInlineFunc(t *testing.T) {
	h := newFakeHost()
	ran := false
	ref := func(chart.Context, chart.Event) { ran = true }
	err := action.DefaultEvaluator{}.Run(chart.Context{}, ref, chart.Event{}, h)
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDefaultEvaluatorUnregisteredString(t *testing.T) {
	h := newFakeHost()
	err := action.DefaultEvaluator{}.Run(chart.Context{}, "doStuff", chart.Event{}, h)
	assert.ErrorIs(t, err, action.ErrUnregistered)
}

func TestDefaultEvaluatorAssignIsNoop(t *testing.T) {
	h := newFakeHost()
	ref := chart.Assign(func(chart.Context, chart.Event) map[string]any { return map[string]any{"x": 1} })
	err := action.DefaultEvaluator{}.Run(chart.Context{}, ref, chart.Event{}, h)
	require.NoError(t, err)
	assert.Empty(t, h.internal)
	assert.Empty(t, h.external)
}

func TestRegistryEvaluatorResolvesNamedAction(t *testing.T) {
	reg := action.NewRegistry()
	ran := false
	reg.RegisterAction("doThing", func(chart.Context, chart.Event) { ran = true })

	ev := action.NewRegistryEvaluator(reg)
	err := ev.Run(chart.Context{}, "doThing", chart.Event{}, newFakeHost())
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRegistryEvaluatorFallsBackToDefault(t *testing.T) {
	reg := action.NewRegistry()
	ev := action.NewRegistryEvaluator(reg)
	h := newFakeHost()
	err := ev.Run(chart.Context{}, chart.Raise("PING", nil), chart.Event{}, h)
	require.NoError(t, err)
	assert.Len(t, h.internal, 1)
}

func TestRegistryGuardEvaluatorResolvesNamedGuard(t *testing.T) {
	reg := action.NewRegistry()
	reg.RegisterGuard("isReady", func(ctx chart.Context, e chart.Event) bool {
		v, _ := ctx.Get("ready")
		b, _ := v.(bool)
		return b
	})
	ge := action.NewRegistryGuardEvaluator(reg)

	ok, err := ge.EvalGuard("isReady", chart.NewContext(map[string]any{"ready": true}), chart.Event{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ge.EvalGuard("isReady", chart.NewContext(map[string]any{"ready": false}), chart.Event{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistryGuardEvaluatorUnknownNameFails(t *testing.T) {
	reg := action.NewRegistry()
	ge := action.NewRegistryGuardEvaluator(reg)
	ok, err := ge.EvalGuard("missing", chart.Context{}, chart.Event{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistryGuardEvaluatorNilRefAlwaysPasses(t *testing.T) {
	reg := action.NewRegistry()
	ge := action.NewRegistryGuardEvaluator(reg)
	ok, err := ge.EvalGuard(nil, chart.Context{}, chart.Event{})
	require.NoError(t, err)
	assert.True(t, ok)
}
