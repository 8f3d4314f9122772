package chart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quiescent/statechart/internal/chart"
)

func TestToSCXMLWrapsEventWithKind(t *testing.T) {
	evt := chart.NewEvent("GO", map[string]any{"n": 1})
	scxml := chart.ToSCXML(evt, chart.KindExternal)

	assert.Equal(t, "GO", scxml.Name)
	assert.Equal(t, chart.KindExternal, scxml.Type)
	assert.Equal(t, evt, scxml.Data)
}

func TestInitEventIsPlatformKind(t *testing.T) {
	evt := chart.InitEvent()
	assert.Equal(t, chart.EventInit, evt.Name)
	assert.Equal(t, chart.KindPlatform, evt.Type)
}

func TestNullEventHasEmptyName(t *testing.T) {
	evt := chart.NullEvent()
	assert.Equal(t, "", evt.Name)
}

func TestAfterEventFormatting(t *testing.T) {
	assert.Equal(t, "xstate.after(500)#a.b", chart.AfterEvent(500, "a.b"))
	assert.Equal(t, "xstate.after(0)#root", chart.AfterEvent(0, "root"))
}

func TestDoneInvokeAndDoneStateEvent(t *testing.T) {
	assert.Equal(t, "done.invoke.child1", chart.DoneInvokeEvent("child1"))
	assert.Equal(t, "done.state.foo", chart.DoneStateEvent("foo"))
}
