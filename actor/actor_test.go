package actor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiescent/statechart/actor"
	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/engine"
	"github.com/quiescent/statechart/interpreter"
)

func waitingChart(t *testing.T) *chart.Chart {
	t.Helper()
	cfg := chart.Config{
		ID:      "waiter",
		Initial: "waiting",
		States: []*chart.NodeConfig{
			{ID: "waiting", On: []chart.TransitionConfig{
				{Event: "done.invoke.worker", Target: []string{"succeeded"}},
				{Event: "error.execution", Target: []string{"failed"}},
			}},
			{ID: "succeeded", Type: "final"},
			{ID: "failed", Type: "final"},
		},
	}
	c, err := chart.New(cfg)
	require.NoError(t, err)
	return c
}

func TestSpawnPromiseResolve(t *testing.T) {
	c := waitingChart(t)
	ip := interpreter.New(c)
	ip.Start()

	states := make(chan engine.State, 4)
	ip.Subscribe(func(s engine.State) {
		select {
		case states <- s:
		default:
		}
	})

	a := actor.SpawnPromise(ip, "waiting", func() (any, error) {
		return 42, nil
	}, actor.WithID("worker"))
	require.Equal(t, "worker", a.ID())

	select {
	case s := <-states:
		assert.True(t, s.Matches("succeeded"))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for promise resolve")
	}

	ip.Stop()
}

func TestSpawnPromiseReject(t *testing.T) {
	c := waitingChart(t)
	ip := interpreter.New(c)
	ip.Start()

	states := make(chan engine.State, 4)
	ip.Subscribe(func(s engine.State) {
		select {
		case states <- s:
		default:
		}
	})

	actor.SpawnPromise(ip, "waiting", func() (any, error) {
		return nil, errors.New("boom")
	}, actor.WithID("worker"))

	select {
	case s := <-states:
		assert.True(t, s.Matches("failed"))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for promise reject")
	}

	ip.Stop()
}

func TestSpawnCallbackRoutesBothWays(t *testing.T) {
	c := waitingChart(t)
	ip := interpreter.New(c)
	ip.Start()

	a := actor.SpawnCallback(ip, "waiting", func(send func(chart.Event), receive func(func(chart.Event))) {
		receive(func(e chart.Event) {
			if e.Type == "PING" {
				send(chart.NewEvent("done.invoke.worker", nil))
			}
		})
	}, actor.WithID("worker"))

	states := make(chan engine.State, 4)
	ip.Subscribe(func(s engine.State) {
		select {
		case states <- s:
		default:
		}
	})

	require.NoError(t, a.Send(chart.NewEvent("PING", nil)))

	select {
	case s := <-states:
		assert.True(t, s.Matches("succeeded"))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for callback-routed transition")
	}

	ip.Stop()
}

func TestSpawnNullActorOutsideLiveInterpreter(t *testing.T) {
	a := actor.SpawnPromise(nil, "waiting", func() (any, error) { return 1, nil }, actor.WithID("worker"))
	null, ok := a.(*actor.NullActor)
	require.True(t, ok)
	assert.Equal(t, "worker", null.ID())
	assert.NoError(t, null.Send(chart.NewEvent("X", nil)))
	null.Stop()
}
