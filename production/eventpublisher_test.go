package production_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiescent/statechart/internal/engine"
	"github.com/quiescent/statechart/production"
)

func TestChannelPublisherDeliversAndDrops(t *testing.T) {
	c := testChart(t)
	state, err := engine.InitialState(c)
	require.NoError(t, err)

	ch := make(chan engine.State, 1)
	p := production.NewChannelPublisher(ch)

	require.NoError(t, p.Publish(state))
	require.NoError(t, p.Publish(state)) // buffer full: dropped, not blocked

	select {
	case got := <-ch:
		assert.True(t, got.Matches("closed"))
	default:
		t.Fatal("expected buffered state")
	}

	require.NoError(t, p.Close())
}

func TestChannelPublisherClose(t *testing.T) {
	ch := make(chan engine.State, 1)
	p := production.NewChannelPublisher(ch)
	require.NoError(t, p.Close())

	_, open := <-ch
	assert.False(t, open)
}
