package production

import "github.com/quiescent/statechart/internal/engine"

// ChannelPublisher forwards every committed State to a Go channel,
// dropping on backpressure rather than blocking the interpreter's loop
// goroutine.
type ChannelPublisher struct {
	ch chan<- engine.State
}

// NewChannelPublisher creates a ChannelPublisher writing to ch. The
// caller owns ch and should stop reading only after calling Close.
func NewChannelPublisher(ch chan<- engine.State) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

// Publish implements interpreter.EventPublisher.
func (p *ChannelPublisher) Publish(state engine.State) error {
	select {
	case p.ch <- state:
	default:
	}
	return nil
}

// Close implements interpreter.EventPublisher.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
