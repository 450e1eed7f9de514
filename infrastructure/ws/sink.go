package ws

import (
	"context"
	"fmt"

	"mixmatch/domain/event"
)

var errSinkFull = fmt.Errorf("connection buffer full, event dropped")

// Sink is the per-connection EventSink. Events are queued for the write
// pump and dropped when the connection lags behind.
type Sink struct {
	events chan Outbound
}

func NewSink(bufferSize int) *Sink {
	return &Sink{events: make(chan Outbound, max(bufferSize, 1))}
}

// Consume is called by the fan-out on the room's goroutine: it never blocks.
func (s *Sink) Consume(ctx context.Context, e event.Event) error {
	if e.Internal() {
		return nil
	}
	select {
	case s.events <- Outbound{Type: string(e.Type), Payload: e.Payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errSinkFull
	}
}

func (s *Sink) Events() <-chan Outbound { return s.events }
