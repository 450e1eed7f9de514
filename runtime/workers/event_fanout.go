package workers

import (
	"context"
	"log/slog"
	"time"

	"mixmatch/contract"
	"mixmatch/domain"
	"mixmatch/domain/event"
)

// EventFanout routes room events to the connections that must see them.
//
// Connection sinks are resolved through the registry according to the event
// scope and are written in order, on the caller's goroutine. They must not
// block: a slow connection drops events rather than stalling its room.
//
// Permanent sinks (persistence, metrics) see every event, system ones
// included. Each of them is called on its own goroutine bounded by
// sinkTimeout; their failures are logged and never reach the room.
//
// Membership events keep the registry in step with the room: they are
// applied before any later event of the same batch is routed.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IRegistry
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, registry: registry, sinkTimeout: sinkTimeout}
}

// Add registers permanent sinks. It must be called before any delivery.
func (f *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	f.permanentSinks = append(f.permanentSinks, sinks...)
	return f
}

// Deliver routes a batch of events in order.
func (f *EventFanout) Deliver(ctx context.Context, events []event.Event) {
	for _, evt := range events {
		f.Fanout(ctx, evt)
	}
}

// Fanout hands evt to every sink its scope reaches: the room members, one
// connection, or only the permanent sinks for system events.
func (f *EventFanout) Fanout(ctx context.Context, evt event.Event) {
	code := domain.RoomCode(evt.Room)
	switch evt.Scope {
	case event.ScopeSystem:
		f.applyMembership(code, evt)
	case event.ScopeConnection:
		if sink, ok := f.registry.SinkFor(domain.ConnID(evt.Target)); ok {
			f.consume(ctx, sink, evt)
		}
	default:
		for _, sink := range f.registry.GetSinksForRoom(code) {
			f.consume(ctx, sink, evt)
		}
	}

	for _, sink := range f.permanentSinks {
		go func(sink contract.EventSink) {
			sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.sinkTimeout)
			defer cancel()
			if err := sink.Consume(sinkCtx, evt); err != nil {
				f.log.Warn("Permanent sink failed", "sink", sinkName(sink), "type", evt.Type, "room", evt.Room, "error", err)
			}
		}(sink)
	}
}

func (f *EventFanout) applyMembership(code domain.RoomCode, evt event.Event) {
	m, ok := evt.Payload.(event.Membership)
	if !ok {
		return
	}
	switch evt.Type {
	case event.MemberJoined:
		f.registry.Join(code, domain.ConnID(m.ConnID))
	case event.MemberLeft:
		f.registry.Leave(code, domain.ConnID(m.ConnID))
	}
}

func (f *EventFanout) consume(ctx context.Context, sink contract.EventSink, evt event.Event) {
	if err := sink.Consume(ctx, evt); err != nil {
		f.log.Debug("Event not delivered", "type", evt.Type, "room", evt.Room, "error", err)
	}
}

func sinkName(sink contract.EventSink) string {
	type named interface{ Name() string }
	if n, ok := sink.(named); ok {
		return n.Name()
	}
	return "unnamed"
}
