package workers

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"mixmatch/contract"
	"mixmatch/domain"
	"mixmatch/domain/event"
	"mixmatch/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_RoomScope(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	roomSink := mocks.NewMockEventSink(ctrl)
	permanentSink := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, mockRegistry, 10*time.Second).Add(permanentSink)

	done := make(chan struct{})
	evt := event.Event{Type: event.RoomUpdate, Room: "AB12", Scope: event.ScopeRoom}

	// Given two connections in the room
	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomCode("AB12")).
		Return([]contract.EventSink{roomSink, roomSink}).Times(1)
	roomSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(2)
	// Given the permanent sink sees it too
	permanentSink.EXPECT().Consume(gomock.Any(), evt).
		DoAndReturn(func(ctx context.Context, e event.Event) error {
			close(done)
			return nil
		}).Times(1)

	// When the event is routed
	fanout.Fanout(context.Background(), evt)

	// Then every sink consumed it
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Permanent sink was not called in time")
	}
}

func TestEventFanout_ConnectionScope(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	hostSink := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, mockRegistry, time.Second)
	evt := event.Event{Type: event.QuestionMedia, Room: "AB12", Scope: event.ScopeConnection, Target: "host"}

	// Given only the host is targeted
	mockRegistry.EXPECT().SinkFor(domain.ConnID("host")).Return(hostSink, true).Times(1)
	mockRegistry.EXPECT().GetSinksForRoom(gomock.Any()).Times(0)
	hostSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout.Fanout(context.Background(), evt)
}

func TestEventFanout_MembershipBeforeBroadcast(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	sink := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, mockRegistry, time.Second)
	joined := event.Event{Type: event.MemberJoined, Room: "AB12", Scope: event.ScopeSystem, Payload: event.Membership{ConnID: "c1"}}
	update := event.Event{Type: event.RoomUpdate, Room: "AB12", Scope: event.ScopeRoom}
	left := event.Event{Type: event.MemberLeft, Room: "AB12", Scope: event.ScopeSystem, Payload: event.Membership{ConnID: "c1"}}

	// Then the registry is updated in order
	gomock.InOrder(
		mockRegistry.EXPECT().Join(domain.RoomCode("AB12"), domain.ConnID("c1")),
		mockRegistry.EXPECT().GetSinksForRoom(domain.RoomCode("AB12")).Return([]contract.EventSink{sink}),
		sink.EXPECT().Consume(gomock.Any(), update).Return(nil),
		mockRegistry.EXPECT().Leave(domain.RoomCode("AB12"), domain.ConnID("c1")),
	)

	// When a batch is delivered
	fanout.Deliver(context.Background(), []event.Event{joined, update, left})
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	permanentSink := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	fanout := NewEventFanout(log, mockRegistry, sinkTimeout).Add(permanentSink)

	mockRegistry.EXPECT().GetSinksForRoom(gomock.Any()).Return(nil).Times(1)
	errCh := make(chan error, 1)
	permanentSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, e event.Event) error {
			<-ctx.Done() // Waiting for timeout to trigger cancellation
			errCh <- ctx.Err()
			return fmt.Errorf("store: %w", ctx.Err())
		}).Times(1)

	// When an event is routed
	fanout.Fanout(context.Background(), event.Event{Type: event.RoomUpdate, Room: "AB12"})

	// Then the slow sink is cut off by the timeout
	select {
	case err := <-errCh:
		req.ErrorIs(err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		req.Fail("Sink was not canceled")
	}
}
