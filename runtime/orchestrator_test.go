package runtime

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"mixmatch/domain"
	"mixmatch/domain/event"
	"mixmatch/errors"
	"mixmatch/runtime/workers"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type RecordingSink struct {
	mu     sync.Mutex
	events []event.Event
	notify chan event.Event
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{notify: make(chan event.Event, 256)}
}

func (s *RecordingSink) Consume(_ context.Context, e event.Event) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	select {
	case s.notify <- e:
	default:
	}
	return nil
}

func (s *RecordingSink) Types() []event.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Type, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func (s *RecordingSink) WaitFor(t *testing.T, typ event.Type) event.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-s.notify:
			if e.Type == typ {
				return e
			}
		case <-timeout:
			t.Fatalf("event %s not received in time", typ)
		}
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *Registry) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	fanout := workers.NewEventFanout(log, registry, time.Second)
	catalog := NewCatalog([]domain.Track{
		{ID: "t1", Title: "Billie Jean", Artist: "Michael Jackson"},
		{ID: "t2", Title: "Poker Face", Artist: "Lady Gaga"},
	})
	o := NewOrchestrator(log, workers.NewSupervisor(log), registry, fanout, nil, catalog, OrchestratorConfig{
		InboxSize:       16,
		QuestionTimeout: time.Second,
		CatalogSize:     catalog.Size(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = o.Start(ctx) }()
	t.Cleanup(cancel)
	return o, registry
}

func TestOrchestrator_RoomLifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	o, registry := newTestOrchestrator(t)
	hostSink, playerSink := NewRecordingSink(), NewRecordingSink()
	registry.Register("host", hostSink)
	registry.Register("alice", playerSink)

	// When a host creates a room
	code, err := o.CreateRoom(ctx, "host")

	// Then the host sees its lobby
	req.NoError(err)
	req.Regexp(`^[0-9A-F]{4}$`, string(code))
	state := hostSink.WaitFor(t, event.RoomUpdate).Payload.(event.RoomState)
	req.Equal(string(code), state.Code)
	req.Equal(2, state.Remaining)
	req.Equal(1, o.Rooms())

	// When a player joins with a lower-case code
	res, err := o.Dispatch(ctx, domain.RoomCode(strings.ToLower(string(code))), domain.JoinRoomCommand{Conn: "alice", Name: "Alice"})
	req.NoError(err)
	req.Equal("Alice", res.(domain.JoinResult).Name)
	playerSink.WaitFor(t, event.RoomUpdate)

	// And the game starts without a provider
	_, err = o.Dispatch(ctx, code, domain.StartGameCommand{Conn: "host"})
	req.NoError(err)
	q := playerSink.WaitFor(t, event.QuestionNew).Payload.(event.Question)
	req.Equal(1, q.Round)
	hostSink.WaitFor(t, event.QuestionNew)

	// When the room is closed
	req.NoError(o.Close(ctx, code))

	// Then everyone was told and the room is gone
	playerSink.WaitFor(t, event.RoomClosed)
	hostSink.WaitFor(t, event.RoomClosed)
	req.Equal(0, o.Rooms())
	req.Nil(registry.GetSinksForRoom(code))
	_, err = o.Dispatch(ctx, code, domain.SnapshotCommand{})
	req.ErrorIs(err, errors.ErrNoSuchRoom)

	// And no event reaches former participants afterwards
	n := len(playerSink.Types())
	time.Sleep(50 * time.Millisecond)
	req.Len(playerSink.Types(), n)
}

func TestOrchestrator_HostDisconnectClosesRoom(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	o, registry := newTestOrchestrator(t)
	playerSink := NewRecordingSink()
	registry.Register("host", NewRecordingSink())
	registry.Register("bob", playerSink)
	code, err := o.CreateRoom(ctx, "host")
	req.NoError(err)
	_, err = o.Dispatch(ctx, code, domain.JoinRoomCommand{Conn: "bob", Name: "Bob"})
	req.NoError(err)

	hostLeft, err := o.Dispatch(ctx, code, domain.LeaveCommand{Conn: "host"})

	req.NoError(err)
	req.Equal(true, hostLeft)
	playerSink.WaitFor(t, event.RoomClosed)
	req.Eventually(func() bool { return o.Rooms() == 0 }, time.Second, 10*time.Millisecond)
}

func TestOrchestrator_CodeCollisionRetries(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	o, _ := newTestOrchestrator(t)
	codes := []domain.RoomCode{"AAAA", "AAAA", "BEEF"}
	o.newCode = func() (domain.RoomCode, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	first, err := o.CreateRoom(ctx, "h1")
	req.NoError(err)
	second, err := o.CreateRoom(ctx, "h2")
	req.NoError(err)

	req.Equal(domain.RoomCode("AAAA"), first)
	req.Equal(domain.RoomCode("BEEF"), second)
}

func TestOrchestrator_CodeSpaceExhausted(t *testing.T) {
	req := require.New(t)
	o, _ := newTestOrchestrator(t)
	o.newCode = func() (domain.RoomCode, error) { return "AAAA", nil }

	_, err := o.CreateRoom(context.Background(), "h1")
	req.NoError(err)
	_, err = o.CreateRoom(context.Background(), "h2")
	req.ErrorIs(err, errors.ErrCodeSpaceExhausted)
}

func TestOrchestrator_UnknownRoom(t *testing.T) {
	req := require.New(t)
	o, _ := newTestOrchestrator(t)

	_, err := o.Dispatch(context.Background(), "ZZZZ", domain.SnapshotCommand{})
	req.ErrorIs(err, errors.ErrNoSuchRoom)
	req.ErrorIs(o.Close(context.Background(), "ZZZZ"), errors.ErrNoSuchRoom)
}

func TestOrchestrator_NoRoomAfterShutdown(t *testing.T) {
	testCases := []struct {
		description string
		shutdown    func(o *Orchestrator, cancel context.CancelFunc)
	}{
		{description: "Stopped", shutdown: func(o *Orchestrator, _ context.CancelFunc) { o.Stop() }},
		{description: "Parent context canceled", shutdown: func(_ *Orchestrator, cancel context.CancelFunc) { cancel() }},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			req := require.New(t)
			log := logs.GetLoggerFromLevel(slog.LevelDebug)
			registry := NewRegistry()
			catalog := NewCatalog([]domain.Track{{ID: "t1", Title: "Billie Jean", Artist: "Michael Jackson"}})
			o := NewOrchestrator(log, workers.NewSupervisor(log), registry, workers.NewEventFanout(log, registry, time.Second), nil, catalog, OrchestratorConfig{
				InboxSize:       16,
				QuestionTimeout: time.Second,
				CatalogSize:     catalog.Size(),
			})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			stopped := make(chan struct{})
			go func() {
				_ = o.Start(ctx)
				close(stopped)
			}()

			// Given a room created while running
			code, err := o.CreateRoom(context.Background(), "host")
			req.NoError(err)

			// When the orchestrator shuts down
			tc.shutdown(o, cancel)
			select {
			case <-stopped:
			case <-time.After(2 * time.Second):
				req.Fail("orchestrator should have stopped")
			}

			// Then no room can be created anymore
			_, err = o.CreateRoom(context.Background(), "late-host")
			req.ErrorIs(err, errors.ErrShuttingDown)
			req.Equal(1, o.Rooms())

			// And commands to the stopped room fail instead of hanging
			dispatchCtx, dispatchCancel := context.WithTimeout(context.Background(), time.Second)
			defer dispatchCancel()
			_, err = o.Dispatch(dispatchCtx, code, domain.JoinRoomCommand{Conn: "alice", Name: "Alice"})
			req.ErrorIs(err, errors.ErrNoSuchRoom)
		})
	}
}

func TestCatalog_ListFor(t *testing.T) {
	req := require.New(t)
	catalog, err := LoadCatalog()
	req.NoError(err)
	req.Equal(10, catalog.Size())

	fallback := catalog.ListFor("AB12", nil)
	req.Len(fallback, 10)
	req.Equal("Billie Jean", fallback[0].Title)

	// The caller may shuffle its copy freely
	fallback[0], fallback[1] = fallback[1], fallback[0]
	req.Equal("t1", catalog.ListFor("AB12", nil)[0].ID)

	seeded := []domain.Track{{ID: "s1", Title: "Seeded", Artist: "Host"}}
	req.Equal(seeded, catalog.ListFor("AB12", seeded))
}
