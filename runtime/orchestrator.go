// Package runtime owns the live rooms: it creates them, routes commands to
// their workers and tears them down. It contains no game rule.
package runtime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mixmatch/contract"
	"mixmatch/domain"
	"mixmatch/errors"
	"mixmatch/runtime/workers"
)

const maxCodeAttempts = 64

type OrchestratorConfig struct {
	InboxSize       int
	QuestionTimeout time.Duration
	CatalogSize     int
	Clock           func() time.Time
	RoomOptions     []domain.Option
}

type Orchestrator struct {
	mu         sync.RWMutex
	log        *slog.Logger
	rooms      map[domain.RoomCode]*workers.RoomWorker
	supervisor contract.ISupervisor
	registry   contract.IRegistry
	fanout     *workers.EventFanout
	provider   contract.QuestionProvider
	tracks     domain.TrackSource
	cfg        OrchestratorConfig
	newCode    func() (domain.RoomCode, error)

	ctx     context.Context
	cancel  context.CancelFunc
	started chan struct{}
	once    sync.Once
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry contract.IRegistry,
	fanout *workers.EventFanout, provider contract.QuestionProvider, tracks domain.TrackSource,
	cfg OrchestratorConfig) *Orchestrator {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Orchestrator{
		log:        log,
		rooms:      make(map[domain.RoomCode]*workers.RoomWorker),
		supervisor: supervisor,
		registry:   registry,
		fanout:     fanout,
		provider:   provider,
		tracks:     tracks,
		cfg:        cfg,
		newCode:    randomCode,
		started:    make(chan struct{}),
	}
}

// randomCode draws 2 random bytes rendered as 4 upper-case hex characters.
func randomCode() (domain.RoomCode, error) {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return domain.RoomCode(strings.ToUpper(hex.EncodeToString(b))), nil
}

// Start records the context rooms live in and runs the supervisor until ctx
// is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.once.Do(func() {
		o.mu.Lock()
		o.ctx, o.cancel = context.WithCancel(ctx)
		o.mu.Unlock()
		close(o.started)
	})
	o.mu.RLock()
	runCtx := o.ctx
	o.mu.RUnlock()
	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(runCtx)
	return nil
}

// Stop closes the door to new rooms and stops every running one.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
	o.supervisor.Stop()
}

// CreateRoom opens a room hosted by host and starts its worker.
func (o *Orchestrator) CreateRoom(ctx context.Context, host domain.ConnID) (domain.RoomCode, error) {
	select {
	case <-o.started:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	o.mu.Lock()
	if o.ctx.Err() != nil {
		o.mu.Unlock()
		return "", errors.ErrShuttingDown
	}
	code, err := o.freeCode()
	if err != nil {
		o.mu.Unlock()
		return "", err
	}
	room := domain.NewRoom(code, host, o.tracks, domain.DefaultConfig(o.cfg.CatalogSize), o.cfg.Clock(), o.cfg.RoomOptions...)
	worker := workers.NewRoomWorker(o.log, room, o.provider, o.fanout, workers.RoomWorkerConfig{
		InboxSize:       o.cfg.InboxSize,
		QuestionTimeout: o.cfg.QuestionTimeout,
		Clock:           o.cfg.Clock,
		OnClosed:        o.evict,
	})
	// Published only once running. The worker calls evict only after a
	// command closed it, so starting under the lock is safe.
	if err := o.supervisor.Start(o.ctx, worker); err != nil {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: %w", errors.ErrShuttingDown, err)
	}
	o.rooms[code] = worker
	o.mu.Unlock()

	o.log.Info("Room created", "room", code, "host", host)
	return code, nil
}

// freeCode must be called with o.mu held.
func (o *Orchestrator) freeCode() (domain.RoomCode, error) {
	for range maxCodeAttempts {
		code, err := o.newCode()
		if err != nil {
			return "", fmt.Errorf("room code: %w", err)
		}
		if _, taken := o.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", errors.ErrCodeSpaceExhausted
}

// Find returns the worker of a live room.
func (o *Orchestrator) Find(code domain.RoomCode) (*workers.RoomWorker, error) {
	code = domain.ParseRoomCode(string(code))
	o.mu.RLock()
	defer o.mu.RUnlock()
	w, ok := o.rooms[code]
	if !ok {
		return nil, errors.ErrNoSuchRoom
	}
	return w, nil
}

// Dispatch runs cmd on the room's worker and waits for its result.
func (o *Orchestrator) Dispatch(ctx context.Context, code domain.RoomCode, cmd domain.Command) (any, error) {
	w, err := o.Find(code)
	if err != nil {
		return nil, err
	}
	return w.Submit(ctx, cmd)
}

// Close shuts a room down and returns once it has been evicted.
func (o *Orchestrator) Close(ctx context.Context, code domain.RoomCode) error {
	w, err := o.Find(code)
	if err != nil {
		return err
	}
	if _, err := w.Submit(ctx, domain.CloseCommand{}); err != nil {
		return err
	}
	select {
	case <-w.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rooms is the number of live rooms.
func (o *Orchestrator) Rooms() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.rooms)
}

// evict runs on the room worker once the room is closed.
func (o *Orchestrator) evict(code domain.RoomCode) {
	o.mu.Lock()
	delete(o.rooms, code)
	o.mu.Unlock()
	members := o.registry.RemoveRoom(code)
	o.log.Debug("Room evicted", "room", code, "members", len(members))
}
