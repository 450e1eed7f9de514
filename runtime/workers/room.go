package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mixmatch/contract"
	"mixmatch/domain"
	"mixmatch/domain/event"
	"mixmatch/errors"
)

// Deliverer receives the events a room produced, in order.
type Deliverer interface {
	Deliver(ctx context.Context, events []event.Event)
}

type message interface {
	isMessage()
}

type request struct {
	cmd   domain.Command
	reply chan reply
}

type reply struct {
	data any
	err  error
}

type timerFired struct {
	gen uint64
}

type questionReady struct {
	seq      uint64
	question domain.Question
	err      error
}

func (request) isMessage()       {}
func (timerFired) isMessage()    {}
func (questionReady) isMessage() {}

// RoomWorker owns one room. Every command, timer firing and provider answer
// goes through its inbox and is applied on the Run goroutine, so the room
// itself needs no lock.
type RoomWorker struct {
	room            *domain.Room
	inbox           chan message
	provider        contract.QuestionProvider
	deliverer       Deliverer
	log             *slog.Logger
	clock           func() time.Time
	questionTimeout time.Duration
	onClosed        func(code domain.RoomCode)

	// Only touched from Run.
	timer         *time.Timer
	timerGen      uint64
	launchedSeq   uint64
	cancelPending context.CancelFunc

	done      chan struct{}
	closeOnce sync.Once
}

type RoomWorkerConfig struct {
	InboxSize       int
	QuestionTimeout time.Duration
	Clock           func() time.Time
	OnClosed        func(code domain.RoomCode)
}

func NewRoomWorker(log *slog.Logger, room *domain.Room, provider contract.QuestionProvider, deliverer Deliverer, cfg RoomWorkerConfig) *RoomWorker {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.OnClosed == nil {
		cfg.OnClosed = func(domain.RoomCode) {}
	}
	return &RoomWorker{
		room:            room,
		inbox:           make(chan message, max(cfg.InboxSize, 1)),
		provider:        provider,
		deliverer:       deliverer,
		log:             log.With("room", room.Code()),
		clock:           cfg.Clock,
		questionTimeout: cfg.QuestionTimeout,
		onClosed:        cfg.OnClosed,
		done:            make(chan struct{}),
	}
}

func (w *RoomWorker) Code() domain.RoomCode { return w.room.Code() }

// Done is closed once the room is closed and the worker stopped.
func (w *RoomWorker) Done() <-chan struct{} { return w.done }

// Submit hands cmd to the worker and waits for its result.
func (w *RoomWorker) Submit(ctx context.Context, cmd domain.Command) (any, error) {
	req := request{cmd: cmd, reply: make(chan reply, 1)}
	select {
	case w.inbox <- req:
	case <-w.done:
		return nil, errors.ErrNoSuchRoom
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.data, r.err
	case <-w.done:
		// The command that closed the room still gets its answer.
		select {
		case r := <-req.reply:
			return r.data, r.err
		default:
			return nil, errors.ErrNoSuchRoom
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *RoomWorker) Run(ctx context.Context) error {
	// Events produced at creation, or before a restart, are still pending.
	w.sync(ctx)
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.closeOnce.Do(func() { close(w.done) })
			w.log.Debug("Stopping room worker")
			return ctx.Err()
		case msg := <-w.inbox:
			w.handle(ctx, msg)
			if w.room.Closed() {
				w.stopTimers()
				w.onClosed(w.room.Code())
				w.closeOnce.Do(func() { close(w.done) })
				w.log.Info("Room closed")
				return nil
			}
		}
	}
}

func (w *RoomWorker) handle(ctx context.Context, msg message) {
	now := w.clock()
	switch m := msg.(type) {
	case request:
		data, err := w.apply(m.cmd, now)
		w.sync(ctx)
		m.reply <- reply{data: data, err: err}
	case timerFired:
		w.room.OnTimer(m.gen, now)
		w.sync(ctx)
	case questionReady:
		if m.err != nil {
			w.log.Warn("Question provider failed, using fallback", "error", m.err)
		}
		if !w.room.ApplyQuestion(m.seq, m.question, m.err, now) {
			w.log.Debug("Discarding stale question", "seq", m.seq)
		}
		w.sync(ctx)
	}
}

// apply runs one command. A panic is reported to the caller as a server
// error and the room keeps serving.
func (w *RoomWorker) apply(cmd domain.Command, now time.Time) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Command panicked", "command", fmt.Sprintf("%T", cmd), "panic", r)
			data, err = nil, errors.ErrServerError
		}
	}()
	return cmd.Apply(w.room, now)
}

// sync flushes the outbox, then brings the armed timer and the in-flight
// provider call in line with what the room wants.
func (w *RoomWorker) sync(ctx context.Context) {
	if evts := w.room.DrainEvents(); len(evts) > 0 {
		w.deliverer.Deliver(ctx, evts)
	}
	w.rearm(ctx)
	w.launchQuestion(ctx)
}

func (w *RoomWorker) rearm(ctx context.Context) {
	t := w.room.Timer()
	if t.Gen == w.timerGen && (w.timer != nil || t.Kind == domain.TimerNone) {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timerGen = t.Gen
	if t.Kind == domain.TimerNone {
		return
	}
	gen := t.Gen
	w.timer = time.AfterFunc(max(t.At.Sub(w.clock()), 0), func() {
		select {
		case w.inbox <- timerFired{gen: gen}:
		case <-ctx.Done():
		case <-w.done:
		}
	})
}

func (w *RoomWorker) launchQuestion(ctx context.Context) {
	pending, ok := w.room.PendingRequest()
	if !ok {
		if w.cancelPending != nil {
			w.cancelPending()
			w.cancelPending = nil
		}
		return
	}
	if pending.Seq == w.launchedSeq {
		return
	}
	if w.cancelPending != nil {
		w.cancelPending()
	}
	w.launchedSeq = pending.Seq

	callCtx, cancel := context.WithTimeout(ctx, w.questionTimeout)
	w.cancelPending = cancel
	go func() {
		defer cancel()
		q, err := w.generate(callCtx, pending.Track)
		select {
		case w.inbox <- questionReady{seq: pending.Seq, question: q, err: err}:
		case <-ctx.Done():
		case <-w.done:
		}
	}()
}

func (w *RoomWorker) generate(ctx context.Context, track domain.Track) (q domain.Question, err error) {
	if w.provider == nil {
		return domain.Question{}, errors.ErrProviderUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: provider panicked: %v", errors.ErrProviderUnavailable, r)
		}
	}()
	return w.provider.Generate(ctx, track)
}

func (w *RoomWorker) stopTimers() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	// Force a re-arm if the worker is restarted.
	w.timerGen = 0
	if w.cancelPending != nil {
		w.cancelPending()
		w.cancelPending = nil
	}
	w.launchedSeq = 0
}
