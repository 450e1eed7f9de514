package domain

import (
	"sort"
	"time"

	"mixmatch/domain/event"
)

type TimerKind int

const (
	TimerNone TimerKind = iota
	TimerTick
	TimerReveal
	TimerResult
)

func (k TimerKind) String() string {
	switch k {
	case TimerTick:
		return "tick"
	case TimerReveal:
		return "reveal"
	case TimerResult:
		return "result"
	default:
		return "none"
	}
}

// Timer is the single timer a room wants armed. Gen changes on every clear,
// so a firing carrying an older Gen is stale.
type Timer struct {
	Kind TimerKind
	At   time.Time
	Gen  uint64
}

// QuestionRequest asks the runtime to generate a question for Track.
// The answer must be handed back with the same Seq.
type QuestionRequest struct {
	Seq   uint64
	Track Track
}

// Room is the authoritative state of one game. It is not safe for concurrent
// use: a single worker owns it and serializes every call.
type Room struct {
	code          RoomCode
	hostID        ConnID
	stage         Stage
	players       map[ConnID]*Player
	joinSeq       uint64
	firstPlayerID ConnID
	config        GameConfig

	whitelist map[PlayerKey]struct{}
	reclaim   map[PlayerKey]reclaimEntry

	seeded     []Track
	requested  []Track
	tracks     []Track
	trackIndex int
	played     []Track

	question      *Question
	track         Track
	answers       map[PlayerKey]Answer
	optionCounts  []int
	deadline      time.Time
	revealUntil   time.Time
	resultUntil   time.Time
	questionCount int

	emoteCooldown map[PlayerKey]time.Time

	pending    *QuestionRequest
	requestSeq uint64
	timer      Timer
	timerGen   uint64
	closed     bool

	source TrackSource
	rand   Rand
	outbox []event.Event
}

type Option func(*Room)

func WithRand(r Rand) Option {
	return func(room *Room) { room.rand = r }
}

// NewRoom creates a room in lobby stage owned by host.
func NewRoom(code RoomCode, host ConnID, source TrackSource, config GameConfig, now time.Time, opts ...Option) *Room {
	r := &Room{
		code:          code,
		hostID:        host,
		stage:         StageLobby,
		players:       make(map[ConnID]*Player),
		config:        config,
		reclaim:       make(map[PlayerKey]reclaimEntry),
		answers:       make(map[PlayerKey]Answer),
		emoteCooldown: make(map[PlayerKey]time.Time),
		source:        source,
		rand:          DefaultRand(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.seedTracks()
	r.emitSystem(event.MemberJoined, event.Membership{ConnID: string(host)}, now)
	r.emitState(now)
	return r
}

func (r *Room) Code() RoomCode        { return r.code }
func (r *Room) HostID() ConnID        { return r.hostID }
func (r *Room) Stage() Stage          { return r.stage }
func (r *Room) FirstPlayerID() ConnID { return r.firstPlayerID }
func (r *Room) Config() GameConfig    { return r.config }
func (r *Room) Timer() Timer          { return r.timer }
func (r *Room) Closed() bool          { return r.closed }
func (r *Room) QuestionCount() int    { return r.questionCount }
func (r *Room) Deadline() time.Time   { return r.deadline }

// Remaining counts the tracks not yet used in the current run.
func (r *Room) Remaining() int {
	return max(len(r.tracks)-r.trackIndex, 0)
}

// Question returns the current question, if one has been presented.
func (r *Room) Question() (Question, bool) {
	if r.question == nil {
		return Question{}, false
	}
	return *r.question, true
}

// PendingRequest reports the question generation the room is waiting for.
func (r *Room) PendingRequest() (QuestionRequest, bool) {
	if r.pending == nil {
		return QuestionRequest{}, false
	}
	return *r.pending, true
}

// Players returns connected players in join order.
func (r *Room) Players() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedSeq < out[j].JoinedSeq })
	return out
}

func (r *Room) Player(conn ConnID) (Player, bool) {
	p, ok := r.players[conn]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Reclaimable reports whether a disconnected player left a snapshot under key.
func (r *Room) Reclaimable(key PlayerKey) bool {
	_, ok := r.reclaim[key]
	return ok
}

// Whitelisted reports whether key was present when the game started.
// Always false while no game is running.
func (r *Room) Whitelisted(key PlayerKey) bool {
	_, ok := r.whitelist[key]
	return ok
}

// AnswerCount is the number of answers recorded for the current question.
func (r *Room) AnswerCount() int { return len(r.answers) }

// OptionCounts returns a copy of the per option tally.
func (r *Room) OptionCounts() []int { return append([]int(nil), r.optionCounts...) }

// DrainEvents hands over every event produced since the last call.
func (r *Room) DrainEvents() []event.Event {
	out := r.outbox
	r.outbox = nil
	return out
}

func (r *Room) canControl(actor ConnID) bool {
	return actor == r.hostID || (r.firstPlayerID != "" && actor == r.firstPlayerID)
}

func (r *Room) connectedKeys() map[PlayerKey]struct{} {
	keys := make(map[PlayerKey]struct{}, len(r.players))
	for _, p := range r.players {
		keys[p.Key()] = struct{}{}
	}
	return keys
}

func (r *Room) clearTimer() {
	r.timerGen++
	r.timer = Timer{Gen: r.timerGen}
}

func (r *Room) arm(kind TimerKind, at time.Time) {
	r.clearTimer()
	r.timer = Timer{Kind: kind, At: at, Gen: r.timerGen}
}

func (r *Room) emit(t event.Type, payload any, now time.Time) {
	r.outbox = append(r.outbox, event.Event{Type: t, Room: string(r.code), Scope: event.ScopeRoom, Payload: payload, At: now})
}

func (r *Room) emitTo(conn ConnID, t event.Type, payload any, now time.Time) {
	r.outbox = append(r.outbox, event.Event{Type: t, Room: string(r.code), Scope: event.ScopeConnection, Target: string(conn), Payload: payload, At: now})
}

func (r *Room) emitSystem(t event.Type, payload any, now time.Time) {
	r.outbox = append(r.outbox, event.Event{Type: t, Room: string(r.code), Scope: event.ScopeSystem, Payload: payload, At: now})
}

func (r *Room) emitState(now time.Time) {
	r.emit(event.RoomUpdate, r.State(), now)
}

// State is the public snapshot broadcast as room:update.
func (r *Room) State() event.RoomState {
	return event.RoomState{
		Code:          string(r.code),
		HostID:        string(r.hostID),
		Stage:         string(r.stage),
		Players:       playerViews(r.Players()),
		FirstPlayerID: string(r.firstPlayerID),
		Config:        r.configView(),
		Remaining:     r.Remaining(),
	}
}

func (r *Room) configView() event.ConfigView {
	return event.ConfigView{
		MaxQuestions:      r.config.MaxQuestions,
		DefaultDurationMs: r.config.DefaultDuration.Milliseconds(),
		RandomizeOnStart:  r.config.RandomizeOnStart,
		SelectedSources:   append([]string{}, r.config.SelectedSources...),
	}
}

func playerViews(players []Player) []event.PlayerView {
	out := make([]event.PlayerView, len(players))
	for i, p := range players {
		out[i] = event.PlayerView{ID: string(p.ID), Name: p.Name, Score: p.Score}
	}
	return out
}

// seedTracks rebuilds the play list: seeded tracks, else the list the start
// request carried, else whatever the source falls back to.
func (r *Room) seedTracks() {
	preferred := r.seeded
	if len(preferred) == 0 {
		preferred = r.requested
	}
	var list []Track
	if r.source != nil {
		list = append(list, r.source.ListFor(r.code, preferred)...)
	} else {
		list = append(list, preferred...)
	}
	if r.config.RandomizeOnStart {
		Shuffle(r.rand, list)
	}
	r.tracks = list
	r.trackIndex = 0
}
