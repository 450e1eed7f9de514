package event

import (
	"time"
)

type Type string

const (
	RoomUpdate       Type = "room:update"
	QuestionNew      Type = "question:new"
	QuestionMedia    Type = "question:hubMedia"
	QuestionTick     Type = "question:tick"
	ProgressUpdate   Type = "progress:update"
	QuestionReveal   Type = "question:reveal"
	QuestionResult   Type = "question:result"
	GameEnd          Type = "game:end"
	GameLobby        Type = "game:lobby"
	RoomClosed       Type = "room:closed"
	EmoteNew         Type = "emote:new"
	MemberJoined     Type = "member:joined"
	MemberLeft       Type = "member:left"
	GameFinished     Type = "game:finished"
	QuestionFallback Type = "question:fallback"
)

// Scope decides who receives an event.
type Scope int

const (
	// ScopeRoom reaches every connection subscribed to the room.
	ScopeRoom Scope = iota
	// ScopeConnection reaches only Event.Target.
	ScopeConnection
	// ScopeSystem never leaves the process: permanent sinks only.
	ScopeSystem
)

type Event struct {
	Type    Type
	Room    string
	Scope   Scope
	Target  string
	Payload any
	At      time.Time
}

// Internal reports whether the event is meant for in-process consumers only.
func (e Event) Internal() bool {
	return e.Scope == ScopeSystem
}

type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type ConfigView struct {
	MaxQuestions      int      `json:"maxQuestions"`
	DefaultDurationMs int64    `json:"defaultDurationMs"`
	RandomizeOnStart  bool     `json:"randomizeOnStart"`
	SelectedSources   []string `json:"selectedSources"`
}

type RoomState struct {
	Code          string       `json:"code"`
	HostID        string       `json:"hostId"`
	Stage         string       `json:"stage"`
	Players       []PlayerView `json:"players"`
	FirstPlayerID string       `json:"firstPlayerId,omitempty"`
	Config        ConfigView   `json:"config"`
	Remaining     int          `json:"remaining"`
}

type Question struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
	DurationMs  int64    `json:"durationMs"`
	EndsAt      int64    `json:"endsAt"`
	Round       int      `json:"round"`
	TotalRounds int      `json:"totalRounds"`
	Remaining   int      `json:"remaining"`
}

// HubMedia is sent to the host only: it names the track being played.
type HubMedia struct {
	QuestionID string `json:"questionId"`
	AudioURL   string `json:"audioUrl,omitempty"`
	URI        string `json:"uri,omitempty"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"durationMs"`
}

type Tick struct {
	QuestionID string `json:"questionId"`
	Seconds    int    `json:"seconds"`
}

type Progress struct {
	QuestionID string `json:"questionId"`
	Answered   int    `json:"answered"`
	Total      int    `json:"total"`
}

type Reveal struct {
	QuestionID      string `json:"questionId"`
	CorrectIndex    *int   `json:"correctIndex"`
	CorrectAnswer   string `json:"correctAnswer,omitempty"`
	PerOptionCounts []int  `json:"perOptionCounts,omitempty"`
	RevealUntil     int64  `json:"revealUntil"`
}

type Result struct {
	QuestionID  string       `json:"questionId"`
	Leaderboard []PlayerView `json:"leaderboard"`
	ResultUntil int64        `json:"resultUntil"`
	Remaining   int          `json:"remaining"`
}

type End struct {
	Leaderboard []PlayerView `json:"leaderboard"`
	TotalRounds int          `json:"totalRounds"`
}

type Lobby struct {
	Code string `json:"code"`
}

type Closed struct {
	Code string `json:"code"`
}

type Emote struct {
	From  string `json:"from"`
	Name  string `json:"name"`
	Image string `json:"image"`
	At    int64  `json:"at"`
}

type Membership struct {
	ConnID string
}

// Fallback is recorded when the question provider could not serve a round.
type Fallback struct {
	TrackID string
	Reason  string
}

type TrackSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Summary describes a finished game for persistence.
type Summary struct {
	Code         string         `json:"code"`
	TracksPlayed []TrackSummary `json:"tracksPlayed"`
	Players      []PlayerView   `json:"players"`
	Leaderboard  []PlayerView   `json:"leaderboard"`
	Config       ConfigView     `json:"config"`
	TotalRounds  int            `json:"totalRounds"`
	EndedAt      time.Time      `json:"endedAt"`
}
