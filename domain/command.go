package domain

import (
	"time"
)

// Command is one serialized operation on a room. Apply runs on the room's
// worker goroutine and its result is handed back to the caller.
type Command interface {
	Apply(r *Room, now time.Time) (any, error)
}

type JoinRoomCommand struct {
	Conn ConnID
	Name string
}

func (c JoinRoomCommand) Apply(r *Room, now time.Time) (any, error) {
	return r.Join(c.Conn, c.Name, now)
}

// LeaveCommand reports whether the room must close because the host left.
type LeaveCommand struct {
	Conn ConnID
}

func (c LeaveCommand) Apply(r *Room, now time.Time) (any, error) {
	hostLeft := r.Leave(c.Conn, now)
	if hostLeft {
		r.Close(now)
	}
	return hostLeft, nil
}

type StartGameCommand struct {
	Conn   ConnID
	Tracks []Track
}

func (c StartGameCommand) Apply(r *Room, now time.Time) (any, error) {
	return r.StartGame(c.Conn, c.Tracks, now)
}

type SubmitAnswerCommand struct {
	Conn       ConnID
	QuestionID string
	Answer     Answer
}

func (c SubmitAnswerCommand) Apply(r *Room, now time.Time) (any, error) {
	return r.SubmitAnswer(c.Conn, c.QuestionID, c.Answer, now)
}

type RevealCommand struct {
	Conn ConnID
}

func (c RevealCommand) Apply(r *Room, now time.Time) (any, error) {
	return nil, r.RevealNow(c.Conn, now)
}

type AdvanceCommand struct {
	Conn ConnID
}

func (c AdvanceCommand) Apply(r *Room, now time.Time) (any, error) {
	return nil, r.Advance(c.Conn, now)
}

type PlayAgainCommand struct {
	Conn ConnID
}

func (c PlayAgainCommand) Apply(r *Room, now time.Time) (any, error) {
	return r.PlayAgain(c.Conn, now)
}

type ToLobbyCommand struct {
	Conn ConnID
}

func (c ToLobbyCommand) Apply(r *Room, now time.Time) (any, error) {
	return nil, r.ToLobby(c.Conn, now)
}

type UpdateConfigCommand struct {
	Conn  ConnID
	Patch ConfigPatch
}

func (c UpdateConfigCommand) Apply(r *Room, now time.Time) (any, error) {
	return r.UpdateConfig(c.Conn, c.Patch, now)
}

type SeedTracksCommand struct {
	Conn   ConnID
	Tracks []Track
}

func (c SeedTracksCommand) Apply(r *Room, now time.Time) (any, error) {
	return r.SeedTracks(c.Conn, c.Tracks, now)
}

type SendEmoteCommand struct {
	Conn  ConnID
	Image string
}

func (c SendEmoteCommand) Apply(r *Room, now time.Time) (any, error) {
	return nil, r.SendEmote(c.Conn, c.Image, now)
}

type CloseCommand struct{}

func (CloseCommand) Apply(r *Room, now time.Time) (any, error) {
	r.Close(now)
	return nil, nil
}

// SnapshotCommand reads the public state without changing anything.
type SnapshotCommand struct{}

func (SnapshotCommand) Apply(r *Room, _ time.Time) (any, error) {
	return r.State(), nil
}
