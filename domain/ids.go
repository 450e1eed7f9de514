package domain

import (
	"strings"
)

// RoomCode is the short public identifier of a room, always upper-case.
type RoomCode string

// ParseRoomCode normalizes a user supplied code.
func ParseRoomCode(code string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(code)))
}

func (c RoomCode) String() string { return string(c) }

// ConnID identifies one live connection. It is opaque to the engine.
type ConnID string

// PlayerKey is the case-insensitive identity of a player inside a room.
type PlayerKey string

// KeyOf is the only way to build a PlayerKey.
func KeyOf(name string) PlayerKey {
	return PlayerKey(strings.ToLower(strings.TrimSpace(name)))
}

type Stage string

const (
	StageLobby    Stage = "lobby"
	StageQuestion Stage = "question"
	StageReveal   Stage = "reveal"
	StageResult   Stage = "result"
	StageGameOver Stage = "gameover"
)
