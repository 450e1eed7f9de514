package domain

import (
	"time"

	"mixmatch/domain/event"
	"mixmatch/errors"
)

// StartGame freezes the whitelist, seeds the run and begins the first
// question. tracks is only used when the host did not seed the room and
// only for this run: a start without tracks falls back to the source.
// The returned id is empty while the first question is still being generated.
func (r *Room) StartGame(actor ConnID, tracks []Track, now time.Time) (string, error) {
	if !r.canControl(actor) {
		return "", errors.ErrNotAllowed
	}
	if r.stage != StageLobby {
		return "", errors.ErrAlreadyStarted
	}
	r.whitelist = r.connectedKeys()
	r.requested = NormalizeTracks(tracks)
	r.prepareRun()
	r.beginQuestion(now)
	return r.currentQuestionID(), nil
}

// PlayAgain restarts a finished or running game with the same whitelist.
func (r *Room) PlayAgain(actor ConnID, now time.Time) (string, error) {
	if !r.canControl(actor) {
		return "", errors.ErrNotAllowed
	}
	if r.stage == StageLobby {
		return "", errors.ErrBadStage
	}
	r.clearTimer()
	r.resetScores()
	r.prepareRun()
	r.emitState(now)
	r.beginQuestion(now)
	return r.currentQuestionID(), nil
}

// ToLobby aborts whatever is running and reopens the room to anyone.
func (r *Room) ToLobby(actor ConnID, now time.Time) error {
	if !r.canControl(actor) {
		return errors.ErrNotAllowed
	}
	r.clearTimer()
	r.resetScores()
	r.resetRound()
	r.stage = StageLobby
	r.questionCount = 0
	r.played = nil
	r.whitelist = nil
	r.requested = nil
	r.reclaim = make(map[PlayerKey]reclaimEntry)
	r.emoteCooldown = make(map[PlayerKey]time.Time)
	r.seedTracks()
	r.emitState(now)
	r.emit(event.GameLobby, event.Lobby{Code: string(r.code)}, now)
	return nil
}

// RevealNow lets the host cut the answering phase short.
func (r *Room) RevealNow(actor ConnID, now time.Time) error {
	if actor != r.hostID {
		return errors.ErrNotHost
	}
	r.reveal(now)
	return nil
}

// Advance skips the remaining reveal or result time.
func (r *Room) Advance(actor ConnID, now time.Time) error {
	if !r.canControl(actor) {
		return errors.ErrNotAllowed
	}
	switch r.stage {
	case StageReveal:
		r.result(now)
	case StageResult:
		r.afterResult(now)
	default:
		return errors.ErrBadStage
	}
	return nil
}

func (r *Room) UpdateConfig(actor ConnID, patch ConfigPatch, now time.Time) (GameConfig, error) {
	if actor != r.hostID {
		return GameConfig{}, errors.ErrNotHost
	}
	if r.stage != StageLobby {
		return GameConfig{}, errors.ErrAlreadyStarted
	}
	r.config = r.config.Apply(patch)
	r.emitState(now)
	return r.config, nil
}

// SeedTracks replaces the room's play list with host supplied tracks.
func (r *Room) SeedTracks(actor ConnID, tracks []Track, now time.Time) (int, error) {
	if actor != r.hostID {
		return 0, errors.ErrNotHost
	}
	if r.stage != StageLobby {
		return 0, errors.ErrAlreadyStarted
	}
	valid := NormalizeTracks(tracks)
	if len(valid) == 0 {
		return 0, errors.ErrNoValidTracks
	}
	r.seeded = valid
	r.seedTracks()
	r.emitState(now)
	return len(valid), nil
}

// Close stops every timer and tells every connection the room is gone.
func (r *Room) Close(now time.Time) {
	if r.closed {
		return
	}
	r.clearTimer()
	r.pending = nil
	r.closed = true
	r.emit(event.RoomClosed, event.Closed{Code: string(r.code)}, now)
}

func (r *Room) prepareRun() {
	r.resetRound()
	r.questionCount = 0
	r.played = nil
	r.seedTracks()
	r.config.MaxQuestions = min(r.config.MaxQuestions, len(r.tracks))
}

func (r *Room) resetRound() {
	r.pending = nil
	r.question = nil
	r.track = Track{}
	r.answers = make(map[PlayerKey]Answer)
	r.optionCounts = nil
	r.deadline, r.revealUntil, r.resultUntil = time.Time{}, time.Time{}, time.Time{}
}

func (r *Room) resetScores() {
	for _, p := range r.players {
		p.Score = 0
	}
	for key, entry := range r.reclaim {
		entry.Score = 0
		r.reclaim[key] = entry
	}
}

func (r *Room) currentQuestionID() string {
	if r.question == nil {
		return ""
	}
	return r.question.ID
}
