package domain

import (
	"time"

	"mixmatch/domain/event"
	"mixmatch/errors"
)

type JoinResult struct {
	Name      string
	Score     int
	Reclaimed bool
}

// Join admits conn under name. While a game runs only whitelisted players
// with a reclaim snapshot and no live connection may come back.
func (r *Room) Join(conn ConnID, name string, now time.Time) (JoinResult, error) {
	if r.closed {
		return JoinResult{}, errors.ErrRoomClosed
	}
	if conn == r.hostID {
		return JoinResult{}, errors.ErrNotAllowed
	}
	if p, ok := r.players[conn]; ok {
		return JoinResult{Name: p.Name, Score: p.Score}, nil
	}

	name = SanitizeName(name)
	key := KeyOf(name)
	connected := r.connectedKeys()
	_, live := connected[key]
	saved, hasSnapshot := r.reclaim[key]

	var result JoinResult
	switch {
	case r.stage != StageLobby:
		if !r.Whitelisted(key) || !hasSnapshot || live {
			return JoinResult{}, errors.ErrRoomLocked
		}
		result = JoinResult{Name: saved.Name, Score: saved.Score, Reclaimed: true}
	case hasSnapshot && !live:
		result = JoinResult{Name: saved.Name, Score: saved.Score, Reclaimed: true}
	default:
		taken := connected
		for k := range r.reclaim {
			taken[k] = struct{}{}
		}
		result = JoinResult{Name: uniqueName(name, taken)}
	}
	if result.Reclaimed {
		delete(r.reclaim, key)
	}

	r.joinSeq++
	r.players[conn] = &Player{ID: conn, Name: result.Name, Score: result.Score, JoinedSeq: r.joinSeq}
	if r.firstPlayerID == "" {
		r.firstPlayerID = conn
	}

	r.emitSystem(event.MemberJoined, event.Membership{ConnID: string(conn)}, now)
	r.syncStage(conn, now)
	r.emitState(now)
	return result, nil
}

// Leave removes a player and keeps a snapshot so they can reclaim their seat.
// It reports true when conn is the host: the room must then be closed.
func (r *Room) Leave(conn ConnID, now time.Time) bool {
	if conn == r.hostID {
		return true
	}
	p, ok := r.players[conn]
	if !ok {
		return false
	}
	r.reclaim[p.Key()] = reclaimEntry{Name: p.Name, Score: p.Score}
	delete(r.players, conn)
	r.emitSystem(event.MemberLeft, event.Membership{ConnID: string(conn)}, now)

	if r.firstPlayerID == conn {
		r.firstPlayerID = ""
		if remaining := r.Players(); len(remaining) > 0 {
			r.firstPlayerID = remaining[0].ID
		}
	}

	if r.stage == StageQuestion && r.question != nil {
		progress := r.progressPayload()
		r.emit(event.ProgressUpdate, progress, now)
		if progress.Answered >= progress.Total {
			r.reveal(now)
		}
	}
	r.emitState(now)
	return false
}

// syncStage brings a late joiner up to date with the running stage.
func (r *Room) syncStage(conn ConnID, now time.Time) {
	switch r.stage {
	case StageQuestion:
		if r.question == nil {
			return
		}
		r.emitTo(conn, event.QuestionNew, r.questionPayload(), now)
		r.emitTo(conn, event.QuestionTick, r.tickPayload(now), now)
		r.emitTo(conn, event.ProgressUpdate, r.progressPayload(), now)
	case StageReveal:
		r.emitTo(conn, event.QuestionReveal, r.revealPayload(), now)
	case StageResult:
		r.emitTo(conn, event.QuestionResult, r.resultPayload(), now)
	case StageGameOver:
		r.emitTo(conn, event.GameEnd, r.endPayload(), now)
	}
}
