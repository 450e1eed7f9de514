package domain

import (
	"math"
	"strings"
	"time"

	"mixmatch/domain/event"
	"mixmatch/errors"

	"github.com/samber/lo"
)

// beginQuestion moves to the next track, or ends the game when the run is
// exhausted. Recognition rounds are built locally; anything else is left
// pending until the runtime answers through ApplyQuestion.
func (r *Room) beginQuestion(now time.Time) {
	r.clearTimer()
	r.pending = nil
	if r.questionCount >= r.config.MaxQuestions || r.trackIndex >= len(r.tracks) {
		r.endGame(now)
		return
	}

	track := r.tracks[r.trackIndex]
	r.trackIndex++
	r.stage = StageQuestion
	r.track = track
	r.question = nil
	r.answers = make(map[PlayerKey]Answer)
	r.optionCounts = nil
	r.deadline, r.revealUntil, r.resultUntil = time.Time{}, time.Time{}, time.Time{}

	if track.Playable() && r.rand.IntN(2) == 0 {
		r.present(RecognitionQuestion(track), now)
		return
	}
	r.requestSeq++
	r.pending = &QuestionRequest{Seq: r.requestSeq, Track: track}
}

// ApplyQuestion completes a pending request. A nil genErr means q is used,
// anything else swaps in the fallback question. It reports false when the
// request is no longer pending, in which case nothing changes.
func (r *Room) ApplyQuestion(seq uint64, q Question, genErr error, now time.Time) bool {
	if r.closed || r.pending == nil || r.pending.Seq != seq || r.stage != StageQuestion {
		return false
	}
	if genErr == nil {
		genErr = q.Validate()
	}
	if genErr != nil {
		r.emitSystem(event.QuestionFallback, event.Fallback{TrackID: r.track.ID, Reason: genErr.Error()}, now)
		q = FallbackQuestion(r.track, r.rand)
	}
	r.present(q, now)
	return true
}

func (r *Room) present(q Question, now time.Time) {
	r.pending = nil
	if q.Media == nil && (r.track.PreviewURL != "" || r.track.URI != "") {
		q.Media = &Media{AudioURL: r.track.PreviewURL, URI: r.track.URI}
	}
	r.question = &q
	r.answers = make(map[PlayerKey]Answer)
	if mc, ok := q.Body.(MultipleChoice); ok {
		r.optionCounts = make([]int, len(mc.Options))
	}
	r.deadline = now.Add(r.config.DefaultDuration)
	r.questionCount++
	r.played = append(r.played, r.track)

	r.emit(event.QuestionNew, r.questionPayload(), now)
	if q.Media != nil {
		r.emitTo(r.hostID, event.QuestionMedia, r.mediaPayload(), now)
	}
	r.emit(event.QuestionTick, r.tickPayload(now), now)
	r.emit(event.ProgressUpdate, r.progressPayload(), now)
	r.armTick(now)
}

func (r *Room) armTick(now time.Time) {
	next := now.Add(TickInterval)
	if next.After(r.deadline) {
		next = r.deadline
	}
	r.arm(TimerTick, next)
}

// OnTimer handles a timer firing. Firings whose generation is not the armed
// one are ignored.
func (r *Room) OnTimer(gen uint64, now time.Time) {
	if r.closed || r.timer.Kind == TimerNone || r.timer.Gen != gen {
		return
	}
	kind := r.timer.Kind
	r.clearTimer()
	switch kind {
	case TimerTick:
		if r.stage != StageQuestion || r.question == nil {
			return
		}
		r.emit(event.QuestionTick, r.tickPayload(now), now)
		if !now.Before(r.deadline) {
			r.reveal(now)
			return
		}
		r.armTick(now)
	case TimerReveal:
		if r.stage == StageReveal {
			r.result(now)
		}
	case TimerResult:
		if r.stage == StageResult {
			r.afterResult(now)
		}
	}
}

// SubmitAnswer records the first answer of a joined player before the
// deadline. Late, duplicate and unknown submissions are accepted and ignored.
func (r *Room) SubmitAnswer(actor ConnID, questionID string, a Answer, now time.Time) (bool, error) {
	if r.question == nil || r.question.ID != questionID {
		return false, errors.ErrNoActiveQuestion
	}
	if r.stage != StageQuestion || !now.Before(r.deadline) {
		return false, nil
	}
	p, ok := r.players[actor]
	if !ok {
		return false, nil
	}
	key := p.Key()
	if _, done := r.answers[key]; done {
		return false, nil
	}

	switch body := r.question.Body.(type) {
	case MultipleChoice:
		if a.Choice < 0 || a.Choice >= len(body.Options) {
			return false, errors.ErrInvalidPayload
		}
		r.optionCounts[a.Choice]++
		r.answers[key] = Answer{Choice: a.Choice}
	case Recognition:
		r.answers[key] = Answer{Choice: -1, Text: strings.TrimSpace(a.Text)}
	}

	progress := r.progressPayload()
	r.emit(event.ProgressUpdate, progress, now)
	if progress.Answered >= progress.Total {
		r.reveal(now)
	}
	return true, nil
}

func (r *Room) reveal(now time.Time) {
	if r.stage != StageQuestion || r.question == nil {
		return
	}
	r.clearTimer()
	r.stage = StageReveal
	r.revealUntil = now.Add(RevealDuration)
	r.emit(event.QuestionReveal, r.revealPayload(), now)
	r.arm(TimerReveal, r.revealUntil)
}

func (r *Room) result(now time.Time) {
	if r.stage != StageReveal {
		return
	}
	r.clearTimer()
	for _, p := range r.players {
		if a, ok := r.answers[p.Key()]; ok && IsCorrect(*r.question, r.track, a) {
			p.Score++
		}
	}
	r.stage = StageResult
	r.resultUntil = now.Add(ResultDuration)
	r.emit(event.QuestionResult, r.resultPayload(), now)
	r.emitState(now)
	r.arm(TimerResult, r.resultUntil)
}

func (r *Room) afterResult(now time.Time) {
	if r.questionCount >= r.config.MaxQuestions {
		r.endGame(now)
		return
	}
	r.beginQuestion(now)
}

func (r *Room) endGame(now time.Time) {
	r.clearTimer()
	r.pending = nil
	r.stage = StageGameOver
	r.emit(event.GameEnd, r.endPayload(), now)
	r.emitSystem(event.GameFinished, r.summary(now), now)
}

// answeredCount only counts answers of players still connected.
func (r *Room) answeredCount() int {
	n := 0
	for _, p := range r.players {
		if _, ok := r.answers[p.Key()]; ok {
			n++
		}
	}
	return n
}

func (r *Room) questionPayload() event.Question {
	q := r.question
	return event.Question{
		ID:          q.ID,
		Type:        q.Kind(),
		Prompt:      q.Prompt,
		Options:     q.Choices(),
		DurationMs:  r.config.DefaultDuration.Milliseconds(),
		EndsAt:      r.deadline.UnixMilli(),
		Round:       r.questionCount,
		TotalRounds: r.config.MaxQuestions,
		Remaining:   r.Remaining(),
	}
}

func (r *Room) mediaPayload() event.HubMedia {
	return event.HubMedia{
		QuestionID: r.question.ID,
		AudioURL:   r.question.Media.AudioURL,
		URI:        r.question.Media.URI,
		Title:      r.track.Title,
		Artist:     r.track.Artist,
		DurationMs: r.config.DefaultDuration.Milliseconds(),
	}
}

func (r *Room) tickPayload(now time.Time) event.Tick {
	left := math.Ceil(r.deadline.Sub(now).Seconds())
	return event.Tick{QuestionID: r.question.ID, Seconds: max(int(left), 0)}
}

func (r *Room) progressPayload() event.Progress {
	return event.Progress{QuestionID: r.question.ID, Answered: r.answeredCount(), Total: len(r.players)}
}

func (r *Room) revealPayload() event.Reveal {
	out := event.Reveal{QuestionID: r.question.ID, RevealUntil: r.revealUntil.UnixMilli()}
	switch body := r.question.Body.(type) {
	case MultipleChoice:
		out.CorrectIndex = lo.ToPtr(body.CorrectIndex)
		out.CorrectAnswer = body.Options[body.CorrectIndex]
		out.PerOptionCounts = append([]int{}, r.optionCounts...)
	case Recognition:
		out.CorrectAnswer = r.track.Title
	}
	return out
}

func (r *Room) resultPayload() event.Result {
	return event.Result{
		QuestionID:  r.question.ID,
		Leaderboard: playerViews(Leaderboard(r.Players())),
		ResultUntil: r.resultUntil.UnixMilli(),
		Remaining:   r.Remaining(),
	}
}

func (r *Room) endPayload() event.End {
	return event.End{Leaderboard: playerViews(Leaderboard(r.Players())), TotalRounds: r.questionCount}
}

func (r *Room) summary(now time.Time) event.Summary {
	players := r.Players()
	return event.Summary{
		Code: string(r.code),
		TracksPlayed: lo.Map(r.played, func(t Track, _ int) event.TrackSummary {
			return event.TrackSummary{ID: t.ID, Title: t.Title, Artist: t.Artist}
		}),
		Players:     playerViews(players),
		Leaderboard: playerViews(Leaderboard(players)),
		Config:      r.configView(),
		TotalRounds: r.questionCount,
		EndedAt:     now,
	}
}
