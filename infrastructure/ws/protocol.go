package ws

import (
	"encoding/json"
	"strconv"
	"time"

	"mixmatch/domain"
	"mixmatch/errors"
)

// Inbound types.
const (
	TypeCreateRoom   = "host:createRoom"
	TypeJoinRoom     = "player:joinRoom"
	TypeStartGame    = "game:startGame"
	TypeSubmitAnswer = "answer:submit"
	TypeReveal       = "game:reveal"
	TypeAdvance      = "game:advance"
	TypePlayAgain    = "game:playAgain"
	TypeToLobby      = "game:toLobby"
	TypeUpdateConfig = "game:updateConfig"
	TypeSeedTracks   = "game:seedTracks"
	TypeSendEmote    = "emote:send"

	TypeAck = "ack"
)

// Inbound is one client message. ID is echoed back in the ack.
type Inbound struct {
	ID      int64           `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound is either an ack (ID set) or a room event.
type Outbound struct {
	Type    string `json:"type"`
	ID      *int64 `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type CodePayload struct {
	Code string `json:"code" validate:"max=16"`
}

type JoinRoomPayload struct {
	Code string `json:"code" validate:"required,max=16"`
	Name string `json:"name" validate:"max=128"`
}

type TrackPayload struct {
	ID         string `json:"id" validate:"max=256"`
	Title      string `json:"title" validate:"max=512"`
	Name       string `json:"name" validate:"max=512"`
	Artist     string `json:"artist" validate:"max=512"`
	PreviewURL string `json:"previewUrl" validate:"omitempty,url,max=2048"`
	URI        string `json:"uri" validate:"max=512"`
}

type StartGamePayload struct {
	Code      string         `json:"code" validate:"max=16"`
	LstTracks []TrackPayload `json:"lstTracks" validate:"max=500,dive"`
}

type SubmitAnswerPayload struct {
	Code        string  `json:"code" validate:"max=16"`
	QuestionID  string  `json:"questionId" validate:"required,max=64"`
	AnswerIndex *int    `json:"answerIndex"`
	Text        *string `json:"text" validate:"omitempty,max=256"`
}

type UpdateConfigPayload struct {
	Code                string   `json:"code" validate:"max=16"`
	MaxQuestions        *int     `json:"maxQuestions"`
	DurationMs          *int64   `json:"durationMs"`
	RandomizeOnStart    *bool    `json:"randomizeOnStart"`
	SelectedPlaylistIDs []string `json:"selectedPlaylistIDs" validate:"max=100,dive,max=256"`
}

type SeedTracksPayload struct {
	Code   string         `json:"code" validate:"max=16"`
	Tracks []TrackPayload `json:"tracks" validate:"max=500,dive"`
}

type EmotePayload struct {
	Code  string `json:"code" validate:"max=16"`
	Image string `json:"image"`
}

func toTracks(in []TrackPayload) []domain.Track {
	out := make([]domain.Track, 0, len(in))
	for _, t := range in {
		title := t.Title
		if title == "" {
			title = t.Name
		}
		out = append(out, domain.Track{ID: t.ID, Title: title, Artist: t.Artist, PreviewURL: t.PreviewURL, URI: t.URI})
	}
	return out
}

// answer keeps both forms: an index sent for a recognition round is read as
// its decimal text.
func (p SubmitAnswerPayload) answer() domain.Answer {
	a := domain.Answer{Choice: -1}
	if p.AnswerIndex != nil {
		a.Choice = *p.AnswerIndex
		a.Text = strconv.Itoa(*p.AnswerIndex)
	}
	if p.Text != nil {
		a.Text = *p.Text
	}
	return a
}

func (p UpdateConfigPayload) patch() domain.ConfigPatch {
	patch := domain.ConfigPatch{
		MaxQuestions:     p.MaxQuestions,
		RandomizeOnStart: p.RandomizeOnStart,
		SelectedSources:  p.SelectedPlaylistIDs,
	}
	if p.DurationMs != nil {
		d := time.Duration(*p.DurationMs) * time.Millisecond
		patch.DefaultDuration = &d
	}
	return patch
}

func configView(c domain.GameConfig) map[string]any {
	return map[string]any{
		"maxQuestions":        c.MaxQuestions,
		"defaultDurationMs":   c.DefaultDuration.Milliseconds(),
		"randomizeOnStart":    c.RandomizeOnStart,
		"selectedPlaylistIDs": c.SelectedSources,
	}
}

// ack builds the acknowledgement of message id: {"ok":true,...data} or
// {"ok":false,"error":KIND} with "wait" seconds for a cooldown.
func ack(id int64, data map[string]any, err error) Outbound {
	payload := map[string]any{"ok": err == nil}
	if err != nil {
		payload["error"] = errors.Kind(err)
		var cooldown *errors.CooldownError
		if errors.As(err, &cooldown) {
			payload["wait"] = cooldown.Wait
		}
	} else {
		for k, v := range data {
			payload[k] = v
		}
	}
	return Outbound{Type: TypeAck, ID: &id, Payload: payload}
}
