package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"mixmatch/domain"
	"mixmatch/errors"
	"mixmatch/services"

	"github.com/go-playground/validator/v10"
)

// CommandRecorder counts handled commands by type and result.
type CommandRecorder interface {
	Command(typ, result string)
}

// Router decodes inbound messages, calls the game service and builds the ack.
type Router struct {
	log      *slog.Logger
	svc      services.IGameService
	validate *validator.Validate
	recorder CommandRecorder
}

func NewRouter(log *slog.Logger, svc services.IGameService, recorder CommandRecorder) *Router {
	return &Router{log: log, svc: svc, validate: validator.New(), recorder: recorder}
}

type handlerFunc func(r *Router, ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error)

var handlers = map[string]handlerFunc{
	TypeCreateRoom:   (*Router).createRoom,
	TypeJoinRoom:     (*Router).joinRoom,
	TypeStartGame:    (*Router).startGame,
	TypeSubmitAnswer: (*Router).submitAnswer,
	TypeReveal:       (*Router).reveal,
	TypeAdvance:      (*Router).advance,
	TypePlayAgain:    (*Router).playAgain,
	TypeToLobby:      (*Router).toLobby,
	TypeUpdateConfig: (*Router).updateConfig,
	TypeSeedTracks:   (*Router).seedTracks,
	TypeSendEmote:    (*Router).sendEmote,
}

// Handle never fails: every outcome, including a panic, becomes an ack.
func (r *Router) Handle(ctx context.Context, conn domain.ConnID, msg Inbound) (out Outbound) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Handler panicked", "conn", conn, "type", msg.Type, "panic", p)
			out = ack(msg.ID, nil, errors.ErrServerError)
		}
	}()

	h, ok := handlers[msg.Type]
	if !ok {
		return r.done(conn, msg, nil, errors.ErrUnknownType)
	}
	data, err := h(r, ctx, conn, msg.Payload)
	return r.done(conn, msg, data, err)
}

func (r *Router) done(conn domain.ConnID, msg Inbound, data map[string]any, err error) Outbound {
	result := "ok"
	if err != nil {
		result = errors.Kind(err)
	}
	if errors.IsServerError(err) {
		r.log.Error("Command failed", "conn", conn, "type", msg.Type, "error", err)
	}
	if r.recorder != nil {
		r.recorder.Command(msg.Type, result)
	}
	return ack(msg.ID, data, err)
}

// decode unmarshals raw into v and validates it. An absent payload decodes as the zero value.
func (r *Router) decode(raw json.RawMessage, v any) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("%w: %w", errors.ErrInvalidPayload, err)
		}
	}
	if err := r.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidPayload, err)
	}
	return nil
}

func (r *Router) createRoom(ctx context.Context, conn domain.ConnID, _ json.RawMessage) (map[string]any, error) {
	code, err := r.svc.CreateRoom(ctx, conn)
	if err != nil {
		return nil, err
	}
	return map[string]any{"code": code}, nil
}

func (r *Router) joinRoom(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p JoinRoomPayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	res, err := r.svc.JoinRoom(ctx, conn, p.Code, p.Name)
	if err != nil {
		return nil, err
	}
	return map[string]any{"reclaimed": res.Reclaimed, "name": res.Name, "score": res.Score}, nil
}

func (r *Router) startGame(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p StartGamePayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := r.svc.StartGame(ctx, conn, p.Code, toTracks(p.LstTracks))
	if err != nil {
		return nil, err
	}
	return questionID(id), nil
}

func (r *Router) submitAnswer(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p SubmitAnswerPayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	return nil, r.svc.SubmitAnswer(ctx, conn, p.Code, p.QuestionID, p.answer())
}

func (r *Router) reveal(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p CodePayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	return nil, r.svc.Reveal(ctx, conn, p.Code)
}

func (r *Router) advance(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p CodePayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	return nil, r.svc.Advance(ctx, conn, p.Code)
}

func (r *Router) playAgain(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p CodePayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := r.svc.PlayAgain(ctx, conn, p.Code)
	if err != nil {
		return nil, err
	}
	return questionID(id), nil
}

func (r *Router) toLobby(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p CodePayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	return nil, r.svc.ToLobby(ctx, conn, p.Code)
}

func (r *Router) updateConfig(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p UpdateConfigPayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	cfg, err := r.svc.UpdateConfig(ctx, conn, p.Code, p.patch())
	if err != nil {
		return nil, err
	}
	return map[string]any{"config": configView(cfg)}, nil
}

func (r *Router) seedTracks(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p SeedTracksPayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	n, err := r.svc.SeedTracks(ctx, conn, p.Code, toTracks(p.Tracks))
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": n}, nil
}

func (r *Router) sendEmote(ctx context.Context, conn domain.ConnID, raw json.RawMessage) (map[string]any, error) {
	var p EmotePayload
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	return nil, r.svc.SendEmote(ctx, conn, p.Code, p.Image)
}

// questionID is omitted while the first question is still being generated.
func questionID(id string) map[string]any {
	if id == "" {
		return nil
	}
	return map[string]any{"questionId": id}
}
