package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mixmatch/contract"
	"mixmatch/domain"
	"mixmatch/errors"
)

const defaultPlayerName = "Player"

// NameModerator masks forbidden words in display names.
type NameModerator interface {
	CensorName(name, fallback string) string
}

type IGameService interface {
	Connect(conn domain.ConnID, sink contract.EventSink)
	Disconnect(ctx context.Context, conn domain.ConnID)
	CreateRoom(ctx context.Context, conn domain.ConnID) (domain.RoomCode, error)
	JoinRoom(ctx context.Context, conn domain.ConnID, code, name string) (domain.JoinResult, error)
	StartGame(ctx context.Context, conn domain.ConnID, code string, tracks []domain.Track) (string, error)
	SubmitAnswer(ctx context.Context, conn domain.ConnID, code, questionID string, answer domain.Answer) error
	Reveal(ctx context.Context, conn domain.ConnID, code string) error
	Advance(ctx context.Context, conn domain.ConnID, code string) error
	PlayAgain(ctx context.Context, conn domain.ConnID, code string) (string, error)
	ToLobby(ctx context.Context, conn domain.ConnID, code string) error
	UpdateConfig(ctx context.Context, conn domain.ConnID, code string, patch domain.ConfigPatch) (domain.GameConfig, error)
	SeedTracks(ctx context.Context, conn domain.ConnID, code string, tracks []domain.Track) (int, error)
	SendEmote(ctx context.Context, conn domain.ConnID, code, image string) error
}

// GameService bridges connections and rooms: it remembers which room each
// connection is in and turns gateway actions into room commands.
type GameService struct {
	log          *slog.Logger
	orchestrator contract.IOrchestrator
	registry     contract.IRegistry
	moderator    NameModerator

	mu       sync.RWMutex
	sessions map[domain.ConnID]domain.RoomCode
}

func NewGameService(log *slog.Logger, orchestrator contract.IOrchestrator, registry contract.IRegistry, moderator NameModerator) *GameService {
	return &GameService{
		log:          log,
		orchestrator: orchestrator,
		registry:     registry,
		moderator:    moderator,
		sessions:     make(map[domain.ConnID]domain.RoomCode),
	}
}

func (s *GameService) Connect(conn domain.ConnID, sink contract.EventSink) {
	s.registry.Register(conn, sink)
	s.log.Debug("Connection registered", "conn", conn)
}

// Disconnect removes conn from its room, which closes the room when conn hosted it.
func (s *GameService) Disconnect(ctx context.Context, conn domain.ConnID) {
	s.leaveCurrent(ctx, conn)
	s.registry.Unregister(conn)
	s.log.Debug("Connection unregistered", "conn", conn)
}

func (s *GameService) CreateRoom(ctx context.Context, conn domain.ConnID) (domain.RoomCode, error) {
	s.leaveCurrent(ctx, conn)
	code, err := s.orchestrator.CreateRoom(ctx, conn)
	if err != nil {
		return "", err
	}
	s.bind(conn, code)
	return code, nil
}

func (s *GameService) JoinRoom(ctx context.Context, conn domain.ConnID, code, name string) (domain.JoinResult, error) {
	target := domain.ParseRoomCode(code)
	if target == "" {
		return domain.JoinResult{}, errors.ErrNoSuchRoom
	}
	if current, ok := s.roomOf(conn); ok && current != target {
		s.leaveCurrent(ctx, conn)
	}
	if s.moderator != nil {
		name = s.moderator.CensorName(name, defaultPlayerName)
	}
	res, err := s.orchestrator.Dispatch(ctx, target, domain.JoinRoomCommand{Conn: conn, Name: name})
	if err != nil {
		return domain.JoinResult{}, err
	}
	s.bind(conn, target)
	return res.(domain.JoinResult), nil
}

func (s *GameService) StartGame(ctx context.Context, conn domain.ConnID, code string, tracks []domain.Track) (string, error) {
	res, err := s.dispatch(ctx, conn, code, domain.StartGameCommand{Conn: conn, Tracks: tracks})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (s *GameService) SubmitAnswer(ctx context.Context, conn domain.ConnID, code, questionID string, answer domain.Answer) error {
	_, err := s.dispatch(ctx, conn, code, domain.SubmitAnswerCommand{Conn: conn, QuestionID: questionID, Answer: answer})
	return err
}

func (s *GameService) Reveal(ctx context.Context, conn domain.ConnID, code string) error {
	_, err := s.dispatch(ctx, conn, code, domain.RevealCommand{Conn: conn})
	return err
}

func (s *GameService) Advance(ctx context.Context, conn domain.ConnID, code string) error {
	_, err := s.dispatch(ctx, conn, code, domain.AdvanceCommand{Conn: conn})
	return err
}

func (s *GameService) PlayAgain(ctx context.Context, conn domain.ConnID, code string) (string, error) {
	res, err := s.dispatch(ctx, conn, code, domain.PlayAgainCommand{Conn: conn})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (s *GameService) ToLobby(ctx context.Context, conn domain.ConnID, code string) error {
	_, err := s.dispatch(ctx, conn, code, domain.ToLobbyCommand{Conn: conn})
	return err
}

func (s *GameService) UpdateConfig(ctx context.Context, conn domain.ConnID, code string, patch domain.ConfigPatch) (domain.GameConfig, error) {
	res, err := s.dispatch(ctx, conn, code, domain.UpdateConfigCommand{Conn: conn, Patch: patch})
	if err != nil {
		return domain.GameConfig{}, err
	}
	return res.(domain.GameConfig), nil
}

func (s *GameService) SeedTracks(ctx context.Context, conn domain.ConnID, code string, tracks []domain.Track) (int, error) {
	res, err := s.dispatch(ctx, conn, code, domain.SeedTracksCommand{Conn: conn, Tracks: tracks})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

func (s *GameService) SendEmote(ctx context.Context, conn domain.ConnID, code, image string) error {
	_, err := s.dispatch(ctx, conn, code, domain.SendEmoteCommand{Conn: conn, Image: image})
	return err
}

// dispatch runs cmd on the room named by code, or on the connection's room when code is empty.
func (s *GameService) dispatch(ctx context.Context, conn domain.ConnID, code string, cmd domain.Command) (any, error) {
	target := domain.ParseRoomCode(code)
	if target == "" {
		current, ok := s.roomOf(conn)
		if !ok {
			return nil, errors.ErrNotInRoom
		}
		target = current
	}
	res, err := s.orchestrator.Dispatch(ctx, target, cmd)
	if errors.Is(err, errors.ErrNoSuchRoom) {
		s.unbind(conn, target)
	}
	if errors.IsServerError(err) {
		s.log.Error("Command failed", "conn", conn, "room", target, "command", fmt.Sprintf("%T", cmd), "error", err)
	}
	return res, err
}

func (s *GameService) leaveCurrent(ctx context.Context, conn domain.ConnID) {
	code, ok := s.roomOf(conn)
	if !ok {
		return
	}
	s.unbind(conn, code)
	res, err := s.orchestrator.Dispatch(ctx, code, domain.LeaveCommand{Conn: conn})
	if errors.Is(err, errors.ErrNoSuchRoom) {
		return
	}
	if err != nil {
		s.log.Warn("Leaving room failed", "conn", conn, "room", code, "error", err)
		return
	}
	if hostLeft, _ := res.(bool); hostLeft {
		s.log.Info("Host left, room closed", "conn", conn, "room", code)
	}
}

func (s *GameService) roomOf(conn domain.ConnID) (domain.RoomCode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.sessions[conn]
	return code, ok
}

func (s *GameService) bind(conn domain.ConnID, code domain.RoomCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[conn] = code
}

// unbind forgets conn only if it is still bound to code.
func (s *GameService) unbind(conn domain.ConnID, code domain.RoomCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[conn] == code {
		delete(s.sessions, conn)
	}
}
