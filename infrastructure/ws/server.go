// Package ws is the websocket gateway: one connection per client, JSON
// envelopes in, acks and room events out.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mixmatch/domain"
	"mixmatch/errors"
	"mixmatch/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

// ConnectionRecorder tracks open connections.
type ConnectionRecorder interface {
	ConnectionOpened()
	ConnectionClosed()
}

type Config struct {
	BufferSize     int
	RateLimit      float64
	RateBurst      int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
	// AllowedOrigins lists the browser origins accepted on upgrade. "*"
	// accepts any; an empty list keeps the same-origin check.
	AllowedOrigins []string
}

type Server struct {
	log      *slog.Logger
	svc      services.IGameService
	router   *Router
	recorder ConnectionRecorder
	cfg      Config
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, svc services.IGameService, router *Router, recorder ConnectionRecorder, cfg Config) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		// Emotes are data urls up to 250 000 chars
		cfg.MaxMessageSize = 512 << 10
	}
	return &Server{
		log:      log,
		svc:      svc,
		router:   router,
		recorder: recorder,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
	}
}

// checkOrigin returns nil for an empty list so gorilla applies its
// same-origin default.
func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if lo.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return lo.ContainsBy(allowed, func(a string) bool { return strings.EqualFold(a, origin) })
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("WS upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn := domain.ConnID(uuid.NewString())
	log := s.log.With("conn", conn)
	sink := NewSink(s.cfg.BufferSize)
	acks := make(chan Outbound, 16)

	s.svc.Connect(conn, sink)
	if s.recorder != nil {
		s.recorder.ConnectionOpened()
	}
	log.Info("Connection opened", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(ctx, socket, sink, acks)
		// A dead writer must unblock the reader too.
		_ = socket.Close()
	}()

	s.readPump(ctx, conn, socket, acks, writerDone, log)

	cancel()
	<-writerDone
	s.svc.Disconnect(context.Background(), conn)
	if s.recorder != nil {
		s.recorder.ConnectionClosed()
	}
	log.Info("Connection closed")
}

func (s *Server) readPump(ctx context.Context, conn domain.ConnID, socket *websocket.Conn, acks chan<- Outbound, writerDone <-chan struct{}, log *slog.Logger) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimit), max(s.cfg.RateBurst, 1))
	if s.cfg.RateLimit <= 0 {
		limiter.SetLimit(rate.Inf)
	}
	socket.SetReadLimit(s.cfg.MaxMessageSize)
	idle := 2 * s.cfg.PingInterval
	_ = socket.SetReadDeadline(time.Now().Add(idle))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Read failed", "error", err)
			}
			return
		}
		_ = socket.SetReadDeadline(time.Now().Add(idle))

		var msg Inbound
		var out Outbound
		switch {
		case json.Unmarshal(data, &msg) != nil:
			out = ack(0, nil, errors.ErrInvalidPayload)
		case !limiter.Allow():
			out = ack(msg.ID, nil, errors.ErrRateLimited)
		default:
			out = s.router.Handle(ctx, conn, msg)
		}

		select {
		case acks <- out:
		case <-writerDone:
			return
		}
	}
}

// writePump is the only writer of the socket.
func (s *Server) writePump(ctx context.Context, socket *websocket.Conn, sink *Sink, acks <-chan Outbound) {
	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()
	for {
		var out Outbound
		select {
		case <-ctx.Done():
			_ = socket.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			_ = socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ping.C:
			_ = socket.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case out = <-acks:
		case out = <-sink.Events():
		}
		_ = socket.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := socket.WriteJSON(out); err != nil {
			s.log.Debug("Write failed", "type", out.Type, "error", err)
			return
		}
	}
}
