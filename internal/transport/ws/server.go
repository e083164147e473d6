// Package ws serves the call websocket: binary frames are audio turns, text
// frames adjust the connection's engine overrides.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/speechcoach/coach/internal/config"
	"github.com/speechcoach/coach/internal/domain"
	"github.com/speechcoach/coach/internal/hub"
	"github.com/speechcoach/coach/internal/protocol"
	"github.com/speechcoach/coach/internal/service"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	service  *service.Service
	turns    *sessionLocks
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		turns:   newSessionLocks(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the websocket endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/ws/call/:session_id", s.HandleWebSocket)
}

// HandleWebSocket upgrades the request and binds the socket to the session
// named in the path. Query parameters model, speaker and tts_model seed the
// connection's overrides.
func (s *Server) HandleWebSocket(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: domain.ErrorBody{
			Code:    domain.Code(domain.ErrInvalidInput),
			Message: "session_id is required",
		}})
	}
	opts := domain.GenerationOptions{
		Model:    c.QueryParam("model"),
		Speaker:  c.QueryParam("speaker"),
		TTSModel: c.QueryParam("tts_model"),
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("failed to upgrade websocket", "session_id", sessionID, "error", err)
		return err
	}

	conn := s.hub.NewConnection(ws, sessionID)
	s.hub.Register(conn)
	if prev := s.hub.Bind(sessionID, conn); prev != nil {
		// Closing the send channel makes prev's writePump send a close frame.
		s.hub.Unregister(prev)
	}

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn, opts)

	return nil
}

// readPump reads frames until the socket closes or is superseded. Audio
// frames are queued for turnLoop so a client going away is noticed while a
// turn is still running.
func (s *Server) readPump(conn *hub.Connection, opts domain.GenerationOptions) {
	frames := make(chan audioFrame, maxQueuedFrames)
	go s.turnLoop(conn, frames)

	defer func() {
		close(frames)
		s.hub.Unregister(conn)
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		msgType, data, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", "session_id", conn.SessionID, "conn_id", conn.ID, "error", err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if !s.bound(conn) {
				logger.Info("dropping audio from superseded connection", "session_id", conn.SessionID, "conn_id", conn.ID)
				return
			}
			select {
			case frames <- audioFrame{audio: data, opts: opts}:
			default:
				logger.Warn("turn queue full, dropping audio", "session_id", conn.SessionID, "conn_id", conn.ID)
				s.hub.SendToConnection(conn, protocol.Error("busy: too many queued turns"))
			}
		case websocket.TextMessage:
			opts = s.handleText(conn, data, opts)
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
}

// writePump writes queued events and keeps the socket alive with pings.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.hub.Unregister(conn)
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("failed to write message", "session_id", conn.SessionID, "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// turnLoop runs the connection's queued turns one at a time. A frame still
// queued when the connection closes or is superseded is dropped; a turn
// already running completes.
func (s *Server) turnLoop(conn *hub.Connection, frames <-chan audioFrame) {
	for f := range frames {
		s.handleAudio(conn, f)
	}
}

func (s *Server) handleAudio(conn *hub.Connection, f audioFrame) {
	logger.Info("audio frame received", "session_id", conn.SessionID, "bytes", len(f.audio))

	unlock := s.turns.Lock(conn.SessionID)
	defer unlock()

	if !s.bound(conn) {
		logger.Info("dropping queued audio", "session_id", conn.SessionID, "conn_id", conn.ID, "bytes", len(f.audio))
		return
	}

	// The request context ends with the upgrade handler, so turns get their own.
	_, _ = s.service.RunTurn(context.Background(), domain.TurnRequest{
		SessionID: conn.SessionID,
		Audio:     f.audio,
		Options:   f.opts,
	}, s.hub)
}

// bound reports whether conn is still the session's live connection.
func (s *Server) bound(conn *hub.Connection) bool {
	live, ok := s.hub.Lookup(conn.SessionID)
	return ok && live == conn
}

// handleText applies a config frame. Anything else is answered with an
// error event and the connection stays open.
func (s *Server) handleText(conn *hub.Connection, data []byte, opts domain.GenerationOptions) domain.GenerationOptions {
	var msg protocol.ConfigMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != protocol.TypeConfig {
		logger.Warn("malformed frame", "session_id", conn.SessionID, "code", domain.Code(domain.ErrTransport), "bytes", len(data))
		s.hub.SendToConnection(conn, protocol.Error("malformed frame: expected binary audio or a config message"))
		return opts
	}

	if msg.Model != nil {
		opts.Model = *msg.Model
	}
	if msg.Speaker != nil {
		opts.Speaker = *msg.Speaker
	}
	if msg.TTSModel != nil {
		opts.TTSModel = *msg.TTSModel
	}
	logger.Info("connection config updated", "session_id", conn.SessionID,
		"model", opts.Model, "speaker", opts.Speaker, "tts_model", opts.TTSModel)
	return opts
}
