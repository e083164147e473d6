// Package hub tracks live websocket connections and the session each one is
// bound to, so turn events can reach the right client.
package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/speechcoach/coach/internal/protocol"
	"github.com/speechcoach/coach/internal/telemetry"
)

const sendBufferSize = 256

// Connection represents a single WebSocket connection.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte

	mu        sync.Mutex
	closeOnce sync.Once
}

// Hub maps each session to its live connection. A session has at most one
// bound connection; binding another supersedes it.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Sessions maps session_id to the bound connection
	sessions map[string]*Connection

	metrics *telemetry.Metrics
	mu      sync.RWMutex
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(metrics *telemetry.Metrics) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]*Connection),
		metrics:     metrics,
	}
}

// NewConnection creates a connection for ws. ws may be nil for connections
// that are only read through Send.
func (h *Hub) NewConnection(ws *websocket.Conn, sessionID string) *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Conn:      ws,
		Send:      make(chan []byte, sendBufferSize),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	n := len(h.connections)
	h.mu.Unlock()
	h.metrics.SetActiveConnections(n)
	logger.Info("connection registered", "conn_id", conn.ID, "session_id", conn.SessionID)
}

// Unregister removes a connection, releases its session binding and closes
// its send channel.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	_, ok := h.connections[conn.ID]
	if ok {
		delete(h.connections, conn.ID)
		if h.sessions[conn.SessionID] == conn {
			delete(h.sessions, conn.SessionID)
		}
		conn.closeOnce.Do(func() { close(conn.Send) })
	}
	n := len(h.connections)
	h.mu.Unlock()
	if ok {
		h.metrics.SetActiveConnections(n)
		logger.Info("connection unregistered", "conn_id", conn.ID, "session_id", conn.SessionID)
	}
}

// Bind makes conn the live connection of sessionID and returns the
// connection it superseded, if any.
func (h *Hub) Bind(sessionID string, conn *Connection) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.sessions[sessionID]
	conn.SessionID = sessionID
	h.sessions[sessionID] = conn
	if prev == conn {
		return nil
	}
	if prev != nil {
		logger.Info("connection superseded", "session_id", sessionID, "old_conn_id", prev.ID, "conn_id", conn.ID)
	}
	return prev
}

// Unbind removes whatever connection is bound to sessionID.
func (h *Hub) Unbind(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

// Release unbinds conn only if it is still the session's live connection,
// so a closing socket never unbinds its successor.
func (h *Hub) Release(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[conn.SessionID] != conn {
		return false
	}
	delete(h.sessions, conn.SessionID)
	return true
}

// Lookup returns the connection bound to sessionID.
func (h *Hub) Lookup(sessionID string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.sessions[sessionID]
	return conn, ok
}

// Send delivers an event to the session's live connection without blocking.
// It reports whether the event was queued; with no connection bound it only
// logs.
func (h *Hub) Send(sessionID string, ev protocol.Event) bool {
	data, err := protocol.Encode(ev)
	if err != nil {
		logger.Error("encode event", "session_id", sessionID, "type", ev.Type(), "error", err)
		return false
	}

	h.mu.RLock()
	conn, ok := h.sessions[sessionID]
	if !ok {
		h.mu.RUnlock()
		logger.Warn("no connection bound, dropping event", "session_id", sessionID, "type", ev.Type())
		return false
	}
	if _, live := h.connections[conn.ID]; !live {
		// Bound but never registered or already unregistered; Send may be closed.
		h.mu.RUnlock()
		logger.Warn("connection gone, dropping event", "session_id", sessionID, "type", ev.Type())
		return false
	}
	queued := true
	select {
	case conn.Send <- data:
	default:
		queued = false
	}
	h.mu.RUnlock()

	if !queued {
		// Buffer full, close the connection
		logger.Warn("connection buffer full, closing", "session_id", sessionID, "conn_id", conn.ID)
		go func() {
			h.Unregister(conn)
			_ = conn.Close()
		}()
	}
	return queued
}

// SendToConnection delivers an event to conn regardless of which session is
// bound, for replies that concern that socket only.
func (h *Hub) SendToConnection(conn *Connection, ev protocol.Event) bool {
	data, err := protocol.Encode(ev)
	if err != nil {
		logger.Error("encode event", "conn_id", conn.ID, "type", ev.Type(), "error", err)
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, live := h.connections[conn.ID]; !live {
		return false
	}
	select {
	case conn.Send <- data:
		return true
	default:
		logger.Warn("connection buffer full, dropping event", "conn_id", conn.ID, "type", ev.Type())
		return false
	}
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GetSessionCount returns the number of sessions with a bound connection.
func (h *Hub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	if c.Conn == nil {
		return nil
	}
	return c.Conn.Close()
}
