package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/inkboard/inkboard/board"
)

var ErrBackpressure = errors.New("backpressure")

// Conn is an indirection over *websocket.Conn to ease testing.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	Close() error
}

// SessionConfig carries the per-connection transport tuning.
type SessionConfig struct {
	ReadLimit    int64
	SendBuffer   int
	PingPeriod   time.Duration
	WriteTimeout time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.ReadLimit <= 0 {
		c.ReadLimit = 1 << 20
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = 54 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// Session is one live connection in a room: an inbound reader that
// dispatches messages sequentially and an outbound writer draining a
// bounded queue. Identity exists only for the life of the connection.
type Session struct {
	ID     string
	RoomID string
	Color  string
	Name   string

	hub  *Hub
	conn Conn
	cfg  SessionConfig

	send chan []byte

	mu     sync.RWMutex
	closed bool
}

// NewSession builds a session around an accepted connection. The
// caller must Register it and then Start the pumps.
func NewSession(h *Hub, conn Conn, roomID, name string, cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		ID:     uuid.New().String(),
		RoomID: roomID,
		Name:   name,
		hub:    h,
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
	}
}

// Participant is the session's public identity for wire messages.
func (s *Session) Participant() board.Participant {
	return board.Participant{ID: s.ID, Color: s.Color, Name: s.Name}
}

// trySend enqueues a frame without blocking. Liveness is checked first
// so a racing unregister never sends on a closed channel.
func (s *Session) trySend(data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("session closed")
	}
	select {
	case s.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// closeSend shuts the outbound queue exactly once. Called by the hub
// under its membership lock during unregister.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// Start launches the read and write pumps.
func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

// readPump reads and dispatches inbound messages one at a time, so
// persistence and broadcast for message N finish before N+1 starts.
// Exit unregisters the session.
func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		_ = s.conn.Close()
	}()

	pongWait := s.cfg.PingPeriod + s.cfg.WriteTimeout
	s.conn.SetReadLimit(s.cfg.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(data)
	}
}

// writePump drains the outbound queue and keeps the connection alive
// with periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			if !ok {
				_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
