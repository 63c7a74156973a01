// Package client embeds a canvas room in a Go application: a
// reconnecting websocket transport plus a sync engine that keeps a
// durable local cache and pending-action log, so edits made offline
// replay once connectivity returns.
package client

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/inkboard/inkboard/wire"
)

// Transport connection states.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var ErrNotConnected = errors.New("client: transport not open")

// TransportConfig tunes the connection lifecycle.
type TransportConfig struct {
	// URL is the websocket endpoint including the room path.
	URL string
	// ConnectDelay debounces the first dial so rapid mount/unmount
	// cycles in the host application do not leak sockets.
	ConnectDelay time.Duration
	// ReconnectInterval between attempts after a non-intentional close.
	ReconnectInterval time.Duration
	// MaxReconnects caps retry attempts; past it the transport stays
	// down and OnDown fires.
	MaxReconnects int

	Logger zerolog.Logger
}

func (c TransportConfig) withDefaults() TransportConfig {
	if c.ConnectDelay <= 0 {
		c.ConnectDelay = 100 * time.Millisecond
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = 3 * time.Second
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = 10
	}
	return c
}

// Transport owns the physical connection: dial, reconnect with backoff,
// intentional close, and wake-triggered reconnect.
type Transport struct {
	cfg    TransportConfig
	dialer *websocket.Dialer
	log    zerolog.Logger

	// OnMessage receives every decoded server frame. OnOpen fires after
	// each successful (re)connect. OnDown fires once when the retry cap
	// is exhausted. Set before Connect.
	OnMessage func(wire.ServerMessage)
	OnOpen    func()
	OnDown    func()

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	attempts    int
	intentional bool
	timer       *time.Timer

	writeMu sync.Mutex
}

func NewTransport(cfg TransportConfig) *Transport {
	cfg = cfg.withDefaults()
	return &Transport{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		log:    cfg.Logger.With().Str("module", "client.transport").Logger(),
		state:  StateIdle,
	}
}

// Connect is idempotent: a no-op while Open or Connecting. The first
// dial is delayed by ConnectDelay; an intentional Disconnect suppresses
// everything that follows.
func (t *Transport) Connect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.intentional || t.state == StateOpen || t.state == StateConnecting {
		return
	}
	t.scheduleDialLocked(t.cfg.ConnectDelay)
}

// WakeUp is the host environment's visibility/focus-regain hook: an
// extra Connect to recover quickly from suspended background states.
func (t *Transport) WakeUp() {
	t.Connect()
}

// Disconnect is terminal for this instance: it suppresses all future
// reconnection attempts and closes any open socket.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.intentional = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	t.state = StateClosed
	t.log.Info().Msg("disconnected intentionally")
}

// State reports the current lifecycle state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsOpen reports whether frames can be sent right now.
func (t *Transport) IsOpen() bool {
	return t.State() == StateOpen
}

// Send encodes and writes one client frame. Fails fast when not open;
// the caller's pending log is what protects the edit, not this call.
func (t *Transport) Send(msg wire.ClientMessage) error {
	data, err := wire.EncodeClient(msg)
	if err != nil {
		return err
	}
	return t.SendRaw(data)
}

// SendRaw writes an already-encoded frame (used by log replay).
func (t *Transport) SendRaw(data []byte) error {
	t.mu.Lock()
	if t.state != StateOpen || t.conn == nil {
		t.mu.Unlock()
		return ErrNotConnected
	}
	conn := t.conn
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// scheduleDialLocked arms the dial timer. Caller holds t.mu.
func (t *Transport) scheduleDialLocked(delay time.Duration) {
	t.state = StateConnecting
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(delay, t.dial)
}

func (t *Transport) dial() {
	t.mu.Lock()
	if t.intentional || t.state != StateConnecting {
		t.mu.Unlock()
		return
	}
	url := t.cfg.URL
	t.mu.Unlock()

	conn, _, err := t.dialer.Dial(url, nil)

	t.mu.Lock()
	if t.intentional {
		t.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		t.log.Warn().Err(err).Int("attempt", t.attempts).Msg("dial failed")
		t.retryLocked()
		t.mu.Unlock()
		return
	}

	t.conn = conn
	t.state = StateOpen
	t.attempts = 0
	t.mu.Unlock()

	t.log.Info().Str("url", url).Msg("connected")
	if t.OnOpen != nil {
		t.OnOpen()
	}
	go t.readLoop(conn)
}

// readLoop decodes inbound frames until the connection drops, then
// routes through the reconnection policy.
func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		msg, err := wire.DecodeServer(data)
		if err != nil {
			t.log.Warn().Err(err).Msg("dropped undecodable frame")
			continue
		}
		if t.OnMessage != nil {
			t.OnMessage(msg)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// A newer connection may already have replaced this one.
	if t.conn != conn {
		return
	}
	_ = conn.Close()
	t.conn = nil
	if t.intentional {
		t.state = StateClosed
		return
	}
	t.state = StateClosed
	t.log.Warn().Msg("connection lost")
	t.retryLocked()
}

// retryLocked schedules the next attempt or gives up at the cap.
// Caller holds t.mu.
func (t *Transport) retryLocked() {
	t.attempts++
	if t.attempts > t.cfg.MaxReconnects {
		t.state = StateClosed
		t.log.Error().Int("attempts", t.attempts-1).Msg("reconnect attempts exhausted, staying offline")
		if t.OnDown != nil {
			go t.OnDown()
		}
		return
	}
	t.scheduleDialLocked(t.cfg.ReconnectInterval)
}
