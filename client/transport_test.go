package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/inkboard/inkboard/board"
	"github.com/inkboard/inkboard/wire"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTestServer upgrades every request and hands the connection to fn.
// It returns the ws:// URL and a counter of accepted connections.
func wsTestServer(t *testing.T, fn func(*websocket.Conn)) (string, *atomic.Int32) {
	t.Helper()
	var accepted atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted.Add(1)
		fn(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http"), &accepted
}

func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func newTestTransport(url string) *Transport {
	return NewTransport(TransportConfig{
		URL:               url,
		ConnectDelay:      time.Millisecond,
		ReconnectInterval: 20 * time.Millisecond,
		MaxReconnects:     3,
		Logger:            zerolog.Nop(),
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectOpensAfterDebounce(t *testing.T) {
	url, accepted := wsTestServer(t, holdOpen)

	tp := newTestTransport(url)
	t.Cleanup(tp.Disconnect)

	if tp.State() != StateIdle {
		t.Errorf("fresh transport in state %s, want idle", tp.State())
	}

	tp.Connect()
	waitFor(t, "open", tp.IsOpen)
	if got := accepted.Load(); got != 1 {
		t.Errorf("%d connections accepted, want 1", got)
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	url, accepted := wsTestServer(t, holdOpen)

	tp := newTestTransport(url)
	t.Cleanup(tp.Disconnect)

	tp.Connect()
	tp.Connect()
	tp.Connect()
	waitFor(t, "open", tp.IsOpen)

	// WakeUp while open is a harmless no-op.
	tp.WakeUp()
	time.Sleep(20 * time.Millisecond)

	if got := accepted.Load(); got != 1 {
		t.Errorf("%d connections accepted, want 1", got)
	}
}

func TestMessagesAreDecodedAndDelivered(t *testing.T) {
	url, _ := wsTestServer(t, func(conn *websocket.Conn) {
		data, _ := wire.EncodeServer(wire.ParticipantJoin{
			Participant: board.Participant{ID: "p1", Color: "#FF3B30"},
		})
		_ = conn.WriteMessage(websocket.TextMessage, data)
		holdOpen(conn)
	})

	tp := newTestTransport(url)
	t.Cleanup(tp.Disconnect)

	got := make(chan wire.ServerMessage, 1)
	tp.OnMessage = func(msg wire.ServerMessage) { got <- msg }
	tp.Connect()

	select {
	case msg := <-got:
		join, ok := msg.(wire.ParticipantJoin)
		if !ok {
			t.Fatalf("got %T, want ParticipantJoin", msg)
		}
		if join.Participant.ID != "p1" {
			t.Errorf("participant %s, want p1", join.Participant.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestReconnectAfterConnectionDrop(t *testing.T) {
	var url string
	var accepted *atomic.Int32
	url, accepted = wsTestServer(t, func(conn *websocket.Conn) {
		// Drop the first connection immediately; keep later ones.
		if accepted.Load() == 1 {
			conn.Close()
			return
		}
		holdOpen(conn)
	})

	tp := newTestTransport(url)
	t.Cleanup(tp.Disconnect)

	opens := make(chan struct{}, 8)
	tp.OnOpen = func() { opens <- struct{}{} }
	tp.Connect()

	for i := 0; i < 2; i++ {
		select {
		case <-opens:
		case <-time.After(2 * time.Second):
			t.Fatalf("open %d never happened", i+1)
		}
	}
	if accepted.Load() < 2 {
		t.Error("no reconnection attempt observed")
	}
}

func TestDisconnectIsTerminal(t *testing.T) {
	url, accepted := wsTestServer(t, holdOpen)

	tp := newTestTransport(url)
	tp.Connect()
	waitFor(t, "open", tp.IsOpen)

	tp.Disconnect()
	waitFor(t, "closed", func() bool { return tp.State() == StateClosed })

	// Reconnect timers and explicit calls must all be suppressed.
	tp.Connect()
	tp.WakeUp()
	time.Sleep(100 * time.Millisecond)

	if got := accepted.Load(); got != 1 {
		t.Errorf("%d connections after terminal disconnect, want 1", got)
	}
	if err := tp.Send(wire.CursorMove{X: 1}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send after disconnect returned %v, want ErrNotConnected", err)
	}
}

func TestPermanentlyDisconnectedAfterCap(t *testing.T) {
	// A server that refuses the upgrade entirely.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	tp := newTestTransport(url)
	t.Cleanup(tp.Disconnect)

	down := make(chan struct{})
	tp.OnDown = func() { close(down) }
	tp.Connect()

	select {
	case <-down:
	case <-time.After(2 * time.Second):
		t.Fatal("permanently-disconnected signal never surfaced")
	}
	if tp.IsOpen() {
		t.Error("transport open after giving up")
	}
}

func TestSendRequiresOpenConnection(t *testing.T) {
	tp := newTestTransport("ws://127.0.0.1:0")
	if err := tp.Send(wire.ClearAll{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send on idle transport returned %v, want ErrNotConnected", err)
	}
}
