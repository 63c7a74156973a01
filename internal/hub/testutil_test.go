package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/inkboard/inkboard/board"
	"github.com/inkboard/inkboard/wire"
)

// fakeStore is an in-memory Store. Set fail to make every mutation
// error; snapshotGate, when non-nil, blocks RoomState reads until
// closed, which pins down orderings that are otherwise racy in tests.
type fakeStore struct {
	mu           sync.Mutex
	strokes      map[string]*board.Stroke
	textBlocks   map[string]*board.TextBlock
	fail         bool
	snapshotGate chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		strokes:    make(map[string]*board.Stroke),
		textBlocks: make(map[string]*board.TextBlock),
	}
}

var errStoreDown = errors.New("store down")

func (f *fakeStore) RoomState(ctx context.Context, roomID string) (*board.RoomState, error) {
	if f.snapshotGate != nil {
		<-f.snapshotGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errStoreDown
	}
	state := &board.RoomState{
		Room:       board.Room{ID: roomID, Title: "Test"},
		Strokes:    []board.Stroke{},
		TextBlocks: []board.TextBlock{},
	}
	for _, s := range f.strokes {
		if s.RoomID == roomID {
			state.Strokes = append(state.Strokes, *s)
		}
	}
	for _, tb := range f.textBlocks {
		if tb.RoomID == roomID {
			state.TextBlocks = append(state.TextBlocks, *tb)
		}
	}
	return state, nil
}

func (f *fakeStore) CreateStroke(ctx context.Context, stroke *board.Stroke) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.strokes[stroke.ID] = stroke
	return nil
}

func (f *fakeStore) UpdateStrokePoints(ctx context.Context, strokeID string, points []board.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	if s, ok := f.strokes[strokeID]; ok {
		s.Points = points
	}
	return nil
}

func (f *fakeStore) CreateTextBlock(ctx context.Context, tb *board.TextBlock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.textBlocks[tb.ID] = tb
	return nil
}

func (f *fakeStore) UpdateTextBlock(ctx context.Context, id string, patch *board.TextBlockPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	if tb, ok := f.textBlocks[id]; ok {
		patch.Apply(tb)
	}
	return nil
}

func (f *fakeStore) DeleteTextBlock(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	delete(f.textBlocks, id)
	return nil
}

func (f *fakeStore) ClearRoom(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	for id, s := range f.strokes {
		if s.RoomID == roomID {
			delete(f.strokes, id)
		}
	}
	for id, tb := range f.textBlocks {
		if tb.RoomID == roomID {
			delete(f.textBlocks, id)
		}
	}
	return nil
}

func (f *fakeStore) strokeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.strokes)
}

// fakeConn satisfies Conn without a network. The pumps are not started
// in these tests; dispatch is driven directly.
type fakeConn struct{}

func (fakeConn) ReadMessage() (int, []byte, error)    { select {} }
func (fakeConn) WriteMessage(int, []byte) error       { return nil }
func (fakeConn) SetWriteDeadline(time.Time) error     { return nil }
func (fakeConn) SetReadDeadline(time.Time) error      { return nil }
func (fakeConn) SetReadLimit(int64)                   {}
func (fakeConn) SetPongHandler(func(string) error)    {}
func (fakeConn) Close() error                         { return nil }

// newTestSession registers a session with its pumps stopped, so queued
// frames can be inspected straight off the send channel.
func newTestSession(t *testing.T, h *Hub, roomID string) *Session {
	t.Helper()
	s := NewSession(h, fakeConn{}, roomID, "", SessionConfig{SendBuffer: 16})
	h.Register(s)
	return s
}

// recvServer pops the next queued frame and decodes it.
func recvServer(t *testing.T, s *Session) wire.ServerMessage {
	t.Helper()
	select {
	case data, ok := <-s.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		msg, err := wire.DecodeServer(data)
		if err != nil {
			t.Fatalf("undecodable frame: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
	}
	return nil
}

// expectNone asserts no frame is queued for s.
func expectNone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case data, ok := <-s.send:
		if ok {
			msg, _ := wire.DecodeServer(data)
			t.Fatalf("unexpected frame queued: %#v", msg)
		}
	default:
	}
}

// drain discards everything currently queued for s.
func drain(s *Session) {
	for {
		select {
		case <-s.send:
		default:
			return
		}
	}
}

func mustEncodeClient(t *testing.T, msg wire.ClientMessage) []byte {
	t.Helper()
	data, err := wire.EncodeClient(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}
