package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inkboard/inkboard/board"
	"github.com/inkboard/inkboard/internal/config"
	"github.com/inkboard/inkboard/internal/hub"
)

type fakeStore struct {
	rooms map[string]*board.RoomState
}

func (f *fakeStore) CreateRoom(ctx context.Context, title string) (*board.Room, error) {
	room := &board.Room{ID: board.NewRoomID(), Title: title}
	f.rooms[room.ID] = &board.RoomState{
		Room:       *room,
		Strokes:    []board.Stroke{},
		TextBlocks: []board.TextBlock{},
	}
	return room, nil
}

func (f *fakeStore) RoomState(ctx context.Context, roomID string) (*board.RoomState, error) {
	state, ok := f.rooms[roomID]
	if !ok {
		return nil, errors.New("no rows")
	}
	return state, nil
}

func (f *fakeStore) UpdateRoomTitle(ctx context.Context, id, title string) error {
	if state, ok := f.rooms[id]; ok {
		state.Room.Title = title
	}
	return nil
}

func (f *fakeStore) DeleteRoom(ctx context.Context, id string) error {
	delete(f.rooms, id)
	return nil
}

// hubStore adapts fakeStore to the hub's wider contract; the websocket
// path is not exercised here.
type hubStore struct{ *fakeStore }

func (hubStore) CreateStroke(context.Context, *board.Stroke) error { return nil }
func (hubStore) UpdateStrokePoints(context.Context, string, []board.Point) error {
	return nil
}
func (hubStore) CreateTextBlock(context.Context, *board.TextBlock) error { return nil }
func (hubStore) UpdateTextBlock(context.Context, string, *board.TextBlockPatch) error {
	return nil
}
func (hubStore) DeleteTextBlock(context.Context, string) error { return nil }
func (hubStore) ClearRoom(context.Context, string) error       { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore) {
	t.Helper()
	store := &fakeStore{rooms: map[string]*board.RoomState{}}
	cfg := &config.Config{Mode: "release", AllowedOrigins: []string{"http://localhost:5173"}}
	router := SetupRouter(cfg, hub.New(hubStore{store}), store)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, store
}

func TestCreateRoomDefaultsTitle(t *testing.T) {
	server, store := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/rooms", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST /api/rooms: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, want 201", resp.StatusCode)
	}
	if len(store.rooms) != 1 {
		t.Fatal("room not created")
	}
	for _, state := range store.rooms {
		if state.Room.Title == "" {
			t.Error("default title not generated")
		}
	}
}

func TestCreateRoomWithTitle(t *testing.T) {
	server, store := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/rooms", "application/json", strings.NewReader(`{"title":"Standup"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	for _, state := range store.rooms {
		if state.Room.Title != "Standup" {
			t.Errorf("title %q, want Standup", state.Room.Title)
		}
	}
}

func TestGetRoomNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/rooms/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func TestUpdateRoomTitle(t *testing.T) {
	server, store := newTestServer(t)
	room, _ := store.CreateRoom(context.Background(), "Old")

	req, _ := http.NewRequest(http.MethodPut, server.URL+"/api/rooms/"+room.ID+"/title", strings.NewReader(`{"title":"New"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status %d, want 204", resp.StatusCode)
	}
	if got := store.rooms[room.ID].Room.Title; got != "New" {
		t.Errorf("title %q, want New", got)
	}

	// Missing title is rejected.
	req, _ = http.NewRequest(http.MethodPut, server.URL+"/api/rooms/"+room.ID+"/title", strings.NewReader(`{}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}
}

func TestDeleteRoom(t *testing.T) {
	server, store := newTestServer(t)
	room, _ := store.CreateRoom(context.Background(), "Doomed")

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/rooms/"+room.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status %d, want 204", resp.StatusCode)
	}
	if _, ok := store.rooms[room.ID]; ok {
		t.Error("room not deleted")
	}
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d, want 200", resp.StatusCode)
	}
}
