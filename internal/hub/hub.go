// Package hub owns room membership and fan-out. One Hub serves the
// whole process; every live websocket is a Session registered in
// exactly one room. Mutations are persisted by the session before the
// hub broadcasts them, so a dropped fan-out frame never loses durable
// state.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inkboard/inkboard/board"
	"github.com/inkboard/inkboard/wire"
)

// Store is the persistence contract the hub and its sessions consume.
type Store interface {
	RoomState(ctx context.Context, roomID string) (*board.RoomState, error)
	CreateStroke(ctx context.Context, stroke *board.Stroke) error
	UpdateStrokePoints(ctx context.Context, strokeID string, points []board.Point) error
	CreateTextBlock(ctx context.Context, tb *board.TextBlock) error
	UpdateTextBlock(ctx context.Context, id string, patch *board.TextBlockPatch) error
	DeleteTextBlock(ctx context.Context, id string) error
	ClearRoom(ctx context.Context, roomID string) error
}

// palette is the repeating participant color sequence. Assignment is
// join-order mod len(palette); collisions past eight members are fine.
var palette = []string{
	"#FF3B30", // red
	"#007AFF", // blue
	"#34C759", // green
	"#FF9500", // orange
	"#AF52DE", // purple
	"#5AC8FA", // cyan
	"#FF2D55", // pink
	"#FFCC00", // yellow
}

// Hub is the registry of live connections per room.
type Hub struct {
	store Store

	mu    sync.RWMutex
	rooms map[string]map[*Session]bool
}

func New(store Store) *Hub {
	return &Hub{
		store: store,
		rooms: make(map[string]map[*Session]bool),
	}
}

// Register adds a session to its room, assigns its color from the
// current room size, and announces the join. The room snapshot is
// fetched asynchronously and delivered only if the session is still
// registered once the fetch returns.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()

	room := h.rooms[s.RoomID]
	if room == nil {
		room = make(map[*Session]bool)
		h.rooms[s.RoomID] = room
	}

	s.Color = palette[len(room)%len(palette)]
	room[s] = true

	log.Info().Str("module", "hub").Str("session", s.ID).Str("room", s.RoomID).
		Int("members", len(room)).Msg("session joined")

	h.broadcastLocked(s.RoomID, wire.ParticipantJoin{
		Participant: s.Participant(),
	}, s)

	h.mu.Unlock()

	go h.sendRoomState(s)
}

// Unregister removes a session, closes its outbound queue, announces
// the leave, and drops the room entry once the last member is gone.
// In-memory cleanup only; persisted content is untouched.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[s.RoomID]
	if !ok || !room[s] {
		return
	}

	delete(room, s)
	s.closeSend()

	log.Info().Str("module", "hub").Str("session", s.ID).Str("room", s.RoomID).
		Int("members", len(room)).Msg("session left")

	h.broadcastLocked(s.RoomID, wire.ParticipantLeave{ParticipantID: s.ID}, nil)

	if len(room) == 0 {
		delete(h.rooms, s.RoomID)
		log.Info().Str("module", "hub").Str("room", s.RoomID).Msg("room empty, dropped")
	}
}

// Broadcast fans a message out to every session in the room except
// exclude. Enqueue is non-blocking: a full queue drops the frame for
// that recipient only.
func (h *Hub) Broadcast(roomID string, msg wire.ServerMessage, exclude *Session) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcastLocked(roomID, msg, exclude)
}

// broadcastLocked assumes the caller holds the lock (either mode). It
// only enqueues to bounded per-session buffers, never performs I/O.
func (h *Hub) broadcastLocked(roomID string, msg wire.ServerMessage, exclude *Session) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	data, err := wire.EncodeServer(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Str("type", msg.Type()).Msg("encode broadcast")
		return
	}

	for s := range room {
		if s == exclude {
			continue
		}
		if err := s.trySend(data); err != nil {
			log.Warn().Str("module", "hub").Str("session", s.ID).Str("type", msg.Type()).
				Msg("send buffer full, frame dropped")
		}
	}
}

// Participants returns the current member list of a room.
func (h *Hub) Participants(roomID string) []board.Participant {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []board.Participant
	for s := range h.rooms[roomID] {
		out = append(out, s.Participant())
	}
	return out
}

// sendRoomState fetches the snapshot and delivers it to a freshly
// registered session. The session may disconnect during the fetch;
// presence is re-checked after resuming and absence is a silent no-op.
func (h *Hub) sendRoomState(s *Session) {
	ctx := context.Background()

	start := time.Now()
	state, err := h.store.RoomState(ctx, s.RoomID)
	if d := time.Since(start); d > 100*time.Millisecond {
		log.Warn().Str("module", "hub").Str("room", s.RoomID).Dur("took", d).Msg("slow room state read")
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "hub").Str("room", s.RoomID).Msg("room state read failed, sending empty state")
		// Brand-new rooms have no persisted row yet.
		state = &board.RoomState{
			Room:       board.Room{ID: s.RoomID, Title: "Untitled"},
			Strokes:    []board.Stroke{},
			TextBlocks: []board.TextBlock{},
		}
	}

	h.mu.RLock()
	room, ok := h.rooms[s.RoomID]
	if !ok || !room[s] {
		h.mu.RUnlock()
		log.Info().Str("module", "hub").Str("session", s.ID).Msg("session gone before room state send")
		return
	}
	var participants []board.Participant
	for member := range room {
		participants = append(participants, member.Participant())
	}
	h.mu.RUnlock()

	data, err := wire.EncodeServer(wire.RoomState{State: state, Participants: participants})
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("encode room state")
		return
	}

	if err := s.trySend(data); err != nil {
		log.Warn().Str("module", "hub").Str("session", s.ID).Msg("room state dropped, send buffer full")
	}
}
