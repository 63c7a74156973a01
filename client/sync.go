package client

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkboard/inkboard/board"
	"github.com/inkboard/inkboard/client/localstore"
	"github.com/inkboard/inkboard/wire"
)

// Sender is the transport surface the engine needs. *Transport
// implements it.
type Sender interface {
	IsOpen() bool
	Send(wire.ClientMessage) error
	SendRaw(data []byte) error
}

// Engine keeps one room's local truth: the durable entity cache, the
// ordered pending-action log, and the reconciliation of authoritative
// snapshots with unconfirmed local intent.
//
// All public methods are serialized by one mutex; the replay pass is
// additionally guarded by an in-progress flag so a reconnect and a
// manual sync cannot overlap.
type Engine struct {
	roomID string
	store  *localstore.Store
	conn   Sender
	log    zerolog.Logger

	// OnEvent surfaces applied server messages to the embedding UI
	// (presence, cursors, remote deltas, the merged snapshot).
	OnEvent func(wire.ServerMessage)

	replayDelay time.Duration

	mu        sync.Mutex
	replaying bool
}

// NewEngine builds a sync engine for one room.
func NewEngine(roomID string, store *localstore.Store, conn Sender, logger zerolog.Logger) *Engine {
	return &Engine{
		roomID:      roomID,
		store:       store,
		conn:        conn,
		log:         logger.With().Str("module", "client.sync").Str("room", roomID).Logger(),
		replayDelay: 50 * time.Millisecond,
	}
}

// AddStroke applies a locally drawn stroke: optimistic cache write,
// durable log append, then a fire-and-forget send when connected. The
// log entry survives until a replay pass confirms a send.
func (e *Engine) AddStroke(stroke board.Stroke) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	stroke.RoomID = e.roomID
	if err := e.store.PutStroke(stroke); err != nil {
		return err
	}
	return e.logAndSend(wire.StrokeAdd{Stroke: &stroke})
}

// UpdateStroke replaces a stroke's whole point sequence.
func (e *Engine) UpdateStroke(strokeID string, points []board.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.UpdateStrokePoints(strokeID, points); err != nil {
		return err
	}
	return e.logAndSend(wire.StrokeUpdate{StrokeID: strokeID, Points: points})
}

// AddText applies a locally created text block.
func (e *Engine) AddText(tb board.TextBlock) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tb.RoomID = e.roomID
	if err := e.store.PutTextBlock(tb); err != nil {
		return err
	}
	return e.logAndSend(wire.TextAdd{TextBlock: &tb})
}

// UpdateText applies a partial text block patch.
func (e *Engine) UpdateText(textBlockID string, patch *board.TextBlockPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.PatchTextBlock(textBlockID, patch); err != nil {
		return err
	}
	return e.logAndSend(wire.TextUpdate{TextBlockID: textBlockID, Patch: patch})
}

// DeleteText removes a text block locally and queues the deletion.
func (e *Engine) DeleteText(textBlockID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.DeleteTextBlock(textBlockID); err != nil {
		return err
	}
	return e.logAndSend(wire.TextDelete{TextBlockID: textBlockID})
}

// ClearAll wipes the local cache and queues the room-wide clear.
func (e *Engine) ClearAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.ClearRoom(e.roomID); err != nil {
		return err
	}
	return e.logAndSend(wire.ClearAll{})
}

// MoveCursor is ephemeral presence: sent when connected, never cached
// or logged.
func (e *Engine) MoveCursor(x, y float64) {
	if !e.conn.IsOpen() {
		return
	}
	if err := e.conn.Send(wire.CursorMove{X: x, Y: y}); err != nil {
		e.log.Debug().Err(err).Msg("cursor send failed")
	}
}

// logAndSend appends the durable pending action and attempts an
// immediate send. The send is fire-and-forget: failure leaves the log
// entry in place and replay covers it later. Caller holds e.mu.
func (e *Engine) logAndSend(msg wire.ClientMessage) error {
	payload, err := wire.EncodeClient(msg)
	if err != nil {
		return err
	}
	if err := e.store.AppendAction(e.roomID, msg.Type(), payload); err != nil {
		return err
	}

	if e.conn.IsOpen() {
		if err := e.conn.SendRaw(payload); err != nil {
			e.log.Debug().Err(err).Str("type", msg.Type()).Msg("eager send failed, log has it")
		}
	}
	return nil
}

// HandleServer applies one decoded server message. Wire it to
// Transport.OnMessage.
func (e *Engine) HandleServer(msg wire.ServerMessage) {
	if snapshot, ok := msg.(wire.RoomState); ok {
		merged, err := e.Reconcile(snapshot)
		if err != nil {
			e.log.Error().Err(err).Msg("reconcile failed")
			return
		}
		if e.OnEvent != nil {
			e.OnEvent(wire.RoomState{State: merged, Participants: snapshot.Participants})
		}
		go e.Replay()
		return
	}

	e.applyRemote(msg)

	if e.OnEvent != nil {
		e.OnEvent(msg)
	}
}

// applyRemote folds a peer's delta into the local cache. Presence and
// cursor events carry no durable state and pass straight through.
func (e *Engine) applyRemote(msg wire.ServerMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch m := msg.(type) {
	case wire.StrokeAdded:
		if err := e.store.PutStroke(*m.Stroke); err != nil {
			e.log.Error().Err(err).Msg("apply remote stroke")
		}
	case wire.StrokeUpdated:
		if err := e.store.UpdateStrokePoints(m.StrokeID, m.Points); err != nil {
			e.log.Error().Err(err).Msg("apply remote stroke update")
		}
	case wire.TextAdded:
		if err := e.store.PutTextBlock(*m.TextBlock); err != nil {
			e.log.Error().Err(err).Msg("apply remote text block")
		}
	case wire.TextUpdated:
		if err := e.store.PatchTextBlock(m.TextBlockID, m.Patch); err != nil {
			e.log.Error().Err(err).Msg("apply remote text update")
		}
	case wire.TextDeleted:
		if err := e.store.DeleteTextBlock(m.TextBlockID); err != nil {
			e.log.Error().Err(err).Msg("apply remote text delete")
		}
	case wire.Cleared:
		if err := e.store.ClearRoom(e.roomID); err != nil {
			e.log.Error().Err(err).Msg("apply remote clear")
		}
	case wire.Error:
		e.log.Warn().Str("error", m.Message).Msg("server error reply")
	}
}
