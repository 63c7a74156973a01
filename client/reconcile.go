package client

import (
	"time"

	"github.com/inkboard/inkboard/board"
	"github.com/inkboard/inkboard/client/localstore"
	"github.com/inkboard/inkboard/wire"
)

// pendingSets is the derived view of the pending log: per entity kind,
// the ids with unresolved add/update intent and the ids with unresolved
// delete intent. An id is in at most one set; the latest action wins.
// A queued clear_all resets everything that preceded it.
type pendingSets struct {
	cleared       bool
	dirtyStrokes  map[string]bool
	dirtyText     map[string]bool
	deletedText   map[string]bool
	deletedStroke map[string]bool
}

// derivePendingSets scans the log chronologically. An add/update after
// a delete un-deletes the id; a delete after an add/update moves it to
// the tombstone set.
func derivePendingSets(actions []localstore.Action) (pendingSets, error) {
	sets := pendingSets{
		dirtyStrokes:  map[string]bool{},
		dirtyText:     map[string]bool{},
		deletedText:   map[string]bool{},
		deletedStroke: map[string]bool{},
	}

	for _, a := range actions {
		msg, err := wire.DecodeClient(a.Payload)
		if err != nil {
			return sets, err
		}
		switch m := msg.(type) {
		case wire.StrokeAdd:
			sets.dirtyStrokes[m.Stroke.ID] = true
			delete(sets.deletedStroke, m.Stroke.ID)
		case wire.StrokeUpdate:
			sets.dirtyStrokes[m.StrokeID] = true
			delete(sets.deletedStroke, m.StrokeID)
		case wire.TextAdd:
			sets.dirtyText[m.TextBlock.ID] = true
			delete(sets.deletedText, m.TextBlock.ID)
		case wire.TextUpdate:
			sets.dirtyText[m.TextBlockID] = true
			delete(sets.deletedText, m.TextBlockID)
		case wire.TextDelete:
			sets.deletedText[m.TextBlockID] = true
			delete(sets.dirtyText, m.TextBlockID)
		case wire.ClearAll:
			sets.cleared = true
			sets.dirtyStrokes = map[string]bool{}
			sets.dirtyText = map[string]bool{}
			sets.deletedText = map[string]bool{}
			sets.deletedStroke = map[string]bool{}
		}
	}
	return sets, nil
}

// Reconcile merges an authoritative snapshot with the pending log:
// server entities minus tombstones, local versions overlaid for every
// dirty id (optimistic-local-wins, whole entity). Server entities with
// no pending intent refresh the cache; dirty ids are never overwritten
// with server data.
func (e *Engine) Reconcile(snapshot wire.RoomState) (*board.RoomState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	actions, err := e.store.Actions(e.roomID)
	if err != nil {
		return nil, err
	}
	sets, err := derivePendingSets(actions)
	if err != nil {
		return nil, err
	}

	if err := e.store.UpsertRoom(snapshot.State.Room); err != nil {
		return nil, err
	}

	merged := &board.RoomState{
		Room:       snapshot.State.Room,
		Strokes:    []board.Stroke{},
		TextBlocks: []board.TextBlock{},
	}

	// Server entities first, unless a pending clear invalidates them.
	if !sets.cleared {
		for _, stroke := range snapshot.State.Strokes {
			if sets.deletedStroke[stroke.ID] || sets.dirtyStrokes[stroke.ID] {
				continue
			}
			merged.Strokes = append(merged.Strokes, stroke)
			if err := e.store.PutStroke(stroke); err != nil {
				return nil, err
			}
		}
		for _, tb := range snapshot.State.TextBlocks {
			if sets.deletedText[tb.ID] || sets.dirtyText[tb.ID] {
				continue
			}
			merged.TextBlocks = append(merged.TextBlocks, tb)
			if err := e.store.PutTextBlock(tb); err != nil {
				return nil, err
			}
		}
	}

	// Overlay the local version of every dirty id.
	localStrokes, err := e.store.Strokes(e.roomID)
	if err != nil {
		return nil, err
	}
	for _, stroke := range localStrokes {
		if sets.dirtyStrokes[stroke.ID] {
			merged.Strokes = append(merged.Strokes, stroke)
		}
	}

	localText, err := e.store.TextBlocks(e.roomID)
	if err != nil {
		return nil, err
	}
	for _, tb := range localText {
		if sets.dirtyText[tb.ID] {
			merged.TextBlocks = append(merged.TextBlocks, tb)
		}
	}

	return merged, nil
}

// Replay re-sends the pending log in creation order, once per
// successful (re)connection. Each entry is deleted after its send; a
// send error aborts the remainder so ordering holds and the tail
// replays on the next reconnect. The in-progress flag keeps passes
// mutually exclusive; a pass past the flag runs to completion.
func (e *Engine) Replay() {
	e.mu.Lock()
	if e.replaying {
		e.mu.Unlock()
		return
	}
	e.replaying = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.replaying = false
		e.mu.Unlock()
	}()

	actions, err := e.store.Actions(e.roomID)
	if err != nil {
		e.log.Error().Err(err).Msg("replay: read pending log")
		return
	}
	if len(actions) == 0 {
		return
	}

	e.log.Info().Int("actions", len(actions)).Msg("replaying pending log")

	for i, a := range actions {
		if err := e.conn.SendRaw(a.Payload); err != nil {
			e.log.Warn().Err(err).Int64("seq", a.Seq).Str("type", a.Type).
				Msg("replay send failed, rest of pass deferred")
			return
		}
		if err := e.store.DeleteAction(a.Seq); err != nil {
			e.log.Error().Err(err).Int64("seq", a.Seq).Msg("replay: delete log entry")
			return
		}
		// Pace the pass so a long log does not flood the transport.
		if i < len(actions)-1 {
			time.Sleep(e.replayDelay)
		}
	}

	e.log.Info().Msg("pending log drained")
}
