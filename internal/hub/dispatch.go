package hub

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/inkboard/inkboard/wire"
)

// dispatch decodes and handles one inbound frame. Malformed or unknown
// frames are dropped with a diagnostic; they never kill the session.
// Mutations persist first and broadcast only on success.
func (s *Session) dispatch(data []byte) {
	msg, err := wire.DecodeClient(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "hub").Str("session", s.ID).Msg("dropped inbound frame")
		return
	}

	ctx := context.Background()

	switch m := msg.(type) {
	case wire.StrokeAdd:
		s.handleStrokeAdd(ctx, m)
	case wire.StrokeUpdate:
		s.handleStrokeUpdate(ctx, m)
	case wire.TextAdd:
		s.handleTextAdd(ctx, m)
	case wire.TextUpdate:
		s.handleTextUpdate(ctx, m)
	case wire.TextDelete:
		s.handleTextDelete(ctx, m)
	case wire.CursorMove:
		s.handleCursorMove(m)
	case wire.ClearAll:
		s.handleClearAll(ctx)
	}
}

func (s *Session) handleStrokeAdd(ctx context.Context, m wire.StrokeAdd) {
	stroke := m.Stroke
	stroke.RoomID = s.RoomID
	stroke.CreatedBy = s.ID

	if err := s.hub.store.CreateStroke(ctx, stroke); err != nil {
		log.Error().Err(err).Str("module", "hub").Str("session", s.ID).Msg("save stroke")
		s.sendError("Failed to save stroke")
		return
	}

	s.hub.Broadcast(s.RoomID, wire.StrokeAdded{Stroke: stroke, ParticipantID: s.ID}, s)
}

func (s *Session) handleStrokeUpdate(ctx context.Context, m wire.StrokeUpdate) {
	if err := s.hub.store.UpdateStrokePoints(ctx, m.StrokeID, m.Points); err != nil {
		log.Error().Err(err).Str("module", "hub").Str("session", s.ID).Msg("update stroke")
		s.sendError("Failed to update stroke")
		return
	}

	s.hub.Broadcast(s.RoomID, wire.StrokeUpdated{StrokeID: m.StrokeID, Points: m.Points, ParticipantID: s.ID}, s)
}

func (s *Session) handleTextAdd(ctx context.Context, m wire.TextAdd) {
	tb := m.TextBlock
	tb.RoomID = s.RoomID

	if err := s.hub.store.CreateTextBlock(ctx, tb); err != nil {
		log.Error().Err(err).Str("module", "hub").Str("session", s.ID).Msg("save text block")
		s.sendError("Failed to save text block")
		return
	}

	s.hub.Broadcast(s.RoomID, wire.TextAdded{TextBlock: tb, ParticipantID: s.ID}, s)
}

func (s *Session) handleTextUpdate(ctx context.Context, m wire.TextUpdate) {
	if err := s.hub.store.UpdateTextBlock(ctx, m.TextBlockID, m.Patch); err != nil {
		log.Error().Err(err).Str("module", "hub").Str("session", s.ID).Msg("update text block")
		s.sendError("Failed to update text block")
		return
	}

	s.hub.Broadcast(s.RoomID, wire.TextUpdated{TextBlockID: m.TextBlockID, Patch: m.Patch, ParticipantID: s.ID}, s)
}

func (s *Session) handleTextDelete(ctx context.Context, m wire.TextDelete) {
	if err := s.hub.store.DeleteTextBlock(ctx, m.TextBlockID); err != nil {
		log.Error().Err(err).Str("module", "hub").Str("session", s.ID).Msg("delete text block")
		s.sendError("Failed to delete text block")
		return
	}

	s.hub.Broadcast(s.RoomID, wire.TextDeleted{TextBlockID: m.TextBlockID, ParticipantID: s.ID}, s)
}

// Cursor positions are ephemeral: broadcast only, best effort.
func (s *Session) handleCursorMove(m wire.CursorMove) {
	s.hub.Broadcast(s.RoomID, wire.CursorMoved{X: m.X, Y: m.Y, Color: s.Color, ParticipantID: s.ID}, s)
}

// clear_all echoes to the sender too, unlike the other mutations.
func (s *Session) handleClearAll(ctx context.Context) {
	if err := s.hub.store.ClearRoom(ctx, s.RoomID); err != nil {
		log.Error().Err(err).Str("module", "hub").Str("session", s.ID).Msg("clear room")
		s.sendError("Failed to clear room")
		return
	}

	s.hub.Broadcast(s.RoomID, wire.Cleared{ParticipantID: s.ID}, nil)
}

func (s *Session) sendError(msg string) {
	data, err := wire.EncodeServer(wire.Error{Message: msg})
	if err != nil {
		return
	}
	if err := s.trySend(data); err != nil {
		log.Warn().Str("module", "hub").Str("session", s.ID).Msg("error reply dropped")
	}
}
