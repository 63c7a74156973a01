package wire

import (
	"encoding/json"
	"fmt"

	"github.com/inkboard/inkboard/board"
)

// ServerMessage is a message sent from the server to canvas clients.
// Mutation echoes carry the originating participant's id.
type ServerMessage interface {
	serverMessage()
	Type() string
}

// RoomState is the full snapshot delivered on join and reconnect.
type RoomState struct {
	State        *board.RoomState
	Participants []board.Participant
}

// ParticipantJoin announces a new live connection in the room.
type ParticipantJoin struct {
	Participant board.Participant
}

// ParticipantLeave announces a connection leaving the room.
type ParticipantLeave struct {
	ParticipantID string
}

// StrokeAdded echoes a persisted stroke to the rest of the room.
type StrokeAdded struct {
	Stroke        *board.Stroke
	ParticipantID string
}

// StrokeUpdated echoes a replaced point sequence.
type StrokeUpdated struct {
	StrokeID      string
	Points        []board.Point
	ParticipantID string
}

// TextAdded echoes a persisted text block.
type TextAdded struct {
	TextBlock     *board.TextBlock
	ParticipantID string
}

// TextUpdated echoes a persisted partial patch.
type TextUpdated struct {
	TextBlockID   string
	Patch         *board.TextBlockPatch
	ParticipantID string
}

// TextDeleted echoes a persisted deletion.
type TextDeleted struct {
	TextBlockID   string
	ParticipantID string
}

// CursorMoved is ephemeral presence in the sender's assigned color.
type CursorMoved struct {
	X             float64
	Y             float64
	Color         string
	ParticipantID string
}

// Cleared announces a whole-room wipe, sender included.
type Cleared struct {
	ParticipantID string
}

// Error is a typed failure reply delivered to the sender only.
type Error struct {
	Message string
}

func (RoomState) serverMessage()        {}
func (ParticipantJoin) serverMessage()  {}
func (ParticipantLeave) serverMessage() {}
func (StrokeAdded) serverMessage()      {}
func (StrokeUpdated) serverMessage()    {}
func (TextAdded) serverMessage()        {}
func (TextUpdated) serverMessage()      {}
func (TextDeleted) serverMessage()      {}
func (CursorMoved) serverMessage()      {}
func (Cleared) serverMessage()          {}
func (Error) serverMessage()            {}

func (RoomState) Type() string        { return TypeRoomState }
func (ParticipantJoin) Type() string  { return TypeParticipantJoin }
func (ParticipantLeave) Type() string { return TypeParticipantLeave }
func (StrokeAdded) Type() string      { return TypeStrokeAdd }
func (StrokeUpdated) Type() string    { return TypeStrokeUpdate }
func (TextAdded) Type() string        { return TypeTextAdd }
func (TextUpdated) Type() string      { return TypeTextUpdate }
func (TextDeleted) Type() string      { return TypeTextDelete }
func (CursorMoved) Type() string      { return TypeCursorMove }
func (Cleared) Type() string          { return TypeClearAll }
func (Error) Type() string            { return TypeError }

// EncodeServer marshals a variant into its JSON envelope.
func EncodeServer(msg ServerMessage) ([]byte, error) {
	env := envelope{Type: msg.Type()}
	switch m := msg.(type) {
	case RoomState:
		env.RoomState = m.State
		env.Participants = m.Participants
	case ParticipantJoin:
		env.Participant = &m.Participant
	case ParticipantLeave:
		env.ParticipantID = m.ParticipantID
	case StrokeAdded:
		env.Stroke = m.Stroke
		env.ParticipantID = m.ParticipantID
	case StrokeUpdated:
		env.StrokeID = m.StrokeID
		env.Points = m.Points
		env.ParticipantID = m.ParticipantID
	case TextAdded:
		env.TextBlock = m.TextBlock
		env.ParticipantID = m.ParticipantID
	case TextUpdated:
		env.TextBlockID = m.TextBlockID
		env.Updates = m.Patch
		env.ParticipantID = m.ParticipantID
	case TextDeleted:
		env.TextBlockID = m.TextBlockID
		env.ParticipantID = m.ParticipantID
	case CursorMoved:
		env.X = &m.X
		env.Y = &m.Y
		env.Color = m.Color
		env.ParticipantID = m.ParticipantID
	case Cleared:
		env.ParticipantID = m.ParticipantID
	case Error:
		env.Error = m.Message
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}
	return json.Marshal(&env)
}

// DecodeServer parses a server frame into a definite variant. Used by
// the client transport.
func DecodeServer(data []byte) (ServerMessage, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeRoomState:
		if env.RoomState == nil {
			return nil, fmt.Errorf("%w: roomState", ErrMissingField)
		}
		return RoomState{State: env.RoomState, Participants: env.Participants}, nil

	case TypeParticipantJoin:
		if env.Participant == nil {
			return nil, fmt.Errorf("%w: participant", ErrMissingField)
		}
		return ParticipantJoin{Participant: *env.Participant}, nil

	case TypeParticipantLeave:
		if env.ParticipantID == "" {
			return nil, fmt.Errorf("%w: participantId", ErrMissingField)
		}
		return ParticipantLeave{ParticipantID: env.ParticipantID}, nil

	case TypeStrokeAdd:
		if env.Stroke == nil {
			return nil, fmt.Errorf("%w: stroke", ErrMissingField)
		}
		return StrokeAdded{Stroke: env.Stroke, ParticipantID: env.ParticipantID}, nil

	case TypeStrokeUpdate:
		if env.StrokeID == "" || env.Points == nil {
			return nil, fmt.Errorf("%w: strokeId/points", ErrMissingField)
		}
		return StrokeUpdated{StrokeID: env.StrokeID, Points: env.Points, ParticipantID: env.ParticipantID}, nil

	case TypeTextAdd:
		if env.TextBlock == nil {
			return nil, fmt.Errorf("%w: textBlock", ErrMissingField)
		}
		return TextAdded{TextBlock: env.TextBlock, ParticipantID: env.ParticipantID}, nil

	case TypeTextUpdate:
		if env.TextBlockID == "" || env.Updates == nil {
			return nil, fmt.Errorf("%w: textBlockId/updates", ErrMissingField)
		}
		return TextUpdated{TextBlockID: env.TextBlockID, Patch: env.Updates, ParticipantID: env.ParticipantID}, nil

	case TypeTextDelete:
		if env.TextBlockID == "" {
			return nil, fmt.Errorf("%w: textBlockId", ErrMissingField)
		}
		return TextDeleted{TextBlockID: env.TextBlockID, ParticipantID: env.ParticipantID}, nil

	case TypeCursorMove:
		if env.X == nil || env.Y == nil {
			return nil, fmt.Errorf("%w: x/y", ErrMissingField)
		}
		return CursorMoved{X: *env.X, Y: *env.Y, Color: env.Color, ParticipantID: env.ParticipantID}, nil

	case TypeClearAll:
		return Cleared{ParticipantID: env.ParticipantID}, nil

	case TypeError:
		return Error{Message: env.Error}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
