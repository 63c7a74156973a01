package wire

import (
	"encoding/json"
	"fmt"

	"github.com/inkboard/inkboard/board"
)

// ClientMessage is a message sent from a canvas client to the server.
type ClientMessage interface {
	clientMessage()
	Type() string
}

// StrokeAdd carries a complete new stroke.
type StrokeAdd struct {
	Stroke *board.Stroke
}

// StrokeUpdate replaces the whole point sequence of an existing stroke.
type StrokeUpdate struct {
	StrokeID string
	Points   []board.Point
}

// TextAdd carries a complete new text block.
type TextAdd struct {
	TextBlock *board.TextBlock
}

// TextUpdate patches the provided fields of an existing text block.
type TextUpdate struct {
	TextBlockID string
	Patch       *board.TextBlockPatch
}

// TextDelete removes a text block.
type TextDelete struct {
	TextBlockID string
}

// CursorMove is ephemeral presence; it is broadcast, never persisted.
type CursorMove struct {
	X float64
	Y float64
}

// ClearAll wipes every stroke and text block in the sender's room.
type ClearAll struct{}

func (StrokeAdd) clientMessage()    {}
func (StrokeUpdate) clientMessage() {}
func (TextAdd) clientMessage()      {}
func (TextUpdate) clientMessage()   {}
func (TextDelete) clientMessage()   {}
func (CursorMove) clientMessage()   {}
func (ClearAll) clientMessage()     {}

func (StrokeAdd) Type() string    { return TypeStrokeAdd }
func (StrokeUpdate) Type() string { return TypeStrokeUpdate }
func (TextAdd) Type() string      { return TypeTextAdd }
func (TextUpdate) Type() string   { return TypeTextUpdate }
func (TextDelete) Type() string   { return TypeTextDelete }
func (CursorMove) Type() string   { return TypeCursorMove }
func (ClearAll) Type() string     { return TypeClearAll }

// DecodeClient parses a client frame into a definite variant. Required
// fields are checked here so dispatch code never sees a partial message.
func DecodeClient(data []byte) (ClientMessage, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeStrokeAdd:
		if env.Stroke == nil {
			return nil, fmt.Errorf("%w: stroke", ErrMissingField)
		}
		if err := validate.Struct(env.Stroke); err != nil {
			return nil, fmt.Errorf("wire: invalid stroke: %w", err)
		}
		return StrokeAdd{Stroke: env.Stroke}, nil

	case TypeStrokeUpdate:
		if env.StrokeID == "" || env.Points == nil {
			return nil, fmt.Errorf("%w: strokeId/points", ErrMissingField)
		}
		for i := range env.Points {
			if err := validate.Struct(env.Points[i]); err != nil {
				return nil, fmt.Errorf("wire: invalid point: %w", err)
			}
		}
		return StrokeUpdate{StrokeID: env.StrokeID, Points: env.Points}, nil

	case TypeTextAdd:
		if env.TextBlock == nil {
			return nil, fmt.Errorf("%w: textBlock", ErrMissingField)
		}
		if err := validate.Struct(env.TextBlock); err != nil {
			return nil, fmt.Errorf("wire: invalid text block: %w", err)
		}
		return TextAdd{TextBlock: env.TextBlock}, nil

	case TypeTextUpdate:
		if env.TextBlockID == "" || env.Updates == nil {
			return nil, fmt.Errorf("%w: textBlockId/updates", ErrMissingField)
		}
		return TextUpdate{TextBlockID: env.TextBlockID, Patch: env.Updates}, nil

	case TypeTextDelete:
		if env.TextBlockID == "" {
			return nil, fmt.Errorf("%w: textBlockId", ErrMissingField)
		}
		return TextDelete{TextBlockID: env.TextBlockID}, nil

	case TypeCursorMove:
		if env.X == nil || env.Y == nil {
			return nil, fmt.Errorf("%w: x/y", ErrMissingField)
		}
		return CursorMove{X: *env.X, Y: *env.Y}, nil

	case TypeClearAll:
		return ClearAll{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// EncodeClient marshals a variant into its JSON envelope.
func EncodeClient(msg ClientMessage) ([]byte, error) {
	env := envelope{Type: msg.Type()}
	switch m := msg.(type) {
	case StrokeAdd:
		env.Stroke = m.Stroke
	case StrokeUpdate:
		env.StrokeID = m.StrokeID
		env.Points = m.Points
	case TextAdd:
		env.TextBlock = m.TextBlock
	case TextUpdate:
		env.TextBlockID = m.TextBlockID
		env.Updates = m.Patch
	case TextDelete:
		env.TextBlockID = m.TextBlockID
	case CursorMove:
		env.X = &m.X
		env.Y = &m.Y
	case ClearAll:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}
	return json.Marshal(&env)
}
