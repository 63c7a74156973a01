// Package wire defines the JSON websocket protocol between canvas
// clients and the server. Each direction is a closed union: decoding
// yields exactly one typed variant or an error, so dispatch never
// inspects half-populated envelopes.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/inkboard/inkboard/board"
)

// Discriminator values carried in the "type" field.
const (
	TypeStrokeAdd        = "stroke_add"
	TypeStrokeUpdate     = "stroke_update"
	TypeTextAdd          = "text_add"
	TypeTextUpdate       = "text_update"
	TypeTextDelete       = "text_delete"
	TypeCursorMove       = "cursor_move"
	TypeClearAll         = "clear_all"
	TypeRoomState        = "room_state"
	TypeParticipantJoin  = "participant_join"
	TypeParticipantLeave = "participant_leave"
	TypeError            = "error"
)

var (
	ErrUnknownType   = errors.New("wire: unknown message type")
	ErrMissingField  = errors.New("wire: missing required field")
	errEmptyEnvelope = errors.New("wire: empty envelope")
)

var validate = validator.New()

// envelope is the flat JSON layout shared by both directions. Field
// names match the protocol exactly; everything except Type is optional
// at the JSON level and checked per variant at decode time.
type envelope struct {
	Type string `json:"type"`

	Stroke   *board.Stroke `json:"stroke,omitempty"`
	StrokeID string        `json:"strokeId,omitempty"`
	Points   []board.Point `json:"points,omitempty"`

	TextBlock   *board.TextBlock      `json:"textBlock,omitempty"`
	TextBlockID string                `json:"textBlockId,omitempty"`
	Updates     *board.TextBlockPatch `json:"updates,omitempty"`

	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Color string   `json:"color,omitempty"`

	RoomState    *board.RoomState    `json:"roomState,omitempty"`
	Participants []board.Participant `json:"participants,omitempty"`

	Participant   *board.Participant `json:"participant,omitempty"`
	ParticipantID string             `json:"participantId,omitempty"`

	Error string `json:"error,omitempty"`
}

func decodeEnvelope(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("wire: decode: %w", err)
	}
	if env.Type == "" {
		return nil, errEmptyEnvelope
	}
	return &env, nil
}
