// Package board contains the canvas entities shared by the server and
// the client sync engine. Entities carry data only; persistence and
// fan-out live elsewhere.
package board

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Tool values accepted for a stroke.
const (
	ToolPen    = "pen"
	ToolEraser = "eraser"
)

// Point is a single sampled point of a stroke. Pressure is in [0,1].
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure" validate:"gte=0,lte=1"`
}

// Stroke is one drawn line. The point sequence is replace-only: an
// update swaps the whole array, there are no partial point edits.
type Stroke struct {
	ID        string    `json:"id" validate:"required"`
	RoomID    string    `json:"roomId,omitempty"`
	Points    []Point   `json:"points" validate:"required,min=1,dive"`
	Color     string    `json:"color" validate:"required"`
	Tool      string    `json:"tool" validate:"required,oneof=pen eraser"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
}

// TextBlock is a positioned text element on the canvas.
type TextBlock struct {
	ID         string    `json:"id" validate:"required"`
	RoomID     string    `json:"roomId,omitempty"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Content    string    `json:"content"`
	FontSize   float64   `json:"fontSize"`
	Color      string    `json:"color"`
	FontFamily string    `json:"fontFamily"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// TextBlockPatch is a partial update: only non-nil fields change.
type TextBlockPatch struct {
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Width      *float64 `json:"width,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	Content    *string  `json:"content,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	Color      *string  `json:"color,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
}

// Apply copies the patch's provided fields onto tb and stamps UpdatedAt.
func (p *TextBlockPatch) Apply(tb *TextBlock) {
	if p.X != nil {
		tb.X = *p.X
	}
	if p.Y != nil {
		tb.Y = *p.Y
	}
	if p.Width != nil {
		tb.Width = *p.Width
	}
	if p.Height != nil {
		tb.Height = *p.Height
	}
	if p.Content != nil {
		tb.Content = *p.Content
	}
	if p.FontSize != nil {
		tb.FontSize = *p.FontSize
	}
	if p.Color != nil {
		tb.Color = *p.Color
	}
	if p.FontFamily != nil {
		tb.FontFamily = *p.FontFamily
	}
	tb.UpdatedAt = time.Now()
}

// Room is a named shared canvas session.
type Room struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RoomState is the full snapshot sent to a joining client.
type RoomState struct {
	Room       Room        `json:"room"`
	Strokes    []Stroke    `json:"strokes"`
	TextBlocks []TextBlock `json:"textBlocks"`
}

// Participant is a live connection's public identity. It exists only
// while the connection is registered and is never persisted.
type Participant struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Name  string `json:"name,omitempty"`
}

// NewRoomID returns a short opaque room code.
func NewRoomID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
