package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkboard/inkboard/board"
)

// CreateTextBlock inserts a text block, assigning an id when absent.
func (s *Store) CreateTextBlock(ctx context.Context, tb *board.TextBlock) error {
	if tb.ID == "" {
		tb.ID = uuid.New().String()
	}
	tb.CreatedAt = time.Now()
	tb.UpdatedAt = tb.CreatedAt

	_, err := s.pool.Exec(ctx,
		`INSERT INTO text_blocks (id, room_id, x, y, width, height, content, font_size, color, font_family, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO NOTHING`,
		tb.ID, tb.RoomID, tb.X, tb.Y, tb.Width, tb.Height, tb.Content, tb.FontSize, tb.Color, tb.FontFamily, tb.CreatedAt, tb.UpdatedAt,
	)
	return err
}

// TextBlocksByRoom retrieves every text block of a room in creation order.
func (s *Store) TextBlocksByRoom(ctx context.Context, roomID string) ([]board.TextBlock, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, x, y, width, height, content, font_size, color, font_family, created_at, updated_at
		 FROM text_blocks WHERE room_id = $1 ORDER BY created_at ASC`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []board.TextBlock{}
	for rows.Next() {
		var tb board.TextBlock
		if err := rows.Scan(&tb.ID, &tb.RoomID, &tb.X, &tb.Y, &tb.Width, &tb.Height, &tb.Content, &tb.FontSize, &tb.Color, &tb.FontFamily, &tb.CreatedAt, &tb.UpdatedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, tb)
	}
	return blocks, rows.Err()
}

// UpdateTextBlock applies a partial patch; only provided fields change.
func (s *Store) UpdateTextBlock(ctx context.Context, id string, patch *board.TextBlockPatch) error {
	query, args := buildTextBlockUpdate(id, patch, time.Now())
	_, err := s.pool.Exec(ctx, query, args...)
	return err
}

// DeleteTextBlock removes a text block.
func (s *Store) DeleteTextBlock(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM text_blocks WHERE id = $1`, id)
	return err
}

// buildTextBlockUpdate assembles the dynamic SET clause for a partial
// patch. Pure so it is testable without a database.
func buildTextBlockUpdate(id string, patch *board.TextBlockPatch, now time.Time) (string, []any) {
	query := `UPDATE text_blocks SET updated_at = $1`
	args := []any{now}
	n := 2

	set := func(column string, value any) {
		query += fmt.Sprintf(", %s = $%d", column, n)
		args = append(args, value)
		n++
	}

	if patch.X != nil {
		set("x", *patch.X)
	}
	if patch.Y != nil {
		set("y", *patch.Y)
	}
	if patch.Width != nil {
		set("width", *patch.Width)
	}
	if patch.Height != nil {
		set("height", *patch.Height)
	}
	if patch.Content != nil {
		set("content", *patch.Content)
	}
	if patch.FontSize != nil {
		set("font_size", *patch.FontSize)
	}
	if patch.Color != nil {
		set("color", *patch.Color)
	}
	if patch.FontFamily != nil {
		set("font_family", *patch.FontFamily)
	}

	query += fmt.Sprintf(" WHERE id = $%d", n)
	args = append(args, id)
	return query, args
}
