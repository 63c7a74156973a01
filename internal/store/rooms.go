package store

import (
	"context"
	"time"

	"github.com/inkboard/inkboard/board"
)

// CreateRoom inserts a new room under a fresh short code.
func (s *Store) CreateRoom(ctx context.Context, title string) (*board.Room, error) {
	room := &board.Room{
		ID:        board.NewRoomID(),
		Title:     title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO rooms (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		room.ID, room.Title, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// Room retrieves a room by id.
func (s *Store) Room(ctx context.Context, id string) (*board.Room, error) {
	room := &board.Room{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, created_at, updated_at FROM rooms WHERE id = $1`,
		id,
	).Scan(&room.ID, &room.Title, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// RoomState reads the point-in-time full snapshot of a room.
func (s *Store) RoomState(ctx context.Context, roomID string) (*board.RoomState, error) {
	room, err := s.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}

	strokes, err := s.StrokesByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	textBlocks, err := s.TextBlocksByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return &board.RoomState{
		Room:       *room,
		Strokes:    strokes,
		TextBlocks: textBlocks,
	}, nil
}

// UpdateRoomTitle renames a room.
func (s *Store) UpdateRoomTitle(ctx context.Context, id, title string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE rooms SET title = $1, updated_at = $2 WHERE id = $3`,
		title, time.Now(), id,
	)
	return err
}

// TouchRoom bumps the room's updated_at timestamp.
func (s *Store) TouchRoom(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE rooms SET updated_at = $1 WHERE id = $2`,
		time.Now(), id,
	)
	return err
}

// DeleteRoom removes a room; strokes and text blocks go with it via
// the FK cascade.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	return err
}

// ClearRoom wipes all content of a room in one transaction and touches
// the room timestamp.
func (s *Store) ClearRoom(ctx context.Context, roomID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM strokes WHERE room_id = $1`, roomID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM text_blocks WHERE room_id = $1`, roomID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE rooms SET updated_at = $1 WHERE id = $2`, time.Now(), roomID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
