package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/inkboard/inkboard/board"
)

// CreateStroke inserts a stroke, assigning an id when the client did
// not supply one. Duplicate ids are ignored so a replayed add is a
// no-op instead of an error.
func (s *Store) CreateStroke(ctx context.Context, stroke *board.Stroke) error {
	if stroke.ID == "" {
		stroke.ID = uuid.New().String()
	}
	stroke.CreatedAt = time.Now()

	points, err := json.Marshal(stroke.Points)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO strokes (id, room_id, points, color, tool, created_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		stroke.ID, stroke.RoomID, points, stroke.Color, stroke.Tool, stroke.CreatedAt, stroke.CreatedBy,
	)
	return err
}

// StrokesByRoom retrieves every stroke of a room in creation order.
func (s *Store) StrokesByRoom(ctx context.Context, roomID string) ([]board.Stroke, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, points, color, tool, created_at, created_by
		 FROM strokes WHERE room_id = $1 ORDER BY created_at ASC`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	strokes := []board.Stroke{}
	for rows.Next() {
		var stroke board.Stroke
		var points []byte
		var createdBy *string

		if err := rows.Scan(&stroke.ID, &stroke.RoomID, &points, &stroke.Color, &stroke.Tool, &stroke.CreatedAt, &createdBy); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(points, &stroke.Points); err != nil {
			return nil, err
		}
		if createdBy != nil {
			stroke.CreatedBy = *createdBy
		}
		strokes = append(strokes, stroke)
	}
	return strokes, rows.Err()
}

// UpdateStrokePoints replaces the whole point array of a stroke.
func (s *Store) UpdateStrokePoints(ctx context.Context, strokeID string, points []board.Point) error {
	data, err := json.Marshal(points)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE strokes SET points = $1 WHERE id = $2`,
		data, strokeID,
	)
	return err
}

// DeleteStroke removes a single stroke.
func (s *Store) DeleteStroke(ctx context.Context, strokeID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM strokes WHERE id = $1`, strokeID)
	return err
}
