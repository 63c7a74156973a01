// Package localstore is the client's durable state: a cache of room
// entities mirroring the server, and the ordered pending-action log
// that protects offline edits across process restarts.
package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/inkboard/inkboard/board"
)

// Action is one durable log entry: a local intent that has not yet
// round-tripped through the server. Payload is the encoded wire frame.
type Action struct {
	Seq       int64
	RoomID    string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Store wraps the sqlite database file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" works for
// tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS strokes (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS text_blocks (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pending_actions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			action TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_local_strokes_room ON strokes(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_local_text_blocks_room ON text_blocks(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_room ON pending_actions(room_id)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("local store schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertRoom refreshes the cached room record.
func (s *Store) UpsertRoom(room board.Room) error {
	_, err := s.db.Exec(
		`INSERT INTO rooms (id, title, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		room.ID, room.Title, room.UpdatedAt,
	)
	return err
}

// Room reads the cached room record.
func (s *Store) Room(id string) (*board.Room, error) {
	room := &board.Room{}
	err := s.db.QueryRow(`SELECT id, title, updated_at FROM rooms WHERE id = ?`, id).
		Scan(&room.ID, &room.Title, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// PutStroke caches a stroke as a JSON blob, replacing any prior version.
func (s *Store) PutStroke(stroke board.Stroke) error {
	data, err := json.Marshal(stroke)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO strokes (id, room_id, data) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		stroke.ID, stroke.RoomID, data,
	)
	return err
}

// Stroke reads one cached stroke.
func (s *Store) Stroke(id string) (*board.Stroke, error) {
	var data []byte
	if err := s.db.QueryRow(`SELECT data FROM strokes WHERE id = ?`, id).Scan(&data); err != nil {
		return nil, err
	}
	var stroke board.Stroke
	if err := json.Unmarshal(data, &stroke); err != nil {
		return nil, err
	}
	return &stroke, nil
}

// UpdateStrokePoints replaces the whole point array of a cached stroke.
func (s *Store) UpdateStrokePoints(id string, points []board.Point) error {
	stroke, err := s.Stroke(id)
	if err != nil {
		return err
	}
	stroke.Points = points
	return s.PutStroke(*stroke)
}

// Strokes lists every cached stroke of a room.
func (s *Store) Strokes(roomID string) ([]board.Stroke, error) {
	rows, err := s.db.Query(`SELECT data FROM strokes WHERE room_id = ? ORDER BY id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []board.Stroke{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var stroke board.Stroke
		if err := json.Unmarshal(data, &stroke); err != nil {
			return nil, err
		}
		out = append(out, stroke)
	}
	return out, rows.Err()
}

// DeleteStroke drops a cached stroke.
func (s *Store) DeleteStroke(id string) error {
	_, err := s.db.Exec(`DELETE FROM strokes WHERE id = ?`, id)
	return err
}

// PutTextBlock caches a text block, replacing any prior version.
func (s *Store) PutTextBlock(tb board.TextBlock) error {
	data, err := json.Marshal(tb)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO text_blocks (id, room_id, data) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		tb.ID, tb.RoomID, data,
	)
	return err
}

// TextBlock reads one cached text block.
func (s *Store) TextBlock(id string) (*board.TextBlock, error) {
	var data []byte
	if err := s.db.QueryRow(`SELECT data FROM text_blocks WHERE id = ?`, id).Scan(&data); err != nil {
		return nil, err
	}
	var tb board.TextBlock
	if err := json.Unmarshal(data, &tb); err != nil {
		return nil, err
	}
	return &tb, nil
}

// PatchTextBlock applies a partial patch to a cached text block.
func (s *Store) PatchTextBlock(id string, patch *board.TextBlockPatch) error {
	tb, err := s.TextBlock(id)
	if err != nil {
		return err
	}
	patch.Apply(tb)
	return s.PutTextBlock(*tb)
}

// TextBlocks lists every cached text block of a room.
func (s *Store) TextBlocks(roomID string) ([]board.TextBlock, error) {
	rows, err := s.db.Query(`SELECT data FROM text_blocks WHERE room_id = ? ORDER BY id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []board.TextBlock{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var tb board.TextBlock
		if err := json.Unmarshal(data, &tb); err != nil {
			return nil, err
		}
		out = append(out, tb)
	}
	return out, rows.Err()
}

// DeleteTextBlock drops a cached text block.
func (s *Store) DeleteTextBlock(id string) error {
	_, err := s.db.Exec(`DELETE FROM text_blocks WHERE id = ?`, id)
	return err
}

// ClearRoom drops every cached stroke and text block of a room. The
// pending log is not touched.
func (s *Store) ClearRoom(roomID string) error {
	if _, err := s.db.Exec(`DELETE FROM strokes WHERE room_id = ?`, roomID); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM text_blocks WHERE room_id = ?`, roomID)
	return err
}

// AppendAction durably appends a pending action. Once this returns the
// action survives a process restart.
func (s *Store) AppendAction(roomID, actionType string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO pending_actions (room_id, action, payload, created_at) VALUES (?, ?, ?, ?)`,
		roomID, actionType, payload, time.Now(),
	)
	return err
}

// Actions returns the pending log of a room in append order.
func (s *Store) Actions(roomID string) ([]Action, error) {
	rows, err := s.db.Query(
		`SELECT seq, room_id, action, payload, created_at FROM pending_actions
		 WHERE room_id = ? ORDER BY seq ASC`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Action{}
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.Seq, &a.RoomID, &a.Type, &a.Payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAction removes a replayed entry from the log.
func (s *Store) DeleteAction(seq int64) error {
	_, err := s.db.Exec(`DELETE FROM pending_actions WHERE seq = ?`, seq)
	return err
}
