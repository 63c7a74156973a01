// Package store is the durable side of a room: rooms, strokes and text
// blocks in Postgres. The hub and sessions consume it through small
// interfaces declared at the point of use.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a pgx connection pool with the room persistence contract.
type Store struct {
	pool *pgxpool.Pool
}

// Connect establishes a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the schema when absent. Room deletion cascades to
// strokes and text blocks through the foreign keys.
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id VARCHAR(12) PRIMARY KEY,
			title VARCHAR(255) DEFAULT 'Untitled',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS strokes (
			id UUID PRIMARY KEY,
			room_id VARCHAR(12) REFERENCES rooms(id) ON DELETE CASCADE,
			points JSONB NOT NULL,
			color VARCHAR(7) NOT NULL,
			tool VARCHAR(10) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			created_by VARCHAR(36)
		)`,

		`CREATE TABLE IF NOT EXISTS text_blocks (
			id UUID PRIMARY KEY,
			room_id VARCHAR(12) REFERENCES rooms(id) ON DELETE CASCADE,
			x FLOAT NOT NULL,
			y FLOAT NOT NULL,
			width FLOAT NOT NULL,
			height FLOAT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			font_size FLOAT NOT NULL DEFAULT 24,
			color VARCHAR(7) NOT NULL DEFAULT '#000000',
			font_family VARCHAR(100) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_strokes_room ON strokes(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_text_blocks_room ON text_blocks(room_id)`,
	}

	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
