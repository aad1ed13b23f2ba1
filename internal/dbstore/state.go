package dbstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// GetState returns the raw JSON value stored under key in indexer_state, or
// nil if absent (spec §3 Indexer state).
func (s *Store) GetState(ctx context.Context, key string) (model.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var value string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM indexer_state WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	return model.Metadata(value), nil
}

// SetState upserts the JSON value for key, used for per-source cursors
// (bash, chat, chat.import).
func (s *Store) SetState(ctx context.Context, key string, value model.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indexer_state(key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value.String(), Now().UTC().Format(time.RFC3339))
	return translateErr(err)
}
