package dbstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// PutContext inserts or replaces a context row (spec §3 Context).
func (s *Store) PutContext(ctx context.Context, c model.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mounts, _ := json.Marshal(c.Mounts)
	include, _ := json.Marshal(c.IncludePatterns)
	exclude, _ := json.Marshal(c.ExcludePatterns)

	var lastIndexed any
	if c.LastIndexedAt != nil {
		lastIndexed = c.LastIndexedAt.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contexts(id, name, path, mounts, enabled, include_patterns, exclude_patterns, registered_at, last_indexed_at, version_provider_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, path=excluded.path, mounts=excluded.mounts, enabled=excluded.enabled,
			include_patterns=excluded.include_patterns, exclude_patterns=excluded.exclude_patterns,
			last_indexed_at=excluded.last_indexed_at, version_provider_type=excluded.version_provider_type`,
		c.ID, c.Name, c.Path, string(mounts), boolToInt(c.Enabled), string(include), string(exclude),
		c.RegisteredAt.UTC().Format(time.RFC3339), lastIndexed, nullableString(c.VersionProviderType))
	return translateErr(err)
}

// GetContext returns the context with id, or nil if not found.
func (s *Store) GetContext(ctx context.Context, id string) (*model.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, name, path, mounts, enabled, include_patterns, exclude_patterns, registered_at, last_indexed_at, version_provider_type FROM contexts WHERE id = ?`, id)
	return scanContext(row)
}

// GetContextByPath returns the context registered at the canonical path, or nil.
func (s *Store) GetContextByPath(ctx context.Context, path string) (*model.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, name, path, mounts, enabled, include_patterns, exclude_patterns, registered_at, last_indexed_at, version_provider_type FROM contexts WHERE path = ?`, path)
	return scanContext(row)
}

// ListContexts returns every registered context.
func (s *Store) ListContexts(ctx context.Context) ([]model.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, path, mounts, enabled, include_patterns, exclude_patterns, registered_at, last_indexed_at, version_provider_type FROM contexts ORDER BY registered_at`)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []model.Context
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// DeleteContext removes a context and cascades to its assets, version refs,
// and asset-versions (spec §3: "a context exclusively owns its assets,
// version refs, and asset-versions (cascade on delete)").
func (s *Store) DeleteContext(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateErr(err)
	}
	stmts := []struct {
		sql  string
		args []any
	}{
		{`DELETE FROM asset_embeddings WHERE asset_id IN (SELECT id FROM assets WHERE context_id = ?)`, []any{id}},
		{`DELETE FROM assets WHERE context_id = ?`, []any{id}},
		{`DELETE FROM asset_versions WHERE context_id = ?`, []any{id}},
		{`DELETE FROM version_refs WHERE context_id = ?`, []any{id}},
		{`DELETE FROM content_refs WHERE context_id = ?`, []any{id}},
		{`DELETE FROM version_providers WHERE context_id = ?`, []any{id}},
		{`DELETE FROM contexts WHERE id = ?`, []any{id}},
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.sql, st.args...); err != nil {
			tx.Rollback()
			return translateErr(err)
		}
	}
	return tx.Commit()
}

func scanContext(row scanner) (*model.Context, error) {
	var c model.Context
	var mounts, include, exclude string
	var registeredAt string
	var lastIndexed, providerType sql.NullString
	var enabled int
	if err := row.Scan(&c.ID, &c.Name, &c.Path, &mounts, &enabled, &include, &exclude, &registeredAt, &lastIndexed, &providerType); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	c.Enabled = enabled != 0
	_ = json.Unmarshal([]byte(mounts), &c.Mounts)
	_ = json.Unmarshal([]byte(include), &c.IncludePatterns)
	_ = json.Unmarshal([]byte(exclude), &c.ExcludePatterns)
	c.RegisteredAt, _ = time.Parse(time.RFC3339, registeredAt)
	if lastIndexed.Valid {
		t, err := time.Parse(time.RFC3339, lastIndexed.String)
		if err == nil {
			c.LastIndexedAt = &t
		}
	}
	c.VersionProviderType = providerType.String
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
