package dbstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// UpsertAsset performs the INSERT…ON CONFLICT(id) DO UPDATE from spec §4.6
// step 3, returning whether the row was newly created.
func (s *Store) UpsertAsset(ctx context.Context, a model.Asset) (created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existed int
	row := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM assets WHERE id = ?)`, a.ID)
	if err := row.Scan(&existed); err != nil {
		return false, translateErr(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assets(id, context_id, key, extension, content_hash, indexed_at, metadata, head_version_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			extension=excluded.extension, content_hash=excluded.content_hash,
			indexed_at=excluded.indexed_at, metadata=excluded.metadata`,
		a.ID, a.ContextID, a.Key, a.Extension, a.ContentHash, a.IndexedAt.UTC().Format(time.RFC3339),
		a.Metadata.String(), nullableString(a.HeadVersionRef))
	if err != nil {
		return false, translateErr(err)
	}
	return existed == 0, nil
}

// GetAsset returns the asset with id, or nil if not found.
func (s *Store) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, context_id, key, extension, content_hash, indexed_at, metadata, head_version_ref FROM assets WHERE id = ?`, id)
	return scanAsset(row)
}

// GetAssetByKey returns the asset for (contextID, key), or nil.
func (s *Store) GetAssetByKey(ctx context.Context, contextID, key string) (*model.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, context_id, key, extension, content_hash, indexed_at, metadata, head_version_ref FROM assets WHERE context_id = ? AND key = ?`, contextID, key)
	return scanAsset(row)
}

// GetAssetsByIDs batch-fetches assets by id, skipping any that don't exist.
func (s *Store) GetAssetsByIDs(ctx context.Context, ids []string) ([]model.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, `SELECT id, context_id, key, extension, content_hash, indexed_at, metadata, head_version_ref FROM assets WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func scanAsset(row scanner) (*model.Asset, error) {
	var a model.Asset
	var extension, headRef sql.NullString
	var metadata, indexedAt string
	if err := row.Scan(&a.ID, &a.ContextID, &a.Key, &extension, &a.ContentHash, &indexedAt, &metadata, &headRef); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	a.Extension = extension.String
	a.HeadVersionRef = headRef.String
	a.Metadata = model.Metadata(metadata)
	a.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return &a, nil
}

func inClause(vals []string) (string, []any) {
	placeholders := ""
	args := make([]any, len(vals))
	for i, v := range vals {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = v
	}
	return placeholders, args
}
