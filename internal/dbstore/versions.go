package dbstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// InsertVersionRef inserts a version ref idempotently (spec §4.7: "Insert
// the ref (idempotent)").
func (s *Store) InsertVersionRef(ctx context.Context, r model.VersionRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentIDs, _ := json.Marshal(r.ParentIDs)
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO version_refs(id, context_id, ref_type, name, parent_ids, timestamp, message, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ContextID, string(r.RefType), r.Name, string(parentIDs),
		r.Timestamp.UTC().Format(time.RFC3339), nullableString(r.Message), r.Metadata.String())
	return translateErr(err)
}

// GetVersionRef returns the ref with exact id within contextID, or nil.
func (s *Store) GetVersionRef(ctx context.Context, contextID, id string) (*model.VersionRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, context_id, ref_type, name, parent_ids, timestamp, message, metadata FROM version_refs WHERE context_id = ? AND id = ?`, contextID, id)
	return scanVersionRef(row)
}

// ResolveShortRef resolves a ref prefix (< 40 chars) within a context's ref
// table. Ambiguity is resolved by taking the first match ordered by
// timestamp ascending then id, matching source behaviour per spec §9's
// "Short-SHA resolution" note — see DESIGN.md for the Open Question decision.
func (s *Store) ResolveShortRef(ctx context.Context, contextID, prefix string) (*model.VersionRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, context_id, ref_type, name, parent_ids, timestamp, message, metadata FROM version_refs
		WHERE context_id = ? AND id LIKE ? ORDER BY timestamp ASC, id ASC LIMIT 1`,
		contextID, prefix+"%")
	return scanVersionRef(row)
}

// ListVersionRefs lists refs for a context, newest first, optionally since a
// given ref id (exclusive), up to limit (spec §4.7 listRefs).
func (s *Store) ListVersionRefs(ctx context.Context, contextID string, sinceRefID string, limit int) ([]model.VersionRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, context_id, ref_type, name, parent_ids, timestamp, message, metadata FROM version_refs WHERE context_id = ?`
	args := []any{contextID}
	if sinceRefID != "" {
		if since, err := s.getVersionRefLocked(ctx, contextID, sinceRefID); err == nil && since != nil {
			query += ` AND timestamp >= ?`
			args = append(args, since.Timestamp.UTC().Format(time.RFC3339))
		}
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []model.VersionRef
	for rows.Next() {
		r, err := scanVersionRef(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *Store) getVersionRefLocked(ctx context.Context, contextID, id string) (*model.VersionRef, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, context_id, ref_type, name, parent_ids, timestamp, message, metadata FROM version_refs WHERE context_id = ? AND id = ?`, contextID, id)
	return scanVersionRef(row)
}

func scanVersionRef(row scanner) (*model.VersionRef, error) {
	var r model.VersionRef
	var refType, parentIDs, timestamp, metadata string
	var message sql.NullString
	if err := row.Scan(&r.ID, &r.ContextID, &refType, &r.Name, &parentIDs, &timestamp, &message, &metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	r.RefType = model.RefType(refType)
	_ = json.Unmarshal([]byte(parentIDs), &r.ParentIDs)
	r.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
	r.Message = message.String
	r.Metadata = model.Metadata(metadata)
	return &r, nil
}

// InsertAssetVersion records an asset's change status at a version ref
// (spec §4.7 sync algorithm).
func (s *Store) InsertAssetVersion(ctx context.Context, av model.AssetVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO asset_versions(context_id, key, version_ref_id, content_hash, status, renamed_from)
		VALUES (?, ?, ?, ?, ?, ?)`,
		av.ContextID, av.Key, av.VersionRefID, av.ContentHash, string(av.Status), nullableString(av.RenamedFrom))
	return translateErr(err)
}

// VersionProviderRow is the persisted detection/sync-cursor state for a
// context's version provider (spec §4.7: "load last_sync_ref from the
// provider row").
type VersionProviderRow struct {
	ContextID   string
	ProviderType string
	LastSyncRef string
	LastSyncAt  *time.Time
}

// GetVersionProvider returns the provider row for contextID, or nil.
func (s *Store) GetVersionProvider(ctx context.Context, contextID string) (*VersionProviderRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var row VersionProviderRow
	var lastSyncRef, lastSyncAt sql.NullString
	r := s.db.QueryRowContext(ctx, `SELECT context_id, provider_type, last_sync_ref, last_sync_at FROM version_providers WHERE context_id = ?`, contextID)
	if err := r.Scan(&row.ContextID, &row.ProviderType, &lastSyncRef, &lastSyncAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	row.LastSyncRef = lastSyncRef.String
	if lastSyncAt.Valid {
		t, err := time.Parse(time.RFC3339, lastSyncAt.String)
		if err == nil {
			row.LastSyncAt = &t
		}
	}
	return &row, nil
}

// PutVersionProvider inserts or updates the provider detection row.
func (s *Store) PutVersionProvider(ctx context.Context, contextID, providerType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO version_providers(context_id, provider_type) VALUES (?, ?)
		ON CONFLICT(context_id) DO UPDATE SET provider_type=excluded.provider_type`,
		contextID, providerType)
	return translateErr(err)
}

// UpdateSyncCursor updates last_sync_ref and last_sync_at after a batch
// (spec §4.7: "After the batch, update last_sync_ref and last_sync_at").
func (s *Store) UpdateSyncCursor(ctx context.Context, contextID, refID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE version_providers SET last_sync_ref = ?, last_sync_at = ? WHERE context_id = ?`,
		refID, at.UTC().Format(time.RFC3339), contextID)
	return translateErr(err)
}
