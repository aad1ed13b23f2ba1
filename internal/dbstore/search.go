package dbstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// FTSEventHit pairs an event with its bm25-derived score (negated, so
// larger is better, per spec §4.10).
type FTSEventHit struct {
	Event model.Event
	Score float64
}

// FTSAssetHit pairs an asset with its bm25-derived score.
type FTSAssetHit struct {
	Asset model.Asset
	Score float64
}

// SearchEventsFTS runs matchQuery against events_fts, returning up to limit
// hits ordered by descending score (spec §4.10: "scores are the negation of
// bm25() so larger is better").
func (s *Store) SearchEventsFTS(ctx context.Context, matchQuery string, limit int) ([]FTSEventHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.timestamp, e.message, e.metadata, -bm25(events_fts) AS score
		FROM events_fts
		JOIN events e ON e.rowid = events_fts.rowid
		WHERE events_fts MATCH ?
		ORDER BY score DESC
		LIMIT ?`, matchQuery, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []FTSEventHit
	for rows.Next() {
		var e model.Event
		var timestamp, metadata string
		var score float64
		if err := rows.Scan(&e.ID, &timestamp, &e.Message, &metadata, &score); err != nil {
			return nil, translateErr(err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
		e.Metadata = model.Metadata(metadata)
		out = append(out, FTSEventHit{Event: e, Score: score})
	}
	return out, nil
}

// SearchAssetsFTS runs matchQuery against assets_fts (current head content
// only — assets.key/id/metadata, not blob content).
func (s *Store) SearchAssetsFTS(ctx context.Context, matchQuery string, limit int) ([]FTSAssetHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.context_id, a.key, a.extension, a.content_hash, a.indexed_at, a.metadata, a.head_version_ref,
		       -bm25(assets_fts) AS score
		FROM assets_fts
		JOIN assets a ON a.rowid = assets_fts.rowid
		WHERE assets_fts MATCH ?
		ORDER BY score DESC
		LIMIT ?`, matchQuery, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	return scanAssetFTSHits(rows)
}

// SearchAssetContentFTS searches content_store_fts for assets whose *stored
// content* matches, restricted to contextID's current head assets (spec
// §4.10: the default versioned-asset path when no version filter is
// supplied still searches current content).
func (s *Store) SearchAssetContentFTS(ctx context.Context, contextID, matchQuery string, limit int) ([]FTSAssetHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.context_id, a.key, a.extension, a.content_hash, a.indexed_at, a.metadata, a.head_version_ref,
		       -bm25(content_store_fts) AS score
		FROM content_store_fts
		JOIN content_store cs ON cs.rowid = content_store_fts.rowid
		JOIN assets a ON a.content_hash = cs.content_hash
		WHERE content_store_fts MATCH ? AND a.context_id = ?
		ORDER BY score DESC
		LIMIT ?`, matchQuery, contextID, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	return scanAssetFTSHits(rows)
}

// SearchAssetVersionFTS searches content_store_fts restricted to a single
// version ref (exact id or LIKE prefix — resolved by the caller via
// ResolveShortRef first), joined through asset_versions (spec §4.10).
func (s *Store) SearchAssetVersionFTS(ctx context.Context, contextID, refID, matchQuery string, limit int) ([]FTSAssetHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT av.context_id, av.key, av.version_ref_id, av.content_hash, av.status,
		       -bm25(content_store_fts) AS score
		FROM content_store_fts
		JOIN content_store cs ON cs.rowid = content_store_fts.rowid
		JOIN asset_versions av ON av.content_hash = cs.content_hash
		WHERE content_store_fts MATCH ? AND av.context_id = ? AND av.version_ref_id = ?
		ORDER BY score DESC
		LIMIT ?`, matchQuery, contextID, refID, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []FTSAssetHit
	for rows.Next() {
		var a model.Asset
		var versionRefID, status string
		var score float64
		if err := rows.Scan(&a.ContextID, &a.Key, &versionRefID, &a.ContentHash, &status, &score); err != nil {
			return nil, translateErr(err)
		}
		a.ID = model.AssetID(a.ContextID, a.Key)
		a.HeadVersionRef = versionRefID
		out = append(out, FTSAssetHit{Asset: a, Score: score})
	}
	return out, nil
}

// SearchAssetHistoryFTS searches content_store_fts across every version ref
// recorded for contextID (spec §4.10: "version.history=true... unions
// content across all versions with current head content" — the head half
// of the union is SearchAssetContentFTS, called separately by the caller).
func (s *Store) SearchAssetHistoryFTS(ctx context.Context, contextID, matchQuery string, limit int) ([]FTSAssetHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT av.context_id, av.key, av.version_ref_id, av.content_hash, av.status,
		       -bm25(content_store_fts) AS score
		FROM content_store_fts
		JOIN content_store cs ON cs.rowid = content_store_fts.rowid
		JOIN asset_versions av ON av.content_hash = cs.content_hash
		WHERE content_store_fts MATCH ? AND av.context_id = ?
		ORDER BY score DESC
		LIMIT ?`, matchQuery, contextID, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []FTSAssetHit
	for rows.Next() {
		var a model.Asset
		var versionRefID, status string
		var score float64
		if err := rows.Scan(&a.ContextID, &a.Key, &versionRefID, &a.ContentHash, &status, &score); err != nil {
			return nil, translateErr(err)
		}
		a.ID = model.AssetID(a.ContextID, a.Key)
		a.HeadVersionRef = versionRefID
		out = append(out, FTSAssetHit{Asset: a, Score: score})
	}
	return out, nil
}

func scanAssetFTSHits(rows *sql.Rows) ([]FTSAssetHit, error) {
	var out []FTSAssetHit
	for rows.Next() {
		var a model.Asset
		var indexedAt, metadata string
		var headVersionRef *string
		var score float64
		if err := rows.Scan(&a.ID, &a.ContextID, &a.Key, &a.Extension, &a.ContentHash, &indexedAt, &metadata, &headVersionRef, &score); err != nil {
			return nil, translateErr(err)
		}
		a.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
		a.Metadata = model.Metadata(metadata)
		if headVersionRef != nil {
			a.HeadVersionRef = *headVersionRef
		}
		out = append(out, FTSAssetHit{Asset: a, Score: score})
	}
	return out, nil
}

// RecentEvents returns the most recent events without an FTS match, for the
// empty-query fallback (spec §4.10: "empty queries fall back to
// timestamp-desc selection without MATCH").
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, message, metadata FROM events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// RecentAssets returns the most recently indexed assets without an FTS
// match, for the empty-query fallback.
func (s *Store) RecentAssets(ctx context.Context, limit int) ([]model.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, context_id, key, extension, content_hash, indexed_at, metadata, head_version_ref
		 FROM assets ORDER BY indexed_at DESC LIMIT ?`, limit)
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
