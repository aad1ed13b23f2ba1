package dbstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// GetContent reads a blob by hash and advances its last_accessed_at in the
// same logical step (spec §4.2 get).
func (s *Store) GetContent(ctx context.Context, hash string) (*model.ContentBlob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := Now().UTC()
	var blob model.ContentBlob
	var lastAccessed, createdAt string
	row := s.db.QueryRowContext(ctx,
		`SELECT content_hash, content, size_bytes, last_accessed_at, created_at FROM content_store WHERE content_hash = ?`, hash)
	if err := row.Scan(&blob.ContentHash, &blob.Content, &blob.SizeBytes, &lastAccessed, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	blob.LastAccessedAt, _ = time.Parse(time.RFC3339, lastAccessed)
	blob.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	if _, err := s.db.ExecContext(ctx, `UPDATE content_store SET last_accessed_at = ? WHERE content_hash = ?`, now.Format(time.RFC3339), hash); err != nil {
		return nil, translateErr(err)
	}
	blob.LastAccessedAt = now
	return &blob, nil
}

// PutContent inserts the blob if absent, then inserts a head content-ref for
// (hash, contextID) if one does not already exist. Collisions on the
// partial unique index for head refs are silently ignored (spec §4.2 put).
func (s *Store) PutContent(ctx context.Context, hash string, content []byte, contextID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO content_store(content_hash, content, size_bytes, last_accessed_at, created_at)
		 SELECT ?, ?, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM content_store WHERE content_hash = ?)`,
		hash, content, len(content), now, now, hash); err != nil {
		return translateErr(err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO content_refs(content_hash, context_id, is_head, version_ref_id) VALUES (?, ?, 1, NULL)`,
		hash, contextID); err != nil {
		return translateErr(err)
	}
	return nil
}

// PutVersionedContent records a non-head content-ref for (hash, contextID,
// versionRefID), inserting the blob first if it doesn't exist (spec §4.7
// sync algorithm).
func (s *Store) PutVersionedContent(ctx context.Context, hash string, content []byte, contextID, versionRefID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO content_store(content_hash, content, size_bytes, last_accessed_at, created_at)
		 SELECT ?, ?, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM content_store WHERE content_hash = ?)`,
		hash, content, len(content), now, now, hash); err != nil {
		return translateErr(err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO content_refs(content_hash, context_id, is_head, version_ref_id) VALUES (?, ?, 0, ?)`,
		hash, contextID, versionRefID); err != nil {
		return translateErr(err)
	}
	return nil
}

// ReleaseHead deletes any head ref for hash; if the total refcount for hash
// drops to one-or-fewer, deletes the blob (spec §4.2 release_head).
//
// The off-by-one reflects the pre-count behaviour of the source: we count
// BEFORE deleting the head ref, so a hash with exactly one remaining ref
// (the head ref itself) is still evicted once that ref is released, rather
// than requiring the count to reach zero. Preserving this ordering exactly
// is spec §9's "Eviction refcount" note — swapping the order retains blobs
// forever.
func (s *Store) ReleaseHead(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_refs WHERE content_hash = ?`, hash)
	if err := row.Scan(&count); err != nil {
		return translateErr(err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_refs WHERE content_hash = ? AND is_head = 1`, hash); err != nil {
		return translateErr(err)
	}

	if count <= 1 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM content_store WHERE content_hash = ?`, hash); err != nil {
			return translateErr(err)
		}
	}
	return nil
}

// ContentExists reports whether a blob for hash is stored.
func (s *Store) ContentExists(ctx context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	row := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM content_store WHERE content_hash = ?)`, hash)
	if err := row.Scan(&exists); err != nil {
		return false, translateErr(err)
	}
	return exists == 1, nil
}

// EvictionResult summarises a single eviction pass (spec §4.7, S5).
type EvictionResult struct {
	RowsEvicted int
	BytesFreed  int64
}

// EvictStale selects up to batchSize rows from content_store whose
// last_accessed_at is older than thresholdDays AND which have no head ref,
// and deletes them (spec §4.7 content eviction).
func (s *Store) EvictStale(ctx context.Context, thresholdDays int, batchSize int) (*EvictionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := Now().UTC().AddDate(0, 0, -thresholdDays).Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.content_hash, cs.size_bytes FROM content_store cs
		WHERE cs.last_accessed_at < ?
		  AND NOT EXISTS (SELECT 1 FROM content_refs cr WHERE cr.content_hash = cs.content_hash AND cr.is_head = 1)
		LIMIT ?`, cutoff, batchSize)
	if err != nil {
		return nil, translateErr(err)
	}

	type victim struct {
		hash string
		size int64
	}
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.hash, &v.size); err != nil {
			rows.Close()
			return nil, translateErr(err)
		}
		victims = append(victims, v)
	}
	rows.Close()

	result := &EvictionResult{}
	for _, v := range victims {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM content_store WHERE content_hash = ?`, v.hash); err != nil {
			return result, translateErr(err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM content_refs WHERE content_hash = ?`, v.hash); err != nil {
			return result, translateErr(err)
		}
		result.RowsEvicted++
		result.BytesFreed += v.size
	}
	return result, nil
}

// contentRefCount is a test/diagnostic helper exposing the raw refcount
// invariant checked by spec §8.2/§8.3.
func (s *Store) contentRefCount(ctx context.Context, hash string) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_refs WHERE content_hash = ?`, hash)
	err := row.Scan(&count)
	return count, err
}
