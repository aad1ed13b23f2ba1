package dbstore

import (
	"context"
	"time"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// NeedingAssetEmbedding selects up to limit asset ids that have no embedding
// row yet (spec §4.9 batch selection).
func (s *Store) NeedingAssetEmbedding(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id FROM assets a
		LEFT JOIN asset_embeddings e ON e.asset_id = a.id
		WHERE e.asset_id IS NULL
		LIMIT ?`, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translateErr(err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NeedingEventEmbedding selects up to limit event ids that have no embedding row yet.
func (s *Store) NeedingEventEmbedding(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id FROM events e
		LEFT JOIN event_embeddings v ON v.event_id = e.id
		WHERE v.event_id IS NULL
		LIMIT ?`, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translateErr(err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SetAssetEmbedding upserts an asset's embedding (spec §4.9: "INSERT OR
// REPLACE serialising each vector as a native F32 blob").
func (s *Store) SetAssetEmbedding(ctx context.Context, assetID string, vec []float32, modelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO asset_embeddings(asset_id, embedding, model, created_at) VALUES (?, ?, ?, ?)`,
		assetID, model.EncodeVector(vec), modelName, Now().UTC().Format(time.RFC3339))
	return translateErr(err)
}

// SetEventEmbedding upserts an event's embedding.
func (s *Store) SetEventEmbedding(ctx context.Context, eventID string, vec []float32, modelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO event_embeddings(event_id, embedding, model, created_at) VALUES (?, ?, ?, ?)`,
		eventID, model.EncodeVector(vec), modelName, Now().UTC().Format(time.RFC3339))
	return translateErr(err)
}

// VectorRow pairs an entity id with its decoded embedding, used by C11
// vector search's in-memory cosine scan.
type VectorRow struct {
	ID        string
	Embedding []float32
}

// AllAssetEmbeddings returns every (asset_id, embedding) pair, for the
// in-memory cosine scan in internal/search (spec §4.11).
func (s *Store) AllAssetEmbeddings(ctx context.Context) ([]VectorRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT asset_id, embedding FROM asset_embeddings`)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	var out []VectorRow
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, translateErr(err)
		}
		out = append(out, VectorRow{ID: id, Embedding: model.DecodeVector(blob)})
	}
	return out, nil
}

// AllEventEmbeddings returns every (event_id, embedding) pair.
func (s *Store) AllEventEmbeddings(ctx context.Context) ([]VectorRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT event_id, embedding FROM event_embeddings`)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	var out []VectorRow
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, translateErr(err)
		}
		out = append(out, VectorRow{ID: id, Embedding: model.DecodeVector(blob)})
	}
	return out, nil
}

// AnyEmbeddingsExist reports whether the vector corpus is non-empty, used
// by the hybrid fuser to decide whether to degrade vector/hybrid to fts
// (spec §4.12: "if embeddings are unavailable for the requested corpus,
// vector and hybrid degrade to fts").
func (s *Store) AnyEmbeddingsExist(ctx context.Context, events, assets bool) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if events {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_embeddings`).Scan(&n); err != nil {
			return false, translateErr(err)
		}
		if n > 0 {
			return true, nil
		}
	}
	if assets {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM asset_embeddings`).Scan(&n); err != nil {
			return false, translateErr(err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// RecordEmbeddingDimensions records the dimension count for a model the
// first time it's observed (spec §4.9: "the first embed call reveals the
// dimension and the provider's recorded dimension is updated").
func (s *Store) RecordEmbeddingDimensions(ctx context.Context, modelName string, dims int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embedding_meta(model, dimensions) VALUES (?, ?)
		ON CONFLICT(model) DO NOTHING`, modelName, dims)
	return translateErr(err)
}
