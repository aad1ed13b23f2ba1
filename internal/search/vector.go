package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
)

// searchEventsVector scores every event embedding against queryVec by
// cosine distance, in memory (spec §4.11: the host has no SQL-level vector
// function, so this scans like matthewjhunter/memstore's searchVector).
func searchEventsVector(ctx context.Context, store *dbstore.Store, queryVec []float32, fetch int) ([]Hit, error) {
	rows, err := store.AllEventEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("apprentice/search: event embeddings: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	dist := make(map[string]float64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		dist[r.ID] = model.CosineDistance(queryVec, r.Embedding)
	}
	sort.Slice(ids, func(i, j int) bool { return dist[ids[i]] < dist[ids[j]] })
	if len(ids) > fetch {
		ids = ids[:fetch]
	}

	events, err := store.GetEventsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("apprentice/search: fetch scored events: %w", err)
	}
	byID := make(map[string]model.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			continue
		}
		d := dist[id]
		hits = append(hits, Hit{
			Kind: KindEvent, ID: e.ID, Message: e.Message, Timestamp: e.Timestamp,
			Score: d, MetadataRaw: e.Metadata,
		})
	}
	return hits, nil
}

// searchAssetsVector is the asset-corpus analogue of searchEventsVector.
func searchAssetsVector(ctx context.Context, store *dbstore.Store, queryVec []float32, fetch int) ([]Hit, error) {
	rows, err := store.AllAssetEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("apprentice/search: asset embeddings: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	dist := make(map[string]float64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		dist[r.ID] = model.CosineDistance(queryVec, r.Embedding)
	}
	sort.Slice(ids, func(i, j int) bool { return dist[ids[i]] < dist[ids[j]] })
	if len(ids) > fetch {
		ids = ids[:fetch]
	}

	assets, err := store.GetAssetsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("apprentice/search: fetch scored assets: %w", err)
	}
	byID := make(map[string]model.Asset, len(assets))
	for _, a := range assets {
		byID[a.ID] = a
	}

	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			Kind: KindAsset, ID: a.ID, Key: a.Key, Timestamp: a.IndexedAt,
			Score: dist[id], ContextID: a.ContextID, Extension: a.Extension, MetadataRaw: a.Metadata,
		})
	}
	return hits, nil
}
