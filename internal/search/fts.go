package search

import (
	"context"
	"fmt"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
)

// ftsLimit computes the over-fetch size: max(limit*10, 200) when any filter
// is present, else the plain limit (spec §4.10).
func ftsLimit(opts Options, limit int) int {
	if hasFilters(opts) {
		if n := limit * 10; n > 200 {
			return n
		}
		return 200
	}
	return limit
}

func hasFilters(opts Options) bool {
	return opts.Since != nil || opts.Until != nil || opts.RecentMinutes > 0 ||
		len(opts.ContextIDs) > 0 || len(opts.Extensions) > 0 || len(opts.Filters) > 0
}

// searchEventsFTS runs the FTS event channel, including the empty-query
// timestamp-desc fallback (spec §4.10).
func searchEventsFTS(ctx context.Context, store *dbstore.Store, query string, opts Options, limit int) ([]Hit, error) {
	fetch := ftsLimit(opts, limit)

	match := buildMatchQuery(query)
	if match == "" {
		events, err := store.RecentEvents(ctx, fetch)
		if err != nil {
			return nil, fmt.Errorf("apprentice/search: recent events: %w", err)
		}
		hits := make([]Hit, len(events))
		for i, e := range events {
			hits[i] = Hit{Kind: KindEvent, ID: e.ID, Message: e.Message, Timestamp: e.Timestamp, MetadataRaw: e.Metadata}
		}
		return hits, nil
	}

	rows, err := store.SearchEventsFTS(ctx, match, fetch)
	if err != nil {
		return nil, fmt.Errorf("apprentice/search: events fts: %w", err)
	}
	hits := make([]Hit, len(rows))
	for i, r := range rows {
		hits[i] = Hit{Kind: KindEvent, ID: r.Event.ID, Message: r.Event.Message, Timestamp: r.Event.Timestamp, Score: r.Score, MetadataRaw: r.Event.Metadata}
	}
	return hits, nil
}

// searchAssetsFTS runs the FTS asset channel (key/id/metadata, not blob
// content) plus the empty-query fallback (spec §4.10).
func searchAssetsFTS(ctx context.Context, store *dbstore.Store, query string, opts Options, limit int) ([]Hit, error) {
	fetch := ftsLimit(opts, limit)

	match := buildMatchQuery(query)
	if match == "" {
		assets, err := store.RecentAssets(ctx, fetch)
		if err != nil {
			return nil, fmt.Errorf("apprentice/search: recent assets: %w", err)
		}
		return assetsToHits(assets), nil
	}

	rows, err := store.SearchAssetsFTS(ctx, match, fetch)
	if err != nil {
		return nil, fmt.Errorf("apprentice/search: assets fts: %w", err)
	}
	hits := make([]Hit, len(rows))
	for i, r := range rows {
		hits[i] = assetHitFrom(r)
	}
	return hits, nil
}

// searchVersionedAssetsFTS implements the versioned-asset branch of §4.10:
// a ref filter restricts the search to one version snapshot of
// content_store; history=true unions all version snapshots with current
// head content.
func searchVersionedAssetsFTS(ctx context.Context, store *dbstore.Store, contextID, query string, v VersionFilter, limit int) ([]Hit, error) {
	match := buildMatchQuery(query)
	if match == "" {
		assets, err := store.RecentAssets(ctx, limit)
		if err != nil {
			return nil, err
		}
		return assetsToHits(assets), nil
	}

	if v.Ref != "" {
		refID := v.Ref
		if len(refID) < 40 {
			resolved, err := store.ResolveShortRef(ctx, contextID, refID)
			if err != nil {
				return nil, fmt.Errorf("apprentice/search: resolve short ref: %w", err)
			}
			if resolved == nil {
				return nil, nil
			}
			refID = resolved.ID
		}
		rows, err := store.SearchAssetVersionFTS(ctx, contextID, refID, match, limit)
		if err != nil {
			return nil, fmt.Errorf("apprentice/search: versioned assets fts: %w", err)
		}
		hits := make([]Hit, len(rows))
		for i, r := range rows {
			hits[i] = assetHitFrom(r)
		}
		return hits, nil
	}

	if v.History {
		history, err := store.SearchAssetHistoryFTS(ctx, contextID, match, limit)
		if err != nil {
			return nil, fmt.Errorf("apprentice/search: asset history fts: %w", err)
		}
		head, err := store.SearchAssetContentFTS(ctx, contextID, match, limit)
		if err != nil {
			return nil, fmt.Errorf("apprentice/search: asset head fts: %w", err)
		}
		hits := make([]Hit, 0, len(history)+len(head))
		for _, r := range history {
			hits = append(hits, assetHitFrom(r))
		}
		for _, r := range head {
			hits = append(hits, assetHitFrom(r))
		}
		return hits, nil
	}

	rows, err := store.SearchAssetContentFTS(ctx, contextID, match, limit)
	if err != nil {
		return nil, fmt.Errorf("apprentice/search: asset content fts: %w", err)
	}
	hits := make([]Hit, len(rows))
	for i, r := range rows {
		hits[i] = assetHitFrom(r)
	}
	return hits, nil
}

func assetHitFrom(r dbstore.FTSAssetHit) Hit {
	return Hit{
		Kind: KindAsset, ID: r.Asset.ID, Key: r.Asset.Key, Timestamp: r.Asset.IndexedAt,
		Score: r.Score, ContextID: r.Asset.ContextID, Extension: r.Asset.Extension, MetadataRaw: r.Asset.Metadata,
	}
}

func assetsToHits(assets []model.Asset) []Hit {
	hits := make([]Hit, len(assets))
	for i, a := range assets {
		hits[i] = Hit{
			Kind: KindAsset, ID: a.ID, Key: a.Key, Timestamp: a.IndexedAt,
			ContextID: a.ContextID, Extension: a.Extension, MetadataRaw: a.Metadata,
		}
	}
	return hits
}
