package search

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/embedding"
	"github.com/AprovanLabs/apprentice/internal/related"
)

// defaultOverFetchBase is the limit used to over-fetch each channel before
// fusion (spec §4.12 effectively reuses §4.10/§4.11's over-fetch rule).
const defaultOverFetchBase = 200

// Searcher runs the query interface (spec §6) over a store, optionally
// using an embedding provider for vector/hybrid modes.
type Searcher struct {
	store    *dbstore.Store
	provider embedding.Provider // nil disables vector/hybrid
	related  *related.Resolver
}

// NewSearcher builds a Searcher. provider may be nil when embeddings are
// disabled (spec §4.12: "if embeddings are unavailable... degrade to fts").
func NewSearcher(store *dbstore.Store, provider embedding.Provider) *Searcher {
	return &Searcher{store: store, provider: provider, related: related.NewResolver(store)}
}

// Search runs query against the configured scope and returns the fused,
// paginated result set (spec §4.12: "{results, total, mode, durationMs,
// embeddingsAvailable}").
func (s *Searcher) Search(ctx context.Context, query string, opts Options) (*Result, error) {
	start := time.Now()

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	fetch := limit
	if fetch < defaultOverFetchBase {
		fetch = defaultOverFetchBase
	}

	weightFTS, weightVector := opts.WeightFTS, opts.WeightVector
	if weightFTS == 0 && weightVector == 0 {
		weightFTS, weightVector = 0.4, 0.6
	}

	embeddingsAvailable, err := s.store.AnyEmbeddingsExist(ctx, opts.Scope.Events, opts.Scope.Assets)
	if err != nil {
		return nil, fmt.Errorf("apprentice/search: check embeddings: %w", err)
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	if (mode == ModeVector || mode == ModeHybrid) && !embeddingsAvailable {
		mode = ModeFTS
	}
	if (mode == ModeVector || mode == ModeHybrid) && s.provider == nil {
		mode = ModeFTS
	}

	var ftsHits, vectorHits []Hit
	var queryVec []float32

	g, gctx := errgroup.WithContext(ctx)
	if mode == ModeFTS || mode == ModeHybrid {
		g.Go(func() error {
			hits, err := s.runFTS(gctx, query, opts, fetch)
			if err != nil {
				return err
			}
			ftsHits = hits
			return nil
		})
	}
	if mode == ModeVector || mode == ModeHybrid {
		vec, err := s.embedQuery(ctx, query)
		if err != nil {
			return nil, err
		}
		queryVec = vec
		g.Go(func() error {
			hits, err := s.runVector(gctx, queryVec, fetch)
			if err != nil {
				return err
			}
			vectorHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ftsHits = applyFilters(ftsHits, opts)
	vectorHits = applyFilters(vectorHits, opts)

	var ranked []RankedHit
	switch mode {
	case ModeFTS:
		ranked = fuseSingle(ftsHits, ModeFTS)
	case ModeVector:
		ranked = fuseSingle(vectorHits, ModeVector)
	default:
		ranked = fuse(query, ftsHits, vectorHits, weightFTS, weightVector)
	}

	total := len(ranked)
	page := paginate(ranked, opts.Offset, limit)

	if opts.Related && opts.Scope.Events {
		if err := s.attachRelated(ctx, page, opts); err != nil {
			return nil, err
		}
	}

	return &Result{
		Results:             page,
		Total:               total,
		Mode:                mode,
		DurationMs:          time.Since(start).Milliseconds(),
		EmbeddingsAvailable: embeddingsAvailable,
	}, nil
}

// Related resolves §4.13 related-context for a single event id directly,
// bypassing Search — used by callers (e.g. the MCP related-context tool)
// that already have an event id in hand.
func (s *Searcher) Related(ctx context.Context, eventID string, strategy related.Strategy, windowSeconds, limit int) (*related.Context, error) {
	return s.related.Resolve(ctx, eventID, strategy, windowSeconds, limit)
}

func (s *Searcher) runFTS(ctx context.Context, query string, opts Options, fetch int) ([]Hit, error) {
	var hits []Hit
	if opts.Scope.Events {
		eventHits, err := searchEventsFTS(ctx, s.store, query, opts, fetch)
		if err != nil {
			return nil, err
		}
		hits = append(hits, eventHits...)
	}
	if opts.Scope.Assets {
		var assetHits []Hit
		var err error
		if opts.Version != nil && len(opts.ContextIDs) == 1 {
			assetHits, err = searchVersionedAssetsFTS(ctx, s.store, opts.ContextIDs[0], query, *opts.Version, fetch)
		} else {
			assetHits, err = searchAssetsFTS(ctx, s.store, query, opts, fetch)
		}
		if err != nil {
			return nil, err
		}
		hits = append(hits, assetHits...)
	}
	return hits, nil
}

func (s *Searcher) runVector(ctx context.Context, queryVec []float32, fetch int) ([]Hit, error) {
	var hits []Hit
	if len(queryVec) == 0 {
		return hits, nil
	}
	events, err := searchEventsVector(ctx, s.store, queryVec, fetch)
	if err != nil {
		return nil, err
	}
	assets, err := searchAssetsVector(ctx, s.store, queryVec, fetch)
	if err != nil {
		return nil, err
	}
	hits = append(hits, events...)
	hits = append(hits, assets...)
	return hits, nil
}

func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.provider == nil || query == "" {
		return nil, nil
	}
	vec, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("apprentice/search: embed query: %w", err)
	}
	return vec, nil
}

// attachRelated resolves §4.13 related-context for each event hit in page
// (spec §4.12: "related=true triggers §4.13 for event results only").
func (s *Searcher) attachRelated(ctx context.Context, page []RankedHit, opts Options) error {
	var strategy related.Strategy
	if opts.Strategy != nil {
		strategy = related.Strategy{GroupBy: opts.Strategy.GroupBy, OrderBy: opts.Strategy.OrderBy, Direction: opts.Strategy.Direction}
	}
	windowSeconds := opts.WindowSeconds
	if windowSeconds <= 0 {
		windowSeconds = 300
	}
	relatedLimit := opts.RelatedLimit
	if relatedLimit <= 0 {
		relatedLimit = 10
	}

	for i := range page {
		if page[i].Kind != KindEvent {
			continue
		}
		ctxResult, err := s.related.Resolve(ctx, page[i].ID, strategy, windowSeconds, relatedLimit)
		if err != nil {
			return fmt.Errorf("apprentice/search: related context for %s: %w", page[i].ID, err)
		}
		page[i].Related = ctxResult
	}
	return nil
}
