// Package related implements the related-context resolver (spec C13, §4.13):
// given an event, find its peers by a metadata groupBy path, falling back
// to a temporal window, then collect any assets the peer events reference.
package related

import (
	"context"
	"fmt"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
)

// Strategy is {groupBy, orderBy, direction} (spec §4.13 input).
type Strategy struct {
	GroupBy   string
	OrderBy   string
	Direction string
}

// StrategyUsed reports which branch of the algorithm actually produced the
// peer set (spec §4.13 output: "strategyUsed ∈ {grouped, temporal}").
type StrategyUsed string

const (
	Grouped StrategyUsed = "grouped"
	Temporal StrategyUsed = "temporal"
)

// Context is the §4.13 output shape: {events, assets, strategyUsed}.
type Context struct {
	Events       []model.Event
	Assets       []model.Asset
	StrategyUsed StrategyUsed
}

// Resolver resolves related context for a given event (spec C13).
type Resolver struct {
	store *dbstore.Store
}

// NewResolver builds a Resolver over store.
func NewResolver(store *dbstore.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve implements the spec §4.13 algorithm for the event with id.
func (r *Resolver) Resolve(ctx context.Context, eventID string, strategy Strategy, windowSeconds, limit int) (*Context, error) {
	event, err := r.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("apprentice/related: fetch event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, fmt.Errorf("apprentice/related: event %s not found", eventID)
	}

	events, used, err := r.findPeers(ctx, *event, strategy, windowSeconds, limit)
	if err != nil {
		return nil, err
	}

	assets, err := r.collectAssets(ctx, events)
	if err != nil {
		return nil, err
	}

	return &Context{Events: events, Assets: assets, StrategyUsed: used}, nil
}

// findPeers implements steps 1-2 of spec §4.13: groupBy match first, with
// a fallback to the temporal window when groupBy is unset or the group is
// empty.
func (r *Resolver) findPeers(ctx context.Context, event model.Event, strategy Strategy, windowSeconds, limit int) ([]model.Event, StrategyUsed, error) {
	if strategy.GroupBy != "" {
		value := event.Metadata.GetString(strategy.GroupBy)
		if value != "" {
			orderBy := strategy.OrderBy
			if orderBy == "" {
				orderBy = "timestamp"
			}
			direction := strategy.Direction
			if direction == "" {
				direction = "asc"
			}
			peers, err := r.store.EventsByMetadataPath(ctx, strategy.GroupBy, value, event.ID, orderBy, direction, limit)
			if err != nil {
				return nil, "", fmt.Errorf("apprentice/related: grouped query: %w", err)
			}
			if len(peers) > 0 {
				return peers, Grouped, nil
			}
		}
	}

	peers, err := r.store.EventsInWindow(ctx, event.Timestamp, windowSeconds, event.ID, limit)
	if err != nil {
		return nil, "", fmt.Errorf("apprentice/related: temporal query: %w", err)
	}
	return peers, Temporal, nil
}

// collectAssets gathers asset ids referenced by events' metadata.relations
// and metadata.asset.id (spec §4.13 step 3) and fetches them.
func (r *Resolver) collectAssets(ctx context.Context, events []model.Event) ([]model.Asset, error) {
	seen := map[string]bool{}
	var ids []string
	addID := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, e := range events {
		if id := e.Metadata.GetString("asset.id"); id != "" {
			addID(id)
		}
		relations := e.Metadata.Get("relations")
		if relations.IsArray() {
			for _, rel := range relations.Array() {
				addID(rel.Get("asset_id").String())
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	assets, err := r.store.GetAssetsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("apprentice/related: fetch assets: %w", err)
	}
	return assets, nil
}
