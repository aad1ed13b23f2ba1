// Package search implements FTS search (C10, §4.10), vector search (C11,
// §4.11), and the hybrid fuser (C12, §4.12) over the dbstore's events,
// assets, and content_store tables.
package search

import (
	"time"

	"github.com/AprovanLabs/apprentice/internal/related"
)

// Mode selects a search channel (spec §4.12).
type Mode string

const (
	ModeFTS    Mode = "fts"
	ModeVector Mode = "vector"
	ModeHybrid Mode = "hybrid"
)

// MatchType annotates which channel(s) produced a hybrid result row.
type MatchType string

const (
	MatchFTS    MatchType = "fts"
	MatchVector MatchType = "vector"
	MatchBoth   MatchType = "both"
)

// EntityKind distinguishes event from asset result rows.
type EntityKind string

const (
	KindEvent EntityKind = "event"
	KindAsset EntityKind = "asset"
)

// Scope selects which corpora a query runs over (spec §6 query interface).
type Scope struct {
	Events bool
	Assets bool
}

// VersionFilter is the 'version.*' filter family for versioned-asset search
// (spec §4.10).
type VersionFilter struct {
	Ref     string // full or short SHA
	Branch  string
	Before  string
	History bool
}

// Strategy is the related-context grouping strategy (spec §4.13), accepted
// here only to pass through into internal/related from the hybrid fuser.
type Strategy struct {
	GroupBy   string
	OrderBy   string
	Direction string
}

// Options is the full query-interface parameter set (spec §6).
type Options struct {
	Mode          Mode
	Limit         int
	Offset        int
	Scope         Scope
	Since         *time.Time
	Until         *time.Time
	RecentMinutes int
	Filters       map[string]string
	ContextIDs    []string
	Extensions    []string
	WeightFTS     float64
	WeightVector  float64
	Version       *VersionFilter
	Related       bool
	Strategy      *Strategy
	WindowSeconds int
	RelatedLimit  int
}

// Hit is one search result row, shape-unified across events and assets.
type Hit struct {
	Kind      EntityKind
	ID        string
	Key       string // asset key; empty for events
	Message   string // event message; empty for assets
	Timestamp time.Time
	Score     float64 // channel-native score (negated bm25, or cosine distance)
	ContextID string
	Extension string
	MetadataRaw []byte
}

// Result is the top-level Search() return shape (spec §6 query interface).
type Result struct {
	Results              []RankedHit
	Total                int
	Mode                 Mode
	DurationMs           int64
	EmbeddingsAvailable  bool
}

// RankedHit is a Hit annotated with fused scoring (spec §4.12).
type RankedHit struct {
	Hit
	RRFScore  float64
	MatchType MatchType
	Distance  *float64        // set for vector-channel rows
	Related   *related.Context // populated when Options.Related is set (event rows only)
}
