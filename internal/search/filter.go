package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// applyFilters applies the since/until/recentMinutes/contextIds/extensions/
// metadata filters in memory (spec §4.10/§4.11: "if any filter is present,
// the FTS is over-fetched... and filtered in memory, then truncated to
// limit").
func applyFilters(hits []Hit, opts Options) []Hit {
	if !hasFilters(opts) {
		return hits
	}

	var since, until time.Time
	hasSince, hasUntil := opts.Since != nil, opts.Until != nil
	if hasSince {
		since = *opts.Since
	}
	if hasUntil {
		until = *opts.Until
	}
	if opts.RecentMinutes > 0 {
		cutoff := time.Now().Add(-time.Duration(opts.RecentMinutes) * time.Minute)
		if !hasSince || cutoff.After(since) {
			since = cutoff
			hasSince = true
		}
	}

	contextIDs := toSet(opts.ContextIDs)
	extensions := toSet(opts.Extensions)

	out := hits[:0:0]
	for _, h := range hits {
		if hasSince && h.Timestamp.Before(since) {
			continue
		}
		if hasUntil && h.Timestamp.After(until) {
			continue
		}
		if len(contextIDs) > 0 && !contextIDs[h.ContextID] {
			continue
		}
		if len(extensions) > 0 && !extensions[strings.ToLower(h.Extension)] {
			continue
		}
		if !matchesMetadataFilters(h, opts.Filters) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// matchesMetadataFilters checks arbitrary dot-path equality filters (spec
// §6: "dot-path equality; numeric comparisons cast both sides to number").
func matchesMetadataFilters(h Hit, filters map[string]string) bool {
	if len(filters) == 0 {
		return true
	}
	md := model.Metadata(h.MetadataRaw)
	for path, want := range filters {
		got := md.Get(path)
		if !got.Exists() {
			return false
		}
		if wantNum, err1 := strconv.ParseFloat(want, 64); err1 == nil {
			if gotNum, err2 := strconv.ParseFloat(got.String(), 64); err2 == nil {
				if gotNum != wantNum {
					return false
				}
				continue
			}
		}
		if got.String() != want {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[strings.ToLower(i)] = true
	}
	return out
}
