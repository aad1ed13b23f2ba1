package search

import "sort"

// rrfK is the Reciprocal Rank Fusion constant (spec §4.12).
const rrfK = 60

// boostFactor is the term-match-ratio boost ceiling B (spec §4.12).
const boostFactor = 3.0

// fuse combines per-channel result lists into one ranked union (spec
// §4.12). Single-mode callers pass an empty slice for the unused channel.
func fuse(query string, ftsHits, vectorHits []Hit, weightFTS, weightVector float64) []RankedHit {
	type accum struct {
		hit       Hit
		rrf       float64
		matchType MatchType
		distance  *float64
	}
	byKey := map[string]*accum{}
	key := func(h Hit) string { return string(h.Kind) + ":" + h.ID }

	multiTerm := len(queryTerms(query)) >= 2

	boostFor := func(h Hit) float64 {
		if !multiTerm {
			return 1
		}
		matchText := h.Message
		if h.Kind == KindAsset {
			matchText = h.ID + " " + h.Key
		}
		ratio := termMatchRatio(query, matchText)
		return 1 + (boostFactor-1)*ratio
	}

	for rank, h := range ftsHits {
		a, ok := byKey[key(h)]
		if !ok {
			a = &accum{hit: h, matchType: MatchFTS}
			byKey[key(h)] = a
		}
		a.rrf += (weightFTS / float64(rrfK+rank+1)) * boostFor(h)
	}
	for rank, h := range vectorHits {
		d := h.Score
		a, ok := byKey[key(h)]
		if !ok {
			a = &accum{hit: h, matchType: MatchVector, distance: &d}
			byKey[key(h)] = a
		} else {
			a.matchType = MatchBoth
			a.distance = &d
		}
		a.rrf += (weightVector / float64(rrfK+rank+1)) * boostFor(h)
	}

	out := make([]RankedHit, 0, len(byKey))
	for _, a := range byKey {
		out = append(out, RankedHit{Hit: a.hit, RRFScore: a.rrf, MatchType: a.matchType, Distance: a.distance})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RRFScore > out[j].RRFScore })
	return out
}

// fuseSingle builds ranked hits for a lone channel (fts-only or
// vector-only), normalising scores to [0,1] (spec §4.12: "normalise scores
// to [0,1] via min-max for FTS, or 1 - distance/2 for vector").
func fuseSingle(hits []Hit, mode Mode) []RankedHit {
	out := make([]RankedHit, len(hits))
	if mode == ModeVector {
		for i, h := range hits {
			d := h.Score
			norm := 1 - d/2
			out[i] = RankedHit{Hit: h, RRFScore: norm, MatchType: MatchVector, Distance: &d}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].RRFScore > out[j].RRFScore })
		return out
	}

	var maxScore, minScore float64
	for i, h := range hits {
		if i == 0 || h.Score > maxScore {
			maxScore = h.Score
		}
		if i == 0 || h.Score < minScore {
			minScore = h.Score
		}
	}
	spread := maxScore - minScore
	for i, h := range hits {
		norm := 1.0
		if spread > 0 {
			norm = (h.Score - minScore) / spread
		}
		out[i] = RankedHit{Hit: h, RRFScore: norm, MatchType: MatchFTS}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RRFScore > out[j].RRFScore })
	return out
}

// paginate applies offset/limit to a ranked result list.
func paginate(hits []RankedHit, offset, limit int) []RankedHit {
	if offset >= len(hits) {
		return nil
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}
