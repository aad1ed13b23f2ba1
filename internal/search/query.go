package search

import "strings"

// buildMatchQuery rewrites a raw user query into an OR of phrase-prefix
// terms for FTS5 MATCH (spec §4.10): "each whitespace-delimited term is
// quoted and suffixed with *; literal * in user input is preserved."
// Adapted from the host's quoteFTSQuery, which quotes terms for an
// implicit-AND match — here terms are OR-joined and prefix-suffixed per
// spec, and a literal "*" inside a term is kept rather than escaped away.
func buildMatchQuery(raw string) string {
	terms := strings.Fields(raw)
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		hasStar := strings.Contains(t, "*")
		core := strings.ReplaceAll(t, `"`, `""`)
		core = strings.ReplaceAll(core, "*", "")
		quoted := `"` + core + `"`
		if hasStar || core != "" {
			quoted += "*"
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, " OR ")
}

// queryTerms splits and case-folds a query into its non-stopword terms for
// term-match-ratio boosting (spec §4.12): "quoted phrases treated as single
// terms, case-folded... terms of length <= 1 ignored."
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "of": true, "to": true, "in": true,
}

func queryTerms(raw string) []string {
	var terms []string
	var buf strings.Builder
	inQuote := false
	flush := func() {
		if buf.Len() > 0 {
			terms = append(terms, buf.String())
			buf.Reset()
		}
	}
	for _, r := range raw {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()

	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if len(t) <= 1 || stopWords[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// termMatchRatio is the fraction of non-stopword query terms appearing as
// substrings of matchText (spec §4.12).
func termMatchRatio(raw, matchText string) float64 {
	terms := queryTerms(raw)
	if len(terms) == 0 {
		return 0
	}
	matchText = strings.ToLower(matchText)
	hits := 0
	for _, t := range terms {
		if strings.Contains(matchText, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
