package fsindex

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// tokenize splits content on any rune in separators and deduplicates the
// resulting tokens via a scratch map, so repeated terms in one input
// string are inserted into the terms trie only once.
func tokenize(content string, separators string) []string {
	if separators == "" {
		separators = defaultTermSeparators
	}
	fields := strings.FieldsFunc(content, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// FuzzyMatch is one ranked candidate returned by [Index.ResolveSystemIdentifierFuzzy].
type FuzzyMatch struct {
	Identifier string
	Score      float64
}

// rankByJaroWinkler scores every candidate identifier against text using
// [matchr.JaroWinkler], descending by score. It backs the fuzzy
// system-identifier resolution the keynode bootstrap uses to surface
// near-miss identifiers when an exact lookup fails.
func rankByJaroWinkler(text string, candidates []string, limit int) []FuzzyMatch {
	matches := make([]FuzzyMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, FuzzyMatch{Identifier: c, Score: matchr.JaroWinkler(text, c, true)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Identifier < matches[j].Identifier
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
