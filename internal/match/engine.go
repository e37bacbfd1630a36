// Package match scores candidate profiles against a requester by shared
// interests and selects the best one. The engine is a pure function over a
// candidate slice; the caller supplies candidates already filtered to the
// requester's level (see storage.ListProfilesByLevel).
package match

import (
	"strings"

	"github.com/thedevi-l/eng-coffee-bot/internal/storage"
)

// NormalizeInterests splits a comma-separated interest string into a
// normalized token set: surrounding whitespace trimmed, lower-cased,
// duplicates collapsed (first occurrence kept), empty tokens dropped.
// Normalization is idempotent.
func NormalizeInterests(interests string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, raw := range strings.Split(interests, ",") {
		tok := strings.ToLower(strings.TrimSpace(raw))
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Score returns the size of the intersection of two normalized token sets.
func Score(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, tok := range a {
		set[tok] = struct{}{}
	}
	n := 0
	for _, tok := range b {
		if _, ok := set[tok]; ok {
			n++
		}
	}
	return n
}

// FindBestMatch returns the candidate sharing the most interests with the
// requester, or nil when candidates is empty. Every candidate is eligible,
// even with zero shared interests.
//
// Ties go to the first candidate in scan order (strict > comparison). That
// rule is load-bearing: it keeps match results reproducible across runs, so
// don't swap it for a fairness-aware tie-break without revisiting the tests.
func FindBestMatch(requesterInterests string, candidates []storage.Profile) *storage.Profile {
	reqSet := NormalizeInterests(requesterInterests)

	bestScore := -1
	var best *storage.Profile
	for i := range candidates {
		score := Score(reqSet, NormalizeInterests(candidates[i].Interests))
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}
	return best
}
