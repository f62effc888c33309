// Package match resolves human-typed names against resource lists.
package match

import (
	"sort"
	"strings"

	"github.com/aldld/huebackup/hueerr"
)

const maxSuggestions = 5

// ByName picks the single candidate whose name matches query. An exact
// case-insensitive match wins over substring matches. Zero matches yields a
// *hueerr.NotFoundError with suggestions, several yield a *hueerr.AmbiguousError.
func ByName[T any](kind, query string, candidates []T, name func(T) string) (T, error) {
	var zero T
	want := strings.ToLower(strings.TrimSpace(query))

	var exact, partial []T
	for _, c := range candidates {
		n := strings.ToLower(name(c))
		if n == want {
			exact = append(exact, c)
		} else if want != "" && strings.Contains(n, want) {
			partial = append(partial, c)
		}
	}

	matches := exact
	if len(matches) == 0 {
		matches = partial
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = name(c)
		}
		return zero, &hueerr.NotFoundError{
			Kind:        kind,
			Query:       query,
			Suggestions: Similar(query, names, maxSuggestions),
		}
	default:
		names := make([]string, len(matches))
		for i, c := range matches {
			names[i] = name(c)
		}
		return zero, &hueerr.AmbiguousError{Kind: kind, Query: query, Candidates: names}
	}
}

// Similarity scores how alike two names are: 100 for an exact match, 80 for
// a prefix, 60 for a substring, and up to 50 for an in-order character match.
// Scores of 20 or less count as no match.
func Similarity(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	switch {
	case a == b:
		return 100
	case strings.HasPrefix(a, b) || strings.HasPrefix(b, a):
		return 80
	case strings.Contains(a, b) || strings.Contains(b, a):
		return 60
	}

	ar, br := []rune(a), []rune(b)
	matches, j := 0, 0
	for _, r := range ar {
		for j < len(br) {
			j++
			if br[j-1] == r {
				matches++
				break
			}
		}
	}
	if matches == 0 {
		return 0
	}
	longest := len(ar)
	if len(br) > longest {
		longest = len(br)
	}
	score := matches * 50 / longest
	if score <= 20 {
		return 0
	}
	return score
}

// Similar returns up to limit candidates ranked by Similarity, best first.
func Similar(target string, candidates []string, limit int) []string {
	type scored struct {
		name  string
		score int
	}
	var ranked []scored
	seen := make(map[string]bool)
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		if s := Similarity(target, c); s > 0 {
			ranked = append(ranked, scored{c, s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.name
	}
	return out
}
