package ui

import (
	"sort"
	"strings"
)

// maxSuggestionDistance is the largest edit distance still offered as a
// "did you mean" suggestion.
const maxSuggestionDistance = 3

// Suggest returns up to limit candidates close to target, closest first.
// Matching ignores case; ties keep the order of candidates.
//
// Example:
//
//	Suggest("Pst", []string{"Post", "User", "Product"}, 2)
//	// Returns: ["Post", "User"]
func Suggest(target string, candidates []string, limit int) []string {
	type match struct {
		value    string
		distance int
	}
	lower := strings.ToLower(target)

	var matches []match
	for _, candidate := range candidates {
		if d := Distance(lower, strings.ToLower(candidate)); d <= maxSuggestionDistance {
			matches = append(matches, match{value: candidate, distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	result := make([]string, 0, limit)
	for i := 0; i < len(matches) && i < limit; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// BestMatch returns the closest candidate, or "" when none is close enough.
func BestMatch(target string, candidates []string) string {
	if matches := Suggest(target, candidates, 1); len(matches) > 0 {
		return matches[0]
	}
	return ""
}

// Distance returns the Levenshtein distance between two strings, counted in
// runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
