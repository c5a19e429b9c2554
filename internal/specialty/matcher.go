// Package specialty resolves free-form specialty labels to reference
// entries and turns symptom descriptions into specialty suggestions.
package specialty

import (
	"strings"
	"unicode/utf8"
)

// MaxDistance is the largest edit distance still considered a match.
const MaxDistance = 3

// Candidate is a reference entry, typically a doctor, known by a set of
// specialty aliases.
type Candidate struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// Normalize trims whitespace and surrounding quotes and lower-cases s.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSuffix(s, "'")
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether alias and query refer to the same specialty:
// within MaxDistance edits, or one contains the other. Both inputs must
// already be normalized.
func Matches(alias, query string) bool {
	if alias == "" || query == "" {
		return alias == query
	}
	if strings.Contains(alias, query) || strings.Contains(query, alias) {
		return true
	}
	return Distance(alias, query) <= MaxDistance
}

// Match returns every candidate with at least one alias matching query,
// in candidate order.
func Match(query string, candidates []Candidate) []Candidate {
	target := Normalize(query)
	if target == "" {
		return nil
	}

	var matched []Candidate
	for _, c := range candidates {
		for _, alias := range c.Aliases {
			if Matches(Normalize(alias), target) {
				matched = append(matched, c)
				break
			}
		}
	}
	return matched
}

// Distance is the Levenshtein edit distance between a and b, counting
// runes, with unit cost for insertion, deletion and substitution.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return utf8.RuneCountInString(b)
	}
	if b == "" {
		return utf8.RuneCountInString(a)
	}

	ra, rb := []rune(a), []rune(b)

	// Two rolling rows of the full (len(a)+1) x (len(b)+1) matrix.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			curr[j] = 1 + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
