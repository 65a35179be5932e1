package search

import (
	"strings"
	"unicode"
)

const minKeywordLen = 5

// Suggestion is a follow-up query derived from a search without an LLM.
type Suggestion struct {
	Query string `json:"query"`
}

// SuggestRelated builds up to eight query variations. The comparison
// suggestion pairs the query with the first title or snippet word longer than
// four letters that the query does not already contain.
func SuggestRelated(query string, results []Result) []Suggestion {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Suggestion{}
	}

	candidates := []string{
		query + " latest developments",
		query + " tutorial",
		query + " examples",
		"how to " + query,
		"best " + query + " practices",
	}
	if kw := firstKeyword(query, results); kw != "" {
		candidates = append(candidates, query+" vs "+kw)
	}
	candidates = append(candidates, query+" for beginners", "advanced "+query)

	out := make([]Suggestion, len(candidates))
	for i, c := range candidates {
		out[i] = Suggestion{Query: c}
	}
	return out
}

func firstKeyword(query string, results []Result) string {
	lower := strings.ToLower(query)
	for _, r := range results {
		for _, word := range strings.Fields(strings.ToLower(r.Title + " " + r.Snippet)) {
			word = strings.TrimFunc(word, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
			if len([]rune(word)) < minKeywordLen || strings.Contains(lower, word) {
				continue
			}
			return word
		}
	}
	return ""
}
