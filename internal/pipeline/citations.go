package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// citationPattern matches [k] and [k](url) markers, with one optional leading space.
var citationPattern = regexp.MustCompile(`( ?)\[(\d+)\](\(([^)\s]*)\))?`)

// citations classifies numeric markers against the summarized sources.
// A bare [k] is always a citation. A [k](url) is one when k is in range or url
// is a source URL; any other numeric link, e.g. [2025](https://...), is ordinary text.
type citations struct {
	n    int
	urls map[string]bool
}

func newCitations(sourceURLs []string) citations {
	c := citations{n: len(sourceURLs), urls: make(map[string]bool, len(sourceURLs))}
	for _, u := range sourceURLs {
		c.urls[normalizeURL(u)] = true
	}
	return c
}

// classify reports the marker index, whether it is a citation, and whether it is in range.
func (c citations) classify(m []string) (k int, citation, inRange bool) {
	k, err := strconv.Atoi(m[2])
	inRange = err == nil && k >= 1 && k <= c.n
	if m[3] == "" {
		return k, true, inRange
	}
	return k, inRange || c.urls[normalizeURL(m[4])], inRange
}

func normalizeURL(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/")
}

// CitationIndices returns every citation index in answer in order of appearance.
func CitationIndices(answer string, sourceURLs []string) []int {
	c := newCitations(sourceURLs)
	matches := citationPattern.FindAllStringSubmatch(answer, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		k, citation, _ := c.classify(m)
		if !citation {
			continue
		}
		out = append(out, k)
	}
	return out
}

// SanitizeCitations removes citations that do not point into sourceURLs.
// In-range markers and non-citation links are left untouched.
func SanitizeCitations(answer string, sourceURLs []string) string {
	c := newCitations(sourceURLs)
	return citationPattern.ReplaceAllStringFunc(answer, func(match string) string {
		_, citation, inRange := c.classify(citationPattern.FindStringSubmatch(match))
		if !citation || inRange {
			return match
		}
		return ""
	})
}
