package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"deep-search/internal/search"
)

const defaultMaxWords = 300

// Clip keeps the first maxWords whitespace-delimited words of text.
// Words approximate tokens to avoid a tokenizer dependency.
func Clip(text string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + " ..."
}

// Numbered renders results as "[N] title\nURL: url\nsnippet" blocks, N starting at 1.
func Numbered(results []search.Result, maxWords int) string {
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n%s\n", i+1, res.Title, res.URL, Clip(res.Snippet, maxWords))
	}
	return b.String()
}

type jsonSource struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// JSON renders results as a JSON array with an explicit 1-based index per entry.
func JSON(results []search.Result, maxWords int) (string, error) {
	sources := make([]jsonSource, len(results))
	for i, res := range results {
		sources[i] = jsonSource{
			Index:   i + 1,
			Title:   res.Title,
			URL:     res.URL,
			Content: Clip(res.Snippet, maxWords),
		}
	}
	body, err := json.Marshal(sources)
	if err != nil {
		return "", fmt.Errorf("marshal sources: %w", err)
	}
	return string(body), nil
}
