// Package enrich pulls representative images out of the pages behind search results.
package enrich

import (
	"context"

	"deep-search/internal/search"
)

// Fetcher extracts up to a few images per page. It never fails as a whole:
// each URL reports its own error and the output keeps the input order.
type Fetcher interface {
	FetchImages(ctx context.Context, urls []string) []PageImages
}

// PageImages is the enrichment outcome for one URL.
type PageImages struct {
	URL    string         `json:"url"`
	Images []search.Image `json:"images"`
	Err    error          `json:"-"`
}

// ByURL indexes pages by URL. Later duplicates do not overwrite earlier entries.
func ByURL(pages []PageImages) map[string][]search.Image {
	out := make(map[string][]search.Image, len(pages))
	for _, p := range pages {
		if _, ok := out[p.URL]; !ok {
			out[p.URL] = p.Images
		}
	}
	return out
}
