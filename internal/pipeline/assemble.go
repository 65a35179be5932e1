package pipeline

import (
	"deep-search/internal/enrich"
	"deep-search/internal/provider"
	"deep-search/internal/search"
)

// AssembleInput carries everything a successful run produced.
type AssembleInput struct {
	Request Request
	Refined provider.RefinedQuery
	Search  search.Response
	Summary provider.Summary
	Pages   []enrich.PageImages
}

// Assemble merges stage outputs into a Result. Sources keep the exact order
// and length that was summarized; images join on URL.
func Assemble(in AssembleInput) Result {
	images := enrich.ByURL(in.Pages)

	sources := make([]search.Result, len(in.Search.Results))
	for i, res := range in.Search.Results {
		src := res
		if imgs, ok := images[res.URL]; ok && len(imgs) > 0 {
			src.Images = imgs
		} else if src.Images == nil {
			src.Images = []search.Image{}
		}
		sources[i] = src
	}

	related := in.Summary.RelatedSearches
	if related == nil {
		related = []provider.RelatedSearch{}
	}
	topImages := in.Search.Images
	if topImages == nil {
		topImages = []search.Image{}
	}

	res := Result{
		Query:           in.Request.Query,
		RefinedQuery:    in.Refined.Text,
		Answer:          SanitizeCitations(in.Summary.Answer, in.Search.URLs()),
		Reasoning:       in.Summary.Reasoning,
		Sources:         sources,
		RelatedSearches: related,
		Images:          topImages,
		Degraded:        []string{},
	}
	if in.Refined.Explanation != "" {
		explanation := in.Refined.Explanation
		res.Explanation = &explanation
	}
	return res
}
