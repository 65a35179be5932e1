package search

import (
	"context"
	"fmt"
)

// Image is a picture associated with a search response or a single source.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Result is one web search hit. Position in the result slice is its citation number minus one.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Images  []Image `json:"images"`
}

// Response is the normalized output of a search call.
type Response struct {
	Results []Result `json:"results"`
	Images  []Image  `json:"images"`
}

// URLs returns result URLs in result order.
func (r Response) URLs() []string {
	urls := make([]string, len(r.Results))
	for i, res := range r.Results {
		urls[i] = res.URL
	}
	return urls
}

// Client runs web searches.
type Client interface {
	Search(ctx context.Context, query string) (Response, error)
}

// ErrorKind classifies search failures.
type ErrorKind string

const (
	KindUnauthorized    ErrorKind = "unauthorized"
	KindUpstream        ErrorKind = "upstream"
	KindInvalidResponse ErrorKind = "invalid_response"
)

// Error is returned by Client implementations for every upstream failure.
type Error struct {
	Kind       ErrorKind
	Provider   string // human label, e.g. "Tavily"
	EnvVar     string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnauthorized:
		return fmt.Sprintf("Invalid %s API key. Please check your %s.", e.Provider, e.EnvVar)
	case KindInvalidResponse:
		if e.Err != nil {
			return fmt.Sprintf("Invalid response format from %s: %v", e.Provider, e.Err)
		}
		return fmt.Sprintf("Invalid response format from %s", e.Provider)
	default:
		if e.StatusCode != 0 {
			return fmt.Sprintf("Failed to get search results from %s: status %d", e.Provider, e.StatusCode)
		}
		return fmt.Sprintf("Failed to get search results from %s: %v", e.Provider, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }
