package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"deep-search/internal/search"
)

// Name identifies an LLM backend.
type Name string

const (
	OpenAI       Name = "openai"
	DeepSeek     Name = "deepseek"
	AlibabaCloud Name = "alibabacloud"
)

type descriptor struct {
	label  string
	envVar string
}

var catalog = map[Name]descriptor{
	OpenAI:       {label: "OpenAI", envVar: "OPENAI_API_KEY"},
	DeepSeek:     {label: "DeepSeek", envVar: "DEEPSEEK_API_KEY"},
	AlibabaCloud: {label: "AlibabaCloud", envVar: "ALIBABACLOUD_API_KEY"},
}

// ErrUnknownProvider is returned for names outside the catalog.
var ErrUnknownProvider = errors.New("unknown provider")

// ParseName validates s. The empty string is returned as-is so callers can fall back to a default.
func ParseName(s string) (Name, error) {
	name := Name(strings.ToLower(strings.TrimSpace(s)))
	if name == "" {
		return "", nil
	}
	if _, ok := catalog[name]; !ok {
		return "", fmt.Errorf("%w: %q (valid options: openai, deepseek, alibabacloud)", ErrUnknownProvider, s)
	}
	return name, nil
}

// Label returns the human name of a provider, e.g. "DeepSeek".
func (n Name) Label() string {
	if d, ok := catalog[n]; ok {
		return d.label
	}
	return string(n)
}

// EnvVar returns the environment variable holding the provider's credential.
func (n Name) EnvVar() string {
	return catalog[n].envVar
}

// RefinedQuery is the search-ready rewrite of a user query.
type RefinedQuery struct {
	Text        string `json:"refinedQuery"`
	Explanation string `json:"explanation,omitempty"`
}

// RelatedSearch is one follow-up suggestion.
type RelatedSearch struct {
	Query string `json:"query"`
}

// Summary is the cited answer for a set of search results.
type Summary struct {
	Answer          string          `json:"answer"`
	Reasoning       string          `json:"reasoning,omitempty"`
	RelatedSearches []RelatedSearch `json:"relatedSearches"`
	// RelatedDegraded is set when the related-searches step failed and was replaced by an empty list.
	RelatedDegraded bool `json:"-"`
}

// Adapter is the uniform contract over LLM backends.
type Adapter interface {
	Name() Name
	Refine(ctx context.Context, query string) (RefinedQuery, error)
	// Summarize cites results by 1-based position; results must not be reordered by callers afterwards.
	Summarize(ctx context.Context, query string, results []search.Result) (Summary, error)
}

// Kind classifies adapter failures.
type Kind string

const (
	KindRefineFailed      Kind = "refine_failed"
	KindSummarizeFailed   Kind = "summarize_failed"
	KindMalformedUpstream Kind = "malformed_upstream"
)

// Error is returned by every Adapter method.
type Error struct {
	Provider   Name
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == http.StatusUnauthorized {
		return fmt.Sprintf("Invalid %s API key. Please check your %s", e.Provider.Label(), e.Provider.EnvVar())
	}
	switch e.Kind {
	case KindRefineFailed:
		return fmt.Sprintf("Failed to refine query with %s: %v", e.Provider.Label(), e.Err)
	case KindMalformedUpstream:
		return fmt.Sprintf("Malformed %s response: %v", e.Provider.Label(), e.Err)
	default:
		return fmt.Sprintf("Failed to generate summary with %s: %v", e.Provider.Label(), e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a provider Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pErr *Error
	return errors.As(err, &pErr) && pErr.Kind == kind
}

// StripQuotes removes surrounding whitespace and quote characters from model output.
// Applying it twice gives the same result as applying it once.
func StripQuotes(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || isQuote(r)
	})
}

func isQuote(r rune) bool {
	switch r {
	case '"', '\'', '`', '“', '”', '‘', '’':
		return true
	}
	return false
}
