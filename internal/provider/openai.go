package provider

import (
	"context"
	"fmt"

	"deep-search/internal/prompt"
	"deep-search/internal/search"
)

const (
	defaultOpenAIRefineModel    = "gpt-4o"
	defaultOpenAISummarizeModel = "gpt-4o"
)

// OpenAIAdapter calls the OpenAI Chat Completions API through the official SDK.
type OpenAIAdapter struct {
	*base
	refineModel    string
	summarizeModel string
}

// NewOpenAI builds an adapter with defaults against api.openai.com (or opts.BaseURL).
func NewOpenAI(opts Options) (*OpenAIAdapter, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if opts.RefineModel == "" {
		opts.RefineModel = defaultOpenAIRefineModel
	}
	if opts.SummarizeModel == "" {
		opts.SummarizeModel = defaultOpenAISummarizeModel
	}
	client := newSDKCompleter(opts.APIKey, opts.BaseURL, opts.MaxRetries, true)
	return &OpenAIAdapter{
		base:           newBase(OpenAI, client, opts),
		refineModel:    opts.RefineModel,
		summarizeModel: opts.SummarizeModel,
	}, nil
}

func (a *OpenAIAdapter) Refine(ctx context.Context, query string) (RefinedQuery, error) {
	now := a.now()
	return a.refine(ctx, chatRequest{
		Model: a.refineModel,
		Messages: []chatMessage{
			system(prompt.RefineGuidelines(now)),
			user(prompt.RefineRequest(query, now)),
		},
		Temperature: temperature(0.3),
		MaxTokens:   200,
	}, "")
}

func (a *OpenAIAdapter) Summarize(ctx context.Context, query string, results []search.Result) (Summary, error) {
	return a.summarize(ctx, chatRequest{
		Model: a.summarizeModel,
		Messages: []chatMessage{
			system(prompt.Summarize(query, a.now())),
			user("Here are the search results to analyze:\n\n" + prompt.Numbered(results, a.maxWords)),
		},
		MaxTokens: 10000,
	}, a.refineModel)
}
