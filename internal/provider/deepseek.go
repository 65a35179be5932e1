package provider

import (
	"context"
	"fmt"

	"deep-search/internal/prompt"
	"deep-search/internal/search"
)

const (
	defaultDeepSeekURL            = "https://api.deepseek.com/v1"
	defaultDeepSeekRefineModel    = "deepseek-chat"
	defaultDeepSeekSummarizeModel = "deepseek-reasoner"
)

// DeepSeekAdapter calls DeepSeek's OpenAI-compatible API through the SDK. The reasoner
// model returns its chain of thought in reasoning_content, which is surfaced as Summary.Reasoning.
type DeepSeekAdapter struct {
	*base
	refineModel    string
	summarizeModel string
}

func NewDeepSeek(opts Options) (*DeepSeekAdapter, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultDeepSeekURL
	}
	if opts.RefineModel == "" {
		opts.RefineModel = defaultDeepSeekRefineModel
	}
	if opts.SummarizeModel == "" {
		opts.SummarizeModel = defaultDeepSeekSummarizeModel
	}
	client := newSDKCompleter(opts.APIKey, opts.BaseURL, opts.MaxRetries, false)
	return &DeepSeekAdapter{
		base:           newBase(DeepSeek, client, opts),
		refineModel:    opts.RefineModel,
		summarizeModel: opts.SummarizeModel,
	}, nil
}

func (a *DeepSeekAdapter) Refine(ctx context.Context, query string) (RefinedQuery, error) {
	now := a.now()
	return a.refine(ctx, chatRequest{
		Model: a.refineModel,
		Messages: []chatMessage{
			system(prompt.RefineGuidelines(now)),
			user(prompt.RefineRequest(query, now)),
		},
		Temperature: temperature(0.3),
		MaxTokens:   100,
	}, "")
}

func (a *DeepSeekAdapter) Summarize(ctx context.Context, query string, results []search.Result) (Summary, error) {
	return a.summarize(ctx, chatRequest{
		Model: a.summarizeModel,
		Messages: []chatMessage{
			system(prompt.Summarize(query, a.now())),
			user("Please analyze these search results and provide a comprehensive answer:\n\n" + prompt.Numbered(results, a.maxWords)),
		},
		Temperature: temperature(1.0),
		MaxTokens:   8000,
	}, a.refineModel)
}
