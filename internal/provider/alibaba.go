package provider

import (
	"context"
	"fmt"

	"deep-search/internal/prompt"
	"deep-search/internal/search"
)

const (
	defaultAlibabaURL   = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1/"
	defaultAlibabaModel = "qwen-plus"
	alibabaExplanation  = "Query refined for better search results"
)

// AlibabaAdapter calls Qwen through DashScope's OpenAI-compatible mode using the OpenAI SDK.
type AlibabaAdapter struct {
	*base
	model string
}

func NewAlibaba(opts Options) (*AlibabaAdapter, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultAlibabaURL
	}
	model := opts.SummarizeModel
	if model == "" {
		model = defaultAlibabaModel
	}
	// DashScope expects max_tokens rather than max_completion_tokens.
	client := newSDKCompleter(opts.APIKey, opts.BaseURL, opts.MaxRetries, false)
	return &AlibabaAdapter{
		base:  newBase(AlibabaCloud, client, opts),
		model: model,
	}, nil
}

func (a *AlibabaAdapter) Refine(ctx context.Context, query string) (RefinedQuery, error) {
	return a.refine(ctx, chatRequest{
		Model:       a.model,
		Messages:    []chatMessage{system(prompt.RefineStandalone(query, a.now()))},
		Temperature: temperature(0.9),
		MaxTokens:   200,
	}, alibabaExplanation)
}

func (a *AlibabaAdapter) Summarize(ctx context.Context, query string, results []search.Result) (Summary, error) {
	sources, err := prompt.JSON(results, a.maxWords)
	if err != nil {
		return Summary{}, &Error{Provider: a.name, Kind: KindSummarizeFailed, Err: err}
	}
	return a.summarize(ctx, chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			system(prompt.Summarize(query, a.now())),
			user(sources),
		},
		Temperature: temperature(1.0),
	}, a.model)
}
