package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"deep-search/internal/logger"
	"deep-search/internal/prompt"
)

const defaultChatTimeout = 90 * time.Second

var errEmptyReply = errors.New("empty response text")

// Options configures any of the adapters.
type Options struct {
	APIKey          string
	BaseURL         string
	RefineModel     string
	SummarizeModel  string
	Timeout         time.Duration
	MaxRetries      int
	RelatedSearches bool
	SnippetMaxWords int
	Log             *slog.Logger
	Now             func() time.Time
}

// base carries the behaviour shared by every backend: timeouts, error wrapping,
// quote stripping and the related-searches follow-up call.
type base struct {
	name     Name
	client   completer
	timeout  time.Duration
	related  bool
	maxWords int
	log      *slog.Logger
	now      func() time.Time
}

func newBase(name Name, client completer, opts Options) *base {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &base{
		name:     name,
		client:   client,
		timeout:  timeout,
		related:  opts.RelatedSearches,
		maxWords: opts.SnippetMaxWords,
		log:      logger.OrDiscard(opts.Log).With("provider", string(name)),
		now:      now,
	}
}

func (b *base) Name() Name { return b.name }

func (b *base) call(ctx context.Context, kind Kind, req chatRequest) (chatReply, error) {
	reqCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	reply, err := b.client.complete(reqCtx, req)
	if err != nil {
		return chatReply{}, &Error{Provider: b.name, Kind: kind, StatusCode: statusCodeOf(err), Err: err}
	}
	return reply, nil
}

func (b *base) refine(ctx context.Context, req chatRequest, explanation string) (RefinedQuery, error) {
	reply, err := b.call(ctx, KindRefineFailed, req)
	if err != nil {
		return RefinedQuery{}, err
	}
	text := StripQuotes(reply.Content)
	if text == "" {
		return RefinedQuery{}, &Error{Provider: b.name, Kind: KindRefineFailed, Err: errEmptyReply}
	}
	return RefinedQuery{Text: text, Explanation: explanation}, nil
}

// summarize runs the main call and, when enabled, the related-searches follow-up.
// relatedModel is the model used for the follow-up.
func (b *base) summarize(ctx context.Context, req chatRequest, relatedModel string) (Summary, error) {
	reply, err := b.call(ctx, KindSummarizeFailed, req)
	if err != nil {
		return Summary{}, err
	}
	answer, reasoning := SplitReasoning(reply.Content)
	if reply.Reasoning != "" {
		reasoning = reply.Reasoning
	}
	if answer == "" {
		return Summary{}, &Error{Provider: b.name, Kind: KindSummarizeFailed, Err: errEmptyReply}
	}

	summary := Summary{Answer: answer, Reasoning: reasoning, RelatedSearches: []RelatedSearch{}}
	if !b.related {
		return summary, nil
	}
	related, err := b.relatedSearches(ctx, answer, relatedModel)
	if err != nil {
		b.log.Warn("related searches unavailable", "err", err)
		summary.RelatedDegraded = true
		return summary, nil
	}
	summary.RelatedSearches = related
	return summary, nil
}

func (b *base) relatedSearches(ctx context.Context, answer, model string) ([]RelatedSearch, error) {
	reply, err := b.call(ctx, KindMalformedUpstream, chatRequest{
		Model:       model,
		Messages:    []chatMessage{user(prompt.RelatedSearches(answer))},
		Temperature: temperature(1.0),
	})
	if err != nil {
		return nil, err
	}
	related, err := ParseRelatedSearches(reply.Content)
	if err != nil {
		return nil, &Error{Provider: b.name, Kind: KindMalformedUpstream, Err: err}
	}
	return related, nil
}
