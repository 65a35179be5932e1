// Package pipeline runs a search query through refinement, web search,
// summarization and image enrichment, and assembles the cited result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"deep-search/internal/enrich"
	"deep-search/internal/events"
	"deep-search/internal/inflight"
	"deep-search/internal/logger"
	"deep-search/internal/provider"
	"deep-search/internal/search"
)

const (
	defaultRefineTimeout    = 20 * time.Second
	defaultSearchTimeout    = 30 * time.Second
	defaultSummarizeTimeout = 90 * time.Second
	defaultEnrichTimeout    = 10 * time.Second
	defaultEventAttempts    = 3
	releaseTimeout          = 5 * time.Second
)

// Degraded stage names reported in Result.Degraded.
const (
	DegradedRefine          = "refine"
	DegradedRelatedSearches = "related_searches"
	DegradedEnrich          = "enrich"
)

var (
	ErrEmptyQuery     = errors.New("query is required")
	ErrDuplicateQuery = errors.New("an identical query is already running for this session")
	ErrSuperseded     = errors.New("query was superseded by a newer request")
	errEmptyAnswer    = errors.New("empty answer")
	errNoCitedAnswer  = errors.New("answer is empty once out-of-range citations are removed")
)

// Resolver returns the adapter for a provider name. *provider.Registry implements it.
type Resolver interface {
	Adapter(name provider.Name) (provider.Adapter, error)
}

// Request is one query submission.
type Request struct {
	Query      string
	Provider   provider.Name
	Session    string
	SkipImages bool
}

// Result is the externally visible outcome of a run. When Error is set, Answer is
// empty and every list is empty.
type Result struct {
	ID              string                   `json:"id"`
	Query           string                   `json:"query"`
	RefinedQuery    string                   `json:"refinedQuery"`
	Explanation     *string                  `json:"explanation"`
	Provider        string                   `json:"provider"`
	Answer          string                   `json:"answer"`
	Reasoning       string                   `json:"reasoning,omitempty"`
	Sources         []search.Result          `json:"sources"`
	RelatedSearches []provider.RelatedSearch `json:"relatedSearches"`
	Images          []search.Image           `json:"images"`
	Degraded        []string                 `json:"degraded"`
	Error           *string                  `json:"error"`
}

// Options wires an Orchestrator. Providers and Search are required.
type Options struct {
	Providers Resolver
	Search    search.Client
	Images    enrich.Fetcher // nil disables enrichment
	Guard     inflight.Guard // nil uses an in-memory guard
	Events    events.Publisher
	Metrics   Recorder
	Observer  Observer
	Log       *slog.Logger

	RefineTimeout    time.Duration
	SearchTimeout    time.Duration
	SummarizeTimeout time.Duration
	EnrichTimeout    time.Duration
	EventAttempts    int
}

// Orchestrator executes pipeline runs. It is safe for concurrent use.
type Orchestrator struct {
	providers Resolver
	search    search.Client
	images    enrich.Fetcher
	guard     inflight.Guard
	events    events.Publisher
	metrics   Recorder
	observer  Observer
	log       *slog.Logger

	refineTimeout    time.Duration
	searchTimeout    time.Duration
	summarizeTimeout time.Duration
	enrichTimeout    time.Duration
	eventAttempts    int

	pending sync.WaitGroup
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Providers == nil {
		return nil, errors.New("provider resolver required")
	}
	if opts.Search == nil {
		return nil, errors.New("search client required")
	}
	o := &Orchestrator{
		providers:        opts.Providers,
		search:           opts.Search,
		images:           opts.Images,
		guard:            opts.Guard,
		events:           opts.Events,
		metrics:          opts.Metrics,
		observer:         opts.Observer,
		log:              logger.OrDiscard(opts.Log),
		refineTimeout:    orDefault(opts.RefineTimeout, defaultRefineTimeout),
		searchTimeout:    orDefault(opts.SearchTimeout, defaultSearchTimeout),
		summarizeTimeout: orDefault(opts.SummarizeTimeout, defaultSummarizeTimeout),
		enrichTimeout:    orDefault(opts.EnrichTimeout, defaultEnrichTimeout),
		eventAttempts:    opts.EventAttempts,
	}
	if o.guard == nil {
		o.guard = inflight.NewMemoryGuard()
	}
	if o.events == nil {
		o.events = events.NewNoopPublisher()
	}
	if o.metrics == nil {
		o.metrics = nopRecorder{}
	}
	if o.eventAttempts <= 0 {
		o.eventAttempts = defaultEventAttempts
	}
	return o, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Close waits for pending event publications.
func (o *Orchestrator) Close() {
	o.pending.Wait()
}

// Run executes one query. Fatal failures return both a Result with Error set and
// the underlying error so transports can classify it.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	run := &runState{
		id:     uuid.New(),
		start:  time.Now(),
		req:    req,
		result: emptyResult(req),
		log:    o.log,
	}
	run.result.ID = run.id.String()

	if strings.TrimSpace(req.Query) == "" {
		return reject(run.result, ErrEmptyQuery)
	}
	adapter, err := o.providers.Adapter(req.Provider)
	if err != nil {
		return reject(run.result, err)
	}
	run.result.Provider = string(adapter.Name())
	run.log = o.log.With("run_id", run.id, "provider", run.result.Provider)

	tok, err := o.guard.Acquire(ctx, req.Session, req.Query)
	if errors.Is(err, inflight.ErrDuplicate) {
		return reject(run.result, ErrDuplicateQuery)
	}
	if err != nil {
		return reject(run.result, fmt.Errorf("in-flight guard: %w", err))
	}
	defer o.release(ctx, run, tok)

	run.tracker = newTracker(run.id, o.observer, o.metrics)

	refined := o.refine(ctx, run, adapter)
	run.result.RefinedQuery = refined.Text

	run.tracker.enter(StateSearching)
	searchCtx, cancel := context.WithTimeout(ctx, o.searchTimeout)
	resp, err := o.search.Search(searchCtx, refined.Text)
	cancel()
	if err != nil {
		return o.fail(run, err)
	}

	summary, pages, err := o.summarizeAndEnrich(ctx, run, adapter, refined.Text, resp)
	if err != nil {
		return o.fail(run, err)
	}

	run.tracker.enter(StateAssembling)
	assembled := Assemble(AssembleInput{
		Request: req,
		Refined: refined,
		Search:  resp,
		Summary: summary,
		Pages:   pages,
	})
	assembled.ID = run.result.ID
	assembled.Provider = run.result.Provider
	assembled.Degraded = run.result.Degraded
	if strings.TrimSpace(assembled.Answer) == "" {
		return o.fail(run, &provider.Error{Provider: adapter.Name(), Kind: provider.KindSummarizeFailed, Err: errNoCitedAnswer})
	}

	current, err := o.guard.IsCurrent(context.WithoutCancel(ctx), tok)
	if err != nil {
		run.log.Warn("in-flight guard check failed; committing result", "err", err)
		current = true
	}
	if !current {
		run.log.Info("discarding superseded result", "query", req.Query)
		return o.finish(run, run.result, ErrSuperseded, events.OutcomeSuperseded)
	}

	run.tracker.enter(StateDone)
	return o.finish(run, assembled, nil, events.OutcomeDone)
}

// runState is the per-run bookkeeping; nothing in it is shared between runs.
type runState struct {
	id      uuid.UUID
	start   time.Time
	req     Request
	result  Result
	tracker *tracker
	log     *slog.Logger
}

func (r *runState) degrade(rec Recorder, stage string) {
	r.result.Degraded = append(r.result.Degraded, stage)
	rec.IncDegraded(stage)
}

func (o *Orchestrator) refine(ctx context.Context, run *runState, adapter provider.Adapter) provider.RefinedQuery {
	run.tracker.enter(StateRefining)
	refineCtx, cancel := context.WithTimeout(ctx, o.refineTimeout)
	defer cancel()

	refined, err := adapter.Refine(refineCtx, run.req.Query)
	if err == nil && refined.Text != "" {
		return refined
	}
	if err == nil {
		err = errors.New("empty refined query")
	}
	run.log.Warn("query refinement failed; using original query", "err", err)
	run.degrade(o.metrics, DegradedRefine)
	return provider.RefinedQuery{Text: run.req.Query}
}

func (o *Orchestrator) summarizeAndEnrich(ctx context.Context, run *runState, adapter provider.Adapter, query string, resp search.Response) (provider.Summary, []enrich.PageImages, error) {
	run.tracker.enter(StateSummarizing)

	var (
		summary      provider.Summary
		pages        []enrich.PageImages
		enrichFailed bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sumCtx, cancel := context.WithTimeout(gctx, o.summarizeTimeout)
		defer cancel()
		s, err := adapter.Summarize(sumCtx, query, resp.Results)
		if err != nil {
			return err
		}
		if strings.TrimSpace(s.Answer) == "" {
			return &provider.Error{Provider: adapter.Name(), Kind: provider.KindSummarizeFailed, Err: errEmptyAnswer}
		}
		summary = s
		return nil
	})

	if o.images != nil && !run.req.SkipImages && len(resp.Results) > 0 {
		g.Go(func() error {
			done := run.tracker.branch(StateSearching, StateEnriching)
			defer done()
			enrichCtx, cancel := context.WithTimeout(gctx, o.enrichTimeout)
			defer cancel()
			pages = o.images.FetchImages(enrichCtx, resp.URLs())
			for _, p := range pages {
				if p.Err != nil && !errors.Is(p.Err, enrich.ErrSkipped) {
					enrichFailed = true
					run.log.Debug("image enrichment failed", "url", p.URL, "err", p.Err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return provider.Summary{}, nil, err
	}
	if enrichFailed {
		run.degrade(o.metrics, DegradedEnrich)
	}
	if summary.RelatedDegraded {
		run.degrade(o.metrics, DegradedRelatedSearches)
	}
	return summary, pages, nil
}

// fail clears partial output and records the run as errored.
func (o *Orchestrator) fail(run *runState, err error) (Result, error) {
	run.log.Error("pipeline run failed", "stage", run.tracker.current(), "err", err)
	run.tracker.enter(StateErrored)
	return o.finish(run, run.result, err, events.OutcomeErrored)
}

func (o *Orchestrator) finish(run *runState, res Result, err error, outcome events.Outcome) (Result, error) {
	if err != nil {
		res = clearOutput(res, err)
		if outcome == events.OutcomeSuperseded {
			run.tracker.enter(StateErrored)
		}
	}
	duration := time.Since(run.start)
	o.metrics.IncRun(res.Provider, string(outcome))

	ev := events.Event{
		RunID:    run.id,
		Query:    run.req.Query,
		Provider: res.Provider,
		Outcome:  outcome,
		Sources:  len(res.Sources),
		Degraded: res.Degraded,
		Duration: duration,
		At:       time.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		events.PublishWithRetry(ctx, o.log, o.events, ev, o.eventAttempts, 100*time.Millisecond)
	}()

	if err == nil {
		run.log.Info("pipeline run complete", "sources", len(res.Sources), "degraded", res.Degraded, "duration", duration)
	}
	return res, err
}

func (o *Orchestrator) release(ctx context.Context, run *runState, tok inflight.Token) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := o.guard.Release(releaseCtx, tok); err != nil {
		run.log.Warn("failed to release in-flight marker", "err", err)
	}
}

func emptyResult(req Request) Result {
	return Result{
		Query:           req.Query,
		RefinedQuery:    req.Query,
		Provider:        string(req.Provider),
		Sources:         []search.Result{},
		RelatedSearches: []provider.RelatedSearch{},
		Images:          []search.Image{},
		Degraded:        []string{},
	}
}

// reject reports a request that never started a run.
func reject(res Result, err error) (Result, error) {
	return clearOutput(res, err), err
}

func clearOutput(res Result, err error) Result {
	msg := err.Error()
	res.Error = &msg
	res.Answer = ""
	res.Reasoning = ""
	res.Sources = []search.Result{}
	res.RelatedSearches = []provider.RelatedSearch{}
	res.Images = []search.Image{}
	return res
}
