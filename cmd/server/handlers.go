package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"deep-search/internal/app"
	"deep-search/internal/config"
	"deep-search/internal/enrich"
	"deep-search/internal/httputil"
	"deep-search/internal/metrics"
	"deep-search/internal/pipeline"
	"deep-search/internal/provider"
	"deep-search/internal/search"
)

const (
	sessionHeader = "X-Session-ID"
	maxBodyBytes  = 1 << 20
)

func init() {
	err := httputil.RegisterValidation("provider", "must be one of: openai, deepseek, alibabacloud", func(fl validator.FieldLevel) bool {
		_, err := provider.ParseName(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(err)
	}
}

type runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type server struct {
	log       *slog.Logger
	pipeline  runner
	providers pipeline.Resolver
	search    search.Client
	images    enrich.Fetcher
	metrics   *metrics.Metrics
	timeout   time.Duration
}

func newServer(deps app.Deps) *server {
	return &server{
		log:       deps.Log,
		pipeline:  deps.Pipeline,
		providers: deps.Providers,
		search:    deps.Search,
		images:    deps.Images,
		metrics:   deps.Metrics,
		timeout:   deps.Config.RequestTimeout,
	}
}

func (s *server) routes() *chi.Mux {
	r := httputil.NewRouter(s.log, s.timeout, s.metrics.Middleware)

	r.Post("/api/search", s.searchHandler)
	r.Post("/api/refine", s.refineHandler)
	r.Post("/api/summarize", s.summarizeHandler)
	r.Post("/api/web-search", s.webSearchHandler)
	r.Post("/api/scrape/images", s.scrapeImagesHandler)
	r.Get("/healthz", httputil.HealthHandler(s.log))
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

type searchRequest struct {
	Query      string `json:"query" validate:"required,max=500"`
	Provider   string `json:"provider" validate:"omitempty,provider"`
	SessionID  string `json:"session_id" validate:"max=128"`
	SkipImages bool   `json:"skip_images"`
}

type refineRequest struct {
	Query    string `json:"query" validate:"required,max=500"`
	Provider string `json:"provider" validate:"omitempty,provider"`
}

type refineResponse struct {
	RefinedQuery string `json:"refinedQuery"`
	Explanation  string `json:"explanation"`
	Degraded     bool   `json:"degraded,omitempty"`
}

type summarizeRequest struct {
	Query    string          `json:"query" validate:"required,max=500"`
	Provider string          `json:"provider" validate:"omitempty,provider"`
	Results  []search.Result `json:"results" validate:"required,min=1"`
}

type webSearchRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

type webSearchResponse struct {
	search.Response
	RelatedSearches []search.Suggestion `json:"relatedSearches"`
}

type scrapeRequest struct {
	URLs []string `json:"urls" validate:"required,min=1,dive,url"`
}

type scrapeResponse struct {
	Results []enrich.PageImages `json:"results"`
}

func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	name, err := provider.ParseName(req.Provider)
	if err != nil {
		httputil.Fail(s.log, w, err.Error(), err, http.StatusBadRequest)
		return
	}

	res, err := s.pipeline.Run(r.Context(), pipeline.Request{
		Query:      req.Query,
		Provider:   name,
		Session:    sessionID(r, req.SessionID),
		SkipImages: req.SkipImages,
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("search failed", "err", err, "status", status, "run_id", res.ID)
		} else {
			s.log.Warn("search rejected", "err", err, "status", status, "run_id", res.ID)
		}
		httputil.WriteJSON(w, status, res)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (s *server) refineHandler(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if !s.decode(w, r, &req) {
		return
	}
	adapter, ok := s.adapter(w, req.Provider)
	if !ok {
		return
	}

	refined, err := adapter.Refine(r.Context(), req.Query)
	if err != nil {
		s.log.Warn("refine failed; returning original query", "err", err, "provider", adapter.Name())
		httputil.WriteJSON(w, http.StatusOK, refineResponse{RefinedQuery: req.Query, Degraded: true})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, refineResponse{RefinedQuery: refined.Text, Explanation: refined.Explanation})
}

func (s *server) summarizeHandler(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	adapter, ok := s.adapter(w, req.Provider)
	if !ok {
		return
	}

	sum, err := adapter.Summarize(r.Context(), req.Query, req.Results)
	if err != nil {
		httputil.Fail(s.log, w, err.Error(), err, statusFor(err))
		return
	}
	sum.Answer = pipeline.SanitizeCitations(sum.Answer, search.Response{Results: req.Results}.URLs())
	if sum.RelatedSearches == nil {
		sum.RelatedSearches = []provider.RelatedSearch{}
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}

func (s *server) webSearchHandler(w http.ResponseWriter, r *http.Request) {
	var req webSearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	resp, err := s.search.Search(r.Context(), query)
	if err != nil {
		httputil.Fail(s.log, w, err.Error(), err, statusFor(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, webSearchResponse{
		Response:        resp,
		RelatedSearches: search.SuggestRelated(query, resp.Results),
	})
}

func (s *server) scrapeImagesHandler(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		httputil.Fail(s.log, w, "image enrichment is disabled", nil, http.StatusServiceUnavailable)
		return
	}
	var req scrapeRequest
	if !s.decode(w, r, &req) {
		return
	}

	pages := s.images.FetchImages(r.Context(), req.URLs)
	out := scrapeResponse{Results: make([]enrich.PageImages, 0, len(pages))}
	for _, p := range pages {
		if p.Err != nil {
			s.log.Debug("image scrape failed", "url", p.URL, "err", p.Err)
		}
		if len(p.Images) > 0 {
			out.Results = append(out.Results, p)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// decode reads and validates a JSON body, writing the 400 itself on failure.
func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		httputil.Fail(s.log, w, "invalid JSON body", err, http.StatusBadRequest)
		return false
	}
	if err := httputil.Validator.Struct(dst); err != nil {
		httputil.ValidationError(s.log, w, err)
		return false
	}
	return true
}

func (s *server) adapter(w http.ResponseWriter, raw string) (provider.Adapter, bool) {
	name, err := provider.ParseName(raw)
	if err != nil {
		httputil.Fail(s.log, w, err.Error(), err, http.StatusBadRequest)
		return nil, false
	}
	adapter, err := s.providers.Adapter(name)
	if err != nil {
		httputil.Fail(s.log, w, err.Error(), err, statusFor(err))
		return nil, false
	}
	return adapter, true
}

// sessionID scopes the in-flight guard: header, then body, then client address.
func sessionID(r *http.Request, fromBody string) string {
	if id := strings.TrimSpace(r.Header.Get(sessionHeader)); id != "" {
		return id
	}
	if id := strings.TrimSpace(fromBody); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func statusFor(err error) int {
	var (
		searchErr   *search.Error
		providerErr *provider.Error
	)
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery), errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrDuplicateQuery), errors.Is(err, pipeline.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, config.ErrNotConfigured):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &searchErr):
		if searchErr.Kind == search.KindUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	case errors.As(err, &providerErr):
		if providerErr.StatusCode == http.StatusUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
