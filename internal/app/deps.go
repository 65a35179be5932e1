package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"deep-search/internal/config"
	"deep-search/internal/enrich"
	"deep-search/internal/events"
	"deep-search/internal/inflight"
	"deep-search/internal/logger"
	"deep-search/internal/metrics"
	"deep-search/internal/pipeline"
	"deep-search/internal/provider"
	"deep-search/internal/search"
)

// envFiles are loaded in order; values already in the environment win, so .env.local overrides .env.
var envFiles = []string{".env.local", ".env"}

// Deps bundles common runtime dependencies for the server and the CLI.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Providers *provider.Registry
	Search    search.Client
	Images    enrich.Fetcher
	Guard     inflight.Guard
	Events    events.Publisher
	Metrics   *metrics.Metrics
	Pipeline  *pipeline.Orchestrator
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return Deps{}, err
	}
	return BuildWith(cfg, logger.New(cfg.LogLevel))
}

// LoadConfig applies the optional env files and parses the environment.
func LoadConfig() (config.Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return config.Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	return config.Load(), nil
}

// BuildWith wires components from an already loaded config.
func BuildWith(cfg config.Config, log *slog.Logger) (Deps, error) {
	providers, err := buildProviders(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize providers: %w", err)
	}
	searchClient, err := buildSearch(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize search: %w", err)
	}
	guard, err := buildGuard(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize in-flight guard: %w", err)
	}
	pub, err := buildEvents(cfg, log)
	if err != nil {
		_ = guard.Close()
		return Deps{}, fmt.Errorf("failed to initialize events: %w", err)
	}

	var images enrich.Fetcher
	if cfg.EnrichEnabled {
		images = enrich.NewScraper(enrich.Options{
			MaxURLs:     cfg.EnrichMaxURLs,
			MaxImages:   cfg.EnrichMaxImages,
			Concurrency: cfg.EnrichConcurrency,
			Timeout:     cfg.EnrichURLTimeout,
			Log:         log,
		})
	}

	m := metrics.New()
	orch, err := pipeline.New(pipeline.Options{
		Providers:        providers,
		Search:           searchClient,
		Images:           images,
		Guard:            guard,
		Events:           pub,
		Metrics:          m,
		Log:              log,
		RefineTimeout:    cfg.RefineTimeout,
		SearchTimeout:    cfg.SearchTimeout,
		SummarizeTimeout: cfg.SummarizeTimeout,
		EnrichTimeout:    cfg.EnrichTimeout,
	})
	if err != nil {
		_ = pub.Close()
		_ = guard.Close()
		return Deps{}, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	return Deps{
		Config:    cfg,
		Log:       log,
		Providers: providers,
		Search:    searchClient,
		Images:    images,
		Guard:     guard,
		Events:    pub,
		Metrics:   m,
		Pipeline:  orch,
	}, nil
}

// Close flushes pending events and closes backend connections.
func (d Deps) Close() error {
	if d.Pipeline != nil {
		d.Pipeline.Close()
	}
	var errs []error
	if d.Events != nil {
		errs = append(errs, d.Events.Close())
	}
	if d.Guard != nil {
		errs = append(errs, d.Guard.Close())
	}
	return errors.Join(errs...)
}

func loadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	return nil
}

// buildProviders registers every backend that has a credential. Missing
// credentials surface per request as config.MissingKeyError.
func buildProviders(cfg config.Config, log *slog.Logger) (*provider.Registry, error) {
	fallback, err := provider.ParseName(cfg.DefaultProvider)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PROVIDER: %w", err)
	}
	if fallback == "" {
		fallback = provider.OpenAI
	}
	reg := provider.NewRegistry(fallback)

	shared := provider.Options{
		Timeout:         cfg.LLMTimeout,
		MaxRetries:      cfg.LLMMaxRetries,
		RelatedSearches: cfg.RelatedSearches,
		SnippetMaxWords: cfg.SnippetMaxWords,
		Log:             log,
	}

	if cfg.OpenAIKey != "" {
		opts := shared
		opts.APIKey, opts.BaseURL = cfg.OpenAIKey, cfg.OpenAIBaseURL
		opts.RefineModel, opts.SummarizeModel = cfg.OpenAIRefineModel, cfg.OpenAISummarizeModel
		a, err := provider.NewOpenAI(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI adapter: %w", err)
		}
		reg.Register(a)
		log.Info("provider configured", "provider", provider.OpenAI, "model", opts.SummarizeModel)
	}
	if cfg.DeepSeekKey != "" {
		opts := shared
		opts.APIKey, opts.BaseURL = cfg.DeepSeekKey, cfg.DeepSeekBaseURL
		opts.RefineModel, opts.SummarizeModel = cfg.DeepSeekRefineModel, cfg.DeepSeekSummarizeModel
		a, err := provider.NewDeepSeek(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize DeepSeek adapter: %w", err)
		}
		reg.Register(a)
		log.Info("provider configured", "provider", provider.DeepSeek, "model", opts.SummarizeModel)
	}
	if cfg.AlibabaKey != "" {
		opts := shared
		opts.APIKey, opts.BaseURL = cfg.AlibabaKey, cfg.AlibabaBaseURL
		opts.SummarizeModel = cfg.AlibabaModel
		a, err := provider.NewAlibaba(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AlibabaCloud adapter: %w", err)
		}
		reg.Register(a)
		log.Info("provider configured", "provider", provider.AlibabaCloud, "model", opts.SummarizeModel)
	}
	if len(reg.Names()) == 0 {
		log.Warn("no LLM provider credentials configured; requests will fail until one is set")
	}
	return reg, nil
}

func buildSearch(cfg config.Config, log *slog.Logger) (search.Client, error) {
	switch cfg.SearchProvider {
	case "tavily":
		if cfg.SearchAPIKey == "" {
			log.Warn("SEARCH_API_KEY is not set; search requests will fail")
		}
		return search.NewTavilyClient(search.TavilyOptions{
			APIKey:        cfg.SearchAPIKey,
			APIURL:        cfg.SearchAPIURL,
			MaxResults:    cfg.SearchMaxResults,
			IncludeImages: cfg.SearchIncludeImages,
			Timeout:       cfg.SearchTimeout,
			Log:           log,
		}), nil
	default:
		return nil, fmt.Errorf("invalid SEARCH_PROVIDER: %s (valid option: tavily)", cfg.SearchProvider)
	}
}

func buildGuard(cfg config.Config, log *slog.Logger) (inflight.Guard, error) {
	switch cfg.GuardProvider {
	case "memory", "":
		log.Info("using in-memory in-flight guard")
		return inflight.NewMemoryGuard(), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when GUARD_PROVIDER=redis")
		}
		g, err := inflight.NewRedisGuard(cfg.RedisAddr, cfg.RedisPassword, cfg.GuardTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis guard: %w", err)
		}
		log.Info("using Redis in-flight guard", "addr", cfg.RedisAddr, "ttl", cfg.GuardTTL)
		return g, nil
	default:
		return nil, fmt.Errorf("invalid GUARD_PROVIDER: %s (valid options: memory, redis)", cfg.GuardProvider)
	}
}

func buildEvents(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	switch cfg.EventsProvider {
	case "none", "":
		return events.NewNoopPublisher(), nil
	case "nats":
		if cfg.NATSURL == "" {
			return nil, fmt.Errorf("NATS_URL is required when EVENTS_PROVIDER=nats")
		}
		nc, err := events.Connect(cfg.NATSURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("publishing run events to NATS")
		return events.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid EVENTS_PROVIDER: %s (valid options: none, nats)", cfg.EventsProvider)
	}
}
