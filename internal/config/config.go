package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the server and the CLI.
type Config struct {
	// Server
	Port           int           `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`

	// Provider used when a request does not name one: "openai", "deepseek" or "alibabacloud"
	DefaultProvider string `env:"DEFAULT_PROVIDER" envDefault:"openai"`

	// Search
	SearchProvider      string        `env:"SEARCH_PROVIDER" envDefault:"tavily"`
	SearchAPIKey        string        `env:"SEARCH_API_KEY"`
	SearchAPIURL        string        `env:"SEARCH_API_URL" envDefault:"https://api.tavily.com/search"`
	SearchMaxResults    int           `env:"SEARCH_MAX_RESULTS" envDefault:"10"`
	SearchIncludeImages bool          `env:"SEARCH_INCLUDE_IMAGES" envDefault:"true"`
	SearchTimeout       time.Duration `env:"SEARCH_TIMEOUT" envDefault:"30s"`

	// OpenAI
	OpenAIKey            string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL        string `env:"OPENAI_BASE_URL"`
	OpenAIRefineModel    string `env:"OPENAI_REFINE_MODEL" envDefault:"gpt-4o"`
	OpenAISummarizeModel string `env:"OPENAI_SUMMARIZE_MODEL" envDefault:"gpt-4o"`

	// DeepSeek
	DeepSeekKey            string `env:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL        string `env:"DEEPSEEK_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	DeepSeekRefineModel    string `env:"DEEPSEEK_REFINE_MODEL" envDefault:"deepseek-chat"`
	DeepSeekSummarizeModel string `env:"DEEPSEEK_SUMMARIZE_MODEL" envDefault:"deepseek-reasoner"`

	// AlibabaCloud (DashScope compatible mode)
	AlibabaKey     string `env:"ALIBABACLOUD_API_KEY"`
	AlibabaBaseURL string `env:"ALIBABACLOUD_BASE_URL" envDefault:"https://dashscope-intl.aliyuncs.com/compatible-mode/v1/"`
	AlibabaModel   string `env:"ALIBABACLOUD_MODEL" envDefault:"qwen-plus"`

	// Shared LLM settings
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"90s"`
	LLMMaxRetries    int           `env:"LLM_MAX_RETRIES" envDefault:"1"`
	RelatedSearches  bool          `env:"RELATED_SEARCHES" envDefault:"true"`
	RefineTimeout    time.Duration `env:"REFINE_TIMEOUT" envDefault:"20s"`
	SummarizeTimeout time.Duration `env:"SUMMARIZE_TIMEOUT" envDefault:"90s"`
	SnippetMaxWords  int           `env:"SNIPPET_MAX_WORDS" envDefault:"300"`

	// Image enrichment
	EnrichEnabled     bool          `env:"ENRICH_ENABLED" envDefault:"true"`
	EnrichMaxURLs     int           `env:"ENRICH_MAX_URLS" envDefault:"5"`
	EnrichMaxImages   int           `env:"ENRICH_MAX_IMAGES" envDefault:"3"`
	EnrichConcurrency int           `env:"ENRICH_CONCURRENCY" envDefault:"4"`
	EnrichURLTimeout  time.Duration `env:"ENRICH_URL_TIMEOUT" envDefault:"5s"`
	EnrichTimeout     time.Duration `env:"ENRICH_TIMEOUT" envDefault:"10s"`

	// In-flight guard
	GuardProvider string        `env:"GUARD_PROVIDER" envDefault:"memory"` // "memory" (single process) or "redis" (shared across replicas)
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	GuardTTL      time.Duration `env:"GUARD_TTL" envDefault:"2m"`

	// Run events
	EventsProvider string `env:"EVENTS_PROVIDER" envDefault:"none"` // "none" or "nats"
	NATSURL        string `env:"NATS_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
