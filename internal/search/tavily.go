package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"deep-search/internal/config"
)

const (
	defaultTavilyURL     = "https://api.tavily.com/search"
	defaultMaxResults    = 10
	defaultSearchTimeout = 30 * time.Second
	tavilyKeyEnv         = "SEARCH_API_KEY"
)

// TavilyOptions configures a TavilyClient.
type TavilyOptions struct {
	APIKey        string
	APIURL        string
	MaxResults    int
	IncludeImages bool
	Timeout       time.Duration
	Log           *slog.Logger
}

// TavilyClient calls the Tavily Search API.
type TavilyClient struct {
	apiKey        string
	apiURL        string
	maxResults    int
	includeImages bool
	client        *http.Client
	log           *slog.Logger
}

// NewTavilyClient builds a client. A missing key is reported by Search, not here,
// so the service can start and answer with a "not configured" error per request.
func NewTavilyClient(opts TavilyOptions) *TavilyClient {
	if strings.TrimSpace(opts.APIURL) == "" {
		opts.APIURL = defaultTavilyURL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSearchTimeout
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TavilyClient{
		apiKey:        strings.TrimSpace(opts.APIKey),
		apiURL:        opts.APIURL,
		maxResults:    opts.MaxResults,
		includeImages: opts.IncludeImages,
		client:        &http.Client{Timeout: opts.Timeout},
		log:           log,
	}
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeImages bool   `json:"include_images"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResult struct {
	Title   *string `json:"title"`
	URL     *string `json:"url"`
	Content *string `json:"content"`
}

type tavilyResponse struct {
	Results *[]tavilyResult   `json:"results"`
	Images  []json.RawMessage `json:"images"`
}

// Search executes a query against the Tavily Search API.
func (c *TavilyClient) Search(ctx context.Context, query string) (Response, error) {
	if c.apiKey == "" {
		return Response{}, &config.MissingKeyError{Service: "Tavily", EnvVar: tavilyKeyEnv}
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:        c.apiKey,
		Query:         query,
		SearchDepth:   "advanced",
		IncludeImages: c.includeImages,
		MaxResults:    c.maxResults,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, c.fail(KindUpstream, 0, fmt.Errorf("tavily request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Response{}, c.fail(KindUnauthorized, resp.StatusCode, nil)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Error("tavily api error", "status", resp.StatusCode, "body", strings.TrimSpace(string(body)))
		return Response{}, c.fail(KindUpstream, resp.StatusCode, nil)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Response{}, c.fail(KindInvalidResponse, resp.StatusCode, fmt.Errorf("decode tavily response: %w", err))
	}
	if decoded.Results == nil {
		return Response{}, c.fail(KindInvalidResponse, resp.StatusCode, nil)
	}

	results := make([]Result, 0, len(*decoded.Results))
	for _, item := range *decoded.Results {
		results = append(results, Result{
			Title:   deref(item.Title),
			URL:     deref(item.URL),
			Snippet: deref(item.Content),
			Images:  []Image{},
		})
	}
	c.log.Debug("tavily search complete", "query", query, "results", len(results), "images", len(decoded.Images))

	return Response{Results: results, Images: decodeImages(decoded.Images)}, nil
}

func (c *TavilyClient) fail(kind ErrorKind, status int, err error) error {
	return &Error{Kind: kind, Provider: "Tavily", EnvVar: tavilyKeyEnv, StatusCode: status, Err: err}
}

// decodeImages accepts both the plain ["url"] form and the
// [{"url","description"}] form returned with include_image_descriptions.
func decodeImages(raw []json.RawMessage) []Image {
	images := make([]Image, 0, len(raw))
	for _, item := range raw {
		var src string
		if err := json.Unmarshal(item, &src); err == nil {
			if src != "" {
				images = append(images, Image{Src: src})
			}
			continue
		}
		var described struct {
			URL         string `json:"url"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(item, &described); err == nil && described.URL != "" {
			images = append(images, Image{Src: described.URL, Alt: described.Description})
		}
	}
	return images
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
