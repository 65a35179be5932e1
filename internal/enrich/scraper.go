package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"golang.org/x/sync/semaphore"

	"deep-search/internal/logger"
	"deep-search/internal/search"
)

const (
	defaultMaxURLs      = 5
	defaultMaxImages    = 3
	defaultConcurrency  = 4
	defaultURLTimeout   = 5 * time.Second
	defaultMaxPageBytes = 2 << 20

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	errUnsupportedScheme = errors.New("unsupported scheme")
	errNotHTML           = errors.New("unsupported content type")
)

// ErrSkipped marks URLs past the MaxURLs limit. It is not a fetch failure.
var ErrSkipped = errors.New("beyond enrichment url limit")

// Options bounds the work done by a Scraper. Zero values take the defaults.
type Options struct {
	MaxURLs      int
	MaxImages    int
	Concurrency  int
	Timeout      time.Duration // per URL
	MaxPageBytes int64
	HTTPClient   *http.Client
	Log          *slog.Logger
}

// Scraper fetches pages over HTTP and ranks their images.
type Scraper struct {
	maxURLs      int
	maxImages    int
	concurrency  int
	timeout      time.Duration
	maxPageBytes int64
	client       *http.Client
	log          *slog.Logger
}

func NewScraper(opts Options) *Scraper {
	s := &Scraper{
		maxURLs:      opts.MaxURLs,
		maxImages:    opts.MaxImages,
		concurrency:  opts.Concurrency,
		timeout:      opts.Timeout,
		maxPageBytes: opts.MaxPageBytes,
		client:       opts.HTTPClient,
		log:          logger.OrDiscard(opts.Log),
	}
	if s.maxURLs <= 0 {
		s.maxURLs = defaultMaxURLs
	}
	if s.maxImages <= 0 {
		s.maxImages = defaultMaxImages
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultConcurrency
	}
	if s.timeout <= 0 {
		s.timeout = defaultURLTimeout
	}
	if s.maxPageBytes <= 0 {
		s.maxPageBytes = defaultMaxPageBytes
	}
	if s.client == nil {
		s.client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	return s
}

// FetchImages processes the first MaxURLs urls concurrently. URLs past the limit
// come back with no images and ErrSkipped.
func (s *Scraper) FetchImages(ctx context.Context, urls []string) []PageImages {
	out := make([]PageImages, len(urls))
	for i, u := range urls {
		out[i] = PageImages{URL: u, Images: []search.Image{}}
	}

	sem := semaphore.NewWeighted(int64(s.concurrency))
	var wg sync.WaitGroup
	for i := range urls {
		if i >= s.maxURLs {
			out[i].Err = ErrSkipped
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			out[i].Err = err
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			images, err := s.scrape(ctx, urls[i])
			if err != nil {
				s.log.Debug("image enrichment failed", "url", urls[i], "err", err)
				out[i].Err = err
				return
			}
			out[i].Images = images
		}(i)
	}
	wg.Wait()
	return out
}

func (s *Scraper) scrape(ctx context.Context, rawURL string) ([]search.Image, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", errUnsupportedScheme, pageURL.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := s.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err != nil {
		s.log.Debug("opengraph parse failed", "url", rawURL, "err", err)
		og = nil
	}

	return rank(collect(doc, og, pageURL), s.maxImages), nil
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return nil, fmt.Errorf("%w: %q", errNotHTML, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return body, nil
}
