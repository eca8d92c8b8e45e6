// Package fetch implements the Fetcher interface.
// It performs HTTP GET requests with sensible defaults for web scraping,
// optionally keeping recent responses in memory so a crawl followed by a
// scrape of the same pages hits the network once.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/pagegate/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "PageGate/1.0 (https://github.com/gaurav-prasanna/pagegate)"
	defaultMaxBody   = 10 << 20
	cleanupInterval  = 10 * time.Minute
)

// HTTPFetcher fetches web pages via HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	cache     *gocache.Cache
	logger    zerolog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithCache keeps successful responses for ttl. A zero ttl disables caching.
func WithCache(ttl time.Duration) Option {
	return func(f *HTTPFetcher) {
		if ttl > 0 {
			f.cache = gocache.New(ttl, cleanupInterval)
		}
	}
}

// WithMaxBody caps the response size; larger bodies fail the fetch.
func WithMaxBody(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithClient replaces the underlying HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithLogger sets the fetch logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *HTTPFetcher) { f.logger = logger }
}

// New creates an HTTPFetcher with a sensible timeout.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		maxBody:   defaultMaxBody,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the HTML content of the given URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	if f.cache != nil {
		if v, ok := f.cache.Get(url); ok {
			if res, ok := v.(core.FetchResult); ok {
				f.logger.Debug().Str("url", url).Msg("fetch cache hit")
				return &res, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("response body for %s exceeds %d bytes", url, f.maxBody)
	}

	res := core.FetchResult{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		HTML:        string(body),
	}
	f.logger.Debug().Str("url", url).Int("status", res.StatusCode).Int("bytes", len(body)).Msg("fetched")

	if f.cache != nil {
		f.cache.Set(url, res, gocache.DefaultExpiration)
	}
	return &res, nil
}
