// Package crawl discovers the internal pages of a site for the crawler
// capability and the whole-site convert mode. It tries sitemap.xml first
// and falls back to breadth-first link crawling.
package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/pagegate/core"
)

// DefaultMaxPages bounds a crawl when no limit is configured.
const DefaultMaxPages = 100

// sitemapURL holds a URL from a sitemap.xml.
type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapDoc covers both a urlset and a sitemapindex root.
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapURL `xml:"url"`
	Sitemaps []sitemapURL `xml:"sitemap"`
}

// Crawler finds internal URLs of a site.
type Crawler struct {
	fetcher  core.Fetcher
	maxPages int
	excludes []string
	logger   zerolog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxPages caps the number of URLs returned.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithExclude skips URLs whose path matches any of the doublestar patterns,
// for example "/blog/**".
func WithExclude(patterns ...string) Option {
	return func(c *Crawler) { c.excludes = append(c.excludes, patterns...) }
}

// WithLogger sets the crawl logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// New creates a Crawler that reads pages through fetcher.
func New(fetcher core.Fetcher, opts ...Option) *Crawler {
	c := &Crawler{fetcher: fetcher, maxPages: DefaultMaxPages, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DiscoverAll finds internal URLs starting from baseURL, at most maxPages
// of them. The baseURL itself is always included first.
func (c *Crawler) DiscoverAll(ctx context.Context, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	sc := scope{host: base.Host, excludes: c.excludes}
	found := newFrontier(c.maxPages)
	found.push(canonical(base))

	sitemapURL := fmt.Sprintf("%s://%s/sitemap.xml", base.Scheme, base.Host)
	n, err := c.fromSitemap(ctx, sitemapURL, sc, found, 1)
	if err == nil && n > 0 {
		c.logger.Debug().Str("sitemap", sitemapURL).Int("urls", len(found.order)).Msg("discovered from sitemap")
		return found.urls(), nil
	}
	if err != nil {
		c.logger.Debug().Err(err).Str("sitemap", sitemapURL).Msg("sitemap unavailable, crawling links")
	}

	return c.fromLinks(ctx, sc, found)
}

// fromSitemap pushes the in-scope locations of a sitemap into found,
// following a sitemap index down depth more levels. It reports how many
// sitemap entries were accepted.
func (c *Crawler) fromSitemap(ctx context.Context, sitemapURL string, sc scope, found *frontier, depth int) (int, error) {
	result, err := c.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return 0, err
	}

	var doc sitemapDoc
	if err := xml.Unmarshal([]byte(result.HTML), &doc); err != nil {
		return 0, fmt.Errorf("parsing sitemap: %w", err)
	}

	accepted := 0
	for _, u := range doc.URLs {
		if loc, ok := sc.admit(nil, u.Loc); ok && found.push(loc) {
			accepted++
		}
	}
	if depth == 0 {
		return accepted, nil
	}
	for _, s := range doc.Sitemaps {
		if found.full() {
			break
		}
		n, err := c.fromSitemap(ctx, strings.TrimSpace(s.Loc), sc, found, depth-1)
		if err != nil {
			c.logger.Debug().Err(err).Str("sitemap", s.Loc).Msg("skipping nested sitemap")
			continue
		}
		accepted += n
	}
	return accepted, nil
}

// fromLinks walks found breadth-first, fetching each page and pushing the
// in-scope links it contains. Pages that fail to load are skipped.
func (c *Crawler) fromLinks(ctx context.Context, sc scope, found *frontier) ([]string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current, ok := found.pop()
		if !ok {
			break
		}

		result, err := c.fetcher.Fetch(ctx, current)
		if err != nil {
			c.logger.Debug().Err(err).Str("url", current).Msg("skipping page")
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
		if err != nil {
			continue
		}
		base, _ := url.Parse(current)
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if link, ok := sc.admit(base, s.AttrOr("href", "")); ok {
				found.push(link)
			}
			return !found.full()
		})
	}
	return found.urls(), nil
}
