package capabilities

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/pagegate/core/capability"
	"github.com/gaurav-prasanna/pagegate/crawl"
)

// CrawlerInput is the input of the crawler capability.
type CrawlerInput struct {
	URL      string `json:"url" jsonschema_description:"Root URL of the site to crawl"`
	MaxPages int    `json:"max_pages" jsonschema_description:"Maximum number of URLs to return" jsonschema:"default=100"`
	Exclude  string `json:"exclude" jsonschema_description:"Comma-separated path patterns to skip, e.g. /blog/**" jsonschema:"default="`
}

// NewCrawler lists the internal pages of a site, sitemap first.
func NewCrawler(d Deps, _ NoOptions) capability.Capability {
	return capability.New("site_crawler_tool",
		"Discovers internal page URLs of a site from its sitemap or by following links",
		func(ctx context.Context, in CrawlerInput) (map[string]any, error) {
			if err := requireURL(in.URL); err != nil {
				return nil, err
			}
			if in.MaxPages <= 0 {
				return nil, fmt.Errorf("max_pages must be positive, got %d", in.MaxPages)
			}
			c := crawl.New(d.Fetcher,
				crawl.WithMaxPages(in.MaxPages),
				crawl.WithExclude(splitList(in.Exclude)...),
				crawl.WithLogger(d.Logger))
			urls, err := c.DiscoverAll(ctx, in.URL)
			if err != nil {
				return nil, fmt.Errorf("crawling %s: %w", in.URL, err)
			}
			ref, err := d.Store.Write(in.URL, "urls", ".txt", []byte(strings.Join(urls, "\n")+"\n"), map[string]any{
				"count": len(urls),
			})
			if err != nil {
				return nil, err
			}
			return withArtifact(map[string]any{
				"url":  in.URL,
				"urls": urls,
			}, "urls_file", ref), nil
		})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
