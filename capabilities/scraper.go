package capabilities

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/pagegate/core/capability"
)

// ScraperInput is the input of the scraper capability.
type ScraperInput struct {
	URL string `json:"url" jsonschema_description:"The URL of the website to scrape"`
}

// NewScraper fetches a page and stores its raw HTML.
func NewScraper(d Deps, _ NoOptions) capability.Capability {
	return capability.New("scraper_tool",
		"Scrapes raw HTML content from the provided URL and saves it to a file",
		func(ctx context.Context, in ScraperInput) (map[string]any, error) {
			if err := requireURL(in.URL); err != nil {
				return nil, err
			}
			res, err := d.Fetcher.Fetch(ctx, in.URL)
			if err != nil {
				return nil, fmt.Errorf("scraping %s: %w", in.URL, err)
			}
			ref, err := d.Store.Write(in.URL, "scraped", ".html", []byte(res.HTML), map[string]any{
				"status_code":  res.StatusCode,
				"content_type": res.ContentType,
			})
			if err != nil {
				return nil, err
			}
			d.Logger.Debug().Str("url", in.URL).Int("bytes", len(res.HTML)).Str("file", ref.Path).Msg("scraped")
			return withArtifact(map[string]any{
				"url":         in.URL,
				"status_code": res.StatusCode,
			}, "scraped_file", ref), nil
		})
}
