package capabilities

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/pagegate/core/capability"
	"github.com/gaurav-prasanna/pagegate/core/feed"
)

// RSSFetcherInput is the input of the rss_fetcher capability.
type RSSFetcherInput struct {
	URL        string `json:"url" jsonschema_description:"URL of the RSS or Atom feed"`
	MaxEntries int    `json:"max_entries" jsonschema_description:"Maximum number of entries to keep" jsonschema:"default=25"`
}

// NewRSSFetcher fetches a feed and flattens its newest entries into text.
func NewRSSFetcher(d Deps, _ NoOptions) capability.Capability {
	return capability.New("rss_fetcher_tool",
		"Fetches and parses RSS/Atom feed content for LLM extraction",
		func(ctx context.Context, in RSSFetcherInput) (map[string]any, error) {
			if err := requireURL(in.URL); err != nil {
				return nil, err
			}
			if in.MaxEntries <= 0 {
				return nil, fmt.Errorf("max_entries must be positive, got %d", in.MaxEntries)
			}
			res, err := d.Fetcher.Fetch(ctx, in.URL)
			if err != nil {
				return nil, fmt.Errorf("fetching feed %s: %w", in.URL, err)
			}
			f, err := feed.Parse([]byte(res.HTML))
			if err != nil {
				return nil, fmt.Errorf("parsing feed %s: %w", in.URL, err)
			}

			entries := f.Entries
			if len(entries) > in.MaxEntries {
				entries = entries[:in.MaxEntries]
			}
			text, links := flattenFeed(entries)

			ref, err := d.Store.Write(in.URL, "rss_extracted", ".txt", []byte(text), map[string]any{
				"entries": len(entries),
				"title":   f.Title,
			})
			if err != nil {
				return nil, err
			}
			return withArtifact(map[string]any{
				"url":             in.URL,
				"extracted_text":  text,
				"extracted_links": links,
			}, "extracted_file", ref), nil
		})
}

// flattenFeed renders entries one block each and collects their distinct
// links in order of first appearance.
func flattenFeed(entries []feed.Entry) (string, []string) {
	blocks := make([]string, 0, len(entries))
	links := []string{}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nDate: %s\nSummary: %s\nLink: %s\n---\n", e.Title, e.Date, e.Summary, e.Link))
		if e.Link != "" && !seen[e.Link] {
			seen[e.Link] = true
			links = append(links, e.Link)
		}
	}
	return strings.Join(blocks, "\n"), links
}
