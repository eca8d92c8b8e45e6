package capabilities

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/capability"
)

// CleanerInput is the input of the cleaner capability. The HTML comes
// inline or from a scraper artifact.
type CleanerInput struct {
	URL         string `json:"url" jsonschema_description:"The original URL of the page"`
	ScrapedHTML string `json:"scraped_html" jsonschema_description:"The raw HTML content to be cleaned" jsonschema:"default="`
	ScrapedFile string `json:"scraped_file" jsonschema_description:"Path to the scraped HTML file, used when scraped_html is empty" jsonschema:"default="`
}

// NewCleaner removes boilerplate and empty elements from scraped HTML.
func NewCleaner(d Deps, _ NoOptions) capability.Capability {
	return capability.New("cleaner_tool",
		"Cleans raw HTML by removing unnecessary tags and outputs cleaned HTML and saved file path",
		func(ctx context.Context, in CleanerInput) (map[string]any, error) {
			raw := in.ScrapedHTML
			if raw == "" {
				if in.ScrapedFile == "" {
					return nil, fmt.Errorf("one of scraped_html or scraped_file is required: %w", core.ErrMissingInput)
				}
				text, err := artifact.ReadText(in.ScrapedFile)
				if err != nil {
					return nil, err
				}
				raw = text
			}

			cleaned, err := d.Cleaner.Clean(raw)
			if err != nil {
				return nil, fmt.Errorf("cleaning %s: %w", in.URL, err)
			}
			ref, err := d.Store.Write(in.URL, "cleaned", ".html", []byte(cleaned), nil)
			if err != nil {
				return nil, err
			}
			return withArtifact(map[string]any{
				"url":          in.URL,
				"cleaned_html": cleaned,
			}, "cleaned_file", ref), nil
		})
}
