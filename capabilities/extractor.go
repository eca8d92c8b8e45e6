package capabilities

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/capability"
)

// HTMLExtractorInput is the input of the html_extractor capability.
type HTMLExtractorInput struct {
	URL         string `json:"url" jsonschema_description:"The URL of the page"`
	CleanedFile string `json:"cleaned_file" jsonschema_description:"The path to the cleaned HTML file"`
}

// NewHTMLExtractor flattens a cleaned page into visible text and links.
func NewHTMLExtractor(d Deps, _ NoOptions) capability.Capability {
	return capability.New("html_extractor_tool",
		"Extracts visible text and links from cleaned HTML content",
		func(ctx context.Context, in HTMLExtractorInput) (map[string]any, error) {
			html, err := artifact.ReadText(in.CleanedFile)
			if err != nil {
				return nil, err
			}
			vt, err := d.Text.ExtractText(html, in.URL)
			if err != nil {
				return nil, fmt.Errorf("extracting %s: %w", in.CleanedFile, err)
			}
			ref, err := d.Store.Write(in.URL, "extracted", ".txt", []byte(vt.Text), map[string]any{
				"links": len(vt.Links),
			})
			if err != nil {
				return nil, err
			}
			d.Logger.Debug().Int("text_length", len(vt.Text)).Int("links", len(vt.Links)).Msg("extracted")
			return withArtifact(map[string]any{
				"url":             in.URL,
				"extracted_text":  vt.Text,
				"extracted_links": vt.Links,
			}, "extracted_file", ref), nil
		})
}
