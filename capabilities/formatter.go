package capabilities

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/capability"
	"github.com/gaurav-prasanna/pagegate/core/extract"
	"github.com/gaurav-prasanna/pagegate/core/render"
)

// FormatterInput is the input of the formatter capability.
type FormatterInput struct {
	URL         string `json:"url" jsonschema_description:"The URL of the page"`
	CleanedFile string `json:"cleaned_file" jsonschema_description:"The path to the cleaned HTML file"`
	Format      string `json:"format" jsonschema_description:"Output format: pdf, markdown or json" jsonschema:"default=pdf"`
}

// FormatterOptions configures the formatter from a manifest.
type FormatterOptions struct {
	// Header prepends the source URL to markdown output.
	Header bool `json:"header"`
}

// NewFormatter renders a cleaned HTML file as a formatted document.
func NewFormatter(d Deps, opts FormatterOptions) capability.Capability {
	return capability.New("formatter_tool",
		"Converts a cleaned HTML file into a formatted PDF, Markdown or JSON document",
		func(ctx context.Context, in FormatterInput) (map[string]any, error) {
			html, err := artifact.ReadText(in.CleanedFile)
			if err != nil {
				return nil, err
			}
			renderer, err := render.ForFormat(in.Format)
			if err != nil {
				return nil, err
			}
			if md, ok := renderer.(*render.MarkdownRenderer); ok {
				md.Header = opts.Header
			}

			markdown, err := d.Normalizer.Normalize(html, in.URL)
			if err != nil {
				return nil, fmt.Errorf("normalizing %s: %w", in.CleanedFile, err)
			}
			data, err := renderer.Render(ctx, markdown, extract.Metadata(in.URL, html))
			if err != nil {
				return nil, fmt.Errorf("rendering %s: %w", in.Format, err)
			}
			ref, err := d.Store.Write(in.URL, "formatted", renderer.Extension(), data, map[string]any{
				"format": in.Format,
			})
			if err != nil {
				return nil, err
			}

			out := withArtifact(map[string]any{
				"url":          in.URL,
				"cleaned_file": in.CleanedFile,
			}, "output_file", ref)
			if in.Format == "pdf" {
				out["pdf_file"] = ref.Path
			}
			return out, nil
		})
}
