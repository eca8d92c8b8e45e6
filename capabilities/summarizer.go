package capabilities

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/capability"
)

const defaultSummaryInstructions = `You are a regulatory analyst focused on large global financial institutions.

Summarize the following content from a regulatory update. Your summary should highlight:

1. Key regulatory developments or announcements.
2. Implications or potential impact on large banks and their global peers.
3. Any new obligations, risk areas, or disclosures mentioned.

Respond in 2-4 sentences. Be precise and compliance-focused.`

// errNoCompleter is returned by LLM-backed capabilities built without a model client.
var errNoCompleter = errors.New("no language model configured")

// SummarizerInput is the input of the summarizer capability. It accepts
// text with source_url, extracted_text with url, or extracted_file with url.
type SummarizerInput struct {
	Text          string `json:"text" jsonschema_description:"The raw text to summarize" jsonschema:"default="`
	ExtractedText string `json:"extracted_text" jsonschema_description:"Alternative to 'text' if provided by extractor" jsonschema:"default="`
	SourceURL     string `json:"source_url" jsonschema_description:"The original source URL of the content" jsonschema:"default="`
	URL           string `json:"url" jsonschema_description:"Alternative to 'source_url'" jsonschema:"default="`
	ExtractedFile string `json:"extracted_file" jsonschema_description:"Path to an extracted text file, used with 'url'" jsonschema:"default="`
}

// SummarizerOptions configures the summarizer from a manifest.
type SummarizerOptions struct {
	Model        string   `json:"model"`
	Temperature  *float64 `json:"temperature"`
	Instructions string   `json:"instructions"`
}

// NewSummarizer asks the language model for a short compliance summary.
func NewSummarizer(d Deps, opts SummarizerOptions) capability.Capability {
	if opts.Instructions == "" {
		opts.Instructions = defaultSummaryInstructions
	}
	temperature := 0.3
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	return capability.New("summarizer_tool",
		"Summarizes regulatory text with a compliance-specific focus",
		func(ctx context.Context, in SummarizerInput) (map[string]any, error) {
			content, source, err := summarizerContent(in)
			if err != nil {
				return nil, err
			}
			if d.Completer == nil {
				return nil, errNoCompleter
			}
			summary, err := d.Completer.Complete(ctx, core.Prompt{
				Model:       firstNonEmpty(opts.Model, d.ChatModel),
				User:        fmt.Sprintf("%s\n\nContent:\n%s\n", opts.Instructions, content),
				Temperature: temperature,
			})
			if err != nil {
				return nil, fmt.Errorf("summarizing %s: %w", source, err)
			}
			ref, err := d.Store.Write(source, "summary", ".txt", []byte(summary), nil)
			if err != nil {
				return nil, err
			}
			return withArtifact(map[string]any{
				"source_url": source,
				"summary":    summary,
			}, "summary_file", ref), nil
		})
}

// summarizerContent picks the first complete input variant.
func summarizerContent(in SummarizerInput) (content, source string, err error) {
	switch {
	case in.Text != "" && in.SourceURL != "":
		return in.Text, in.SourceURL, nil
	case in.ExtractedText != "" && in.URL != "":
		return in.ExtractedText, in.URL, nil
	case in.ExtractedFile != "" && in.URL != "":
		text, err := artifact.ReadText(in.ExtractedFile)
		if err != nil {
			return "", "", err
		}
		return text, in.URL, nil
	}
	return "", "", errors.New("input must include ('text' + 'source_url'), ('extracted_text' + 'url') or ('extracted_file' + 'url')")
}
