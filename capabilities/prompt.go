package capabilities

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/capability"
)

// PromptInput is the input of the prompt capability.
type PromptInput struct {
	URL          string `json:"url" jsonschema_description:"The original URL of the page"`
	FullText     string `json:"full_text" jsonschema_description:"The full text extracted from the URL"`
	CustomPrompt string `json:"custom_prompt" jsonschema_description:"The user-defined prompt to apply to the text"`
}

// PromptOptions configures the prompt capability from a manifest.
type PromptOptions struct {
	Model  string `json:"model"`
	System string `json:"system"`
}

// NewPrompt applies a caller-supplied prompt to a text. Model errors are
// returned as errors, not folded into the response.
func NewPrompt(d Deps, opts PromptOptions) capability.Capability {
	if opts.System == "" {
		opts.System = "You are a helpful assistant."
	}
	return capability.New("prompt_tool",
		"Applies a user-defined prompt to the given text using an LLM and returns the response",
		func(ctx context.Context, in PromptInput) (map[string]any, error) {
			if d.Completer == nil {
				return nil, errNoCompleter
			}
			prompt := strings.TrimSpace(in.CustomPrompt)
			answer, err := d.Completer.Complete(ctx, core.Prompt{
				Model:       firstNonEmpty(opts.Model, d.ChatModel),
				System:      opts.System,
				User:        fmt.Sprintf("%s\n\n---\n\n%s", prompt, strings.TrimSpace(in.FullText)),
				Temperature: 0.3,
			})
			if err != nil {
				return nil, fmt.Errorf("prompting for %s: %w", in.URL, err)
			}

			record := fmt.Sprintf("### Prompt:\n%s\n\n### Response:\n%s", prompt, answer)
			ref, err := d.Store.Write(in.URL, "prompt_output", ".txt", []byte(record), nil)
			if err != nil {
				return nil, err
			}
			return withArtifact(map[string]any{
				"url":          in.URL,
				"llm_response": answer,
			}, "output_file", ref), nil
		})
}
