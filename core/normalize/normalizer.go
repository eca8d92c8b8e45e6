// Package normalize implements the Normalizer interface.
// It converts cleaned HTML into Markdown, which serves as the
// canonical intermediate format for all downstream renderers.
package normalize

import (
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
)

// MarkdownNormalizer converts HTML to Markdown using html-to-markdown.
type MarkdownNormalizer struct{}

// New creates a MarkdownNormalizer.
func New() *MarkdownNormalizer {
	return &MarkdownNormalizer{}
}

// Normalize converts a cleaned HTML fragment into Markdown. Relative links
// and images are made absolute against baseURL when it is set.
func (n *MarkdownNormalizer) Normalize(html string, baseURL string) (string, error) {
	var (
		markdown string
		err      error
	)
	if baseURL != "" {
		markdown, err = htmltomarkdown.ConvertString(html, converter.WithDomain(baseURL))
	} else {
		markdown, err = htmltomarkdown.ConvertString(html)
	}
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return markdown, nil
}
