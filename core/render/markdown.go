// Package render provides output renderers for the formatter capability and
// the convert command. Markdown is the canonical intermediate format; every
// renderer takes it plus page metadata and produces the bytes of one file.
package render

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/pagegate/core"
)

// MarkdownRenderer writes Markdown as-is, with an optional source header.
type MarkdownRenderer struct {
	// Header prepends a "Source:" line naming the page URL.
	Header bool
}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render returns the Markdown as bytes.
func (r *MarkdownRenderer) Render(_ context.Context, markdown string, meta core.PageMetadata) ([]byte, error) {
	if r.Header && meta.URL != "" {
		return []byte(fmt.Sprintf("Source: <%s>\n\n%s", meta.URL, markdown)), nil
	}
	return []byte(markdown), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// ForFormat returns the renderer registered for a named output format.
// Embeddings are not covered: they need an Embedder, see NewEmbeddingsRenderer.
func ForFormat(format string) (core.Renderer, error) {
	switch format {
	case "pdf":
		return NewPDFRenderer(), nil
	case "markdown", "md":
		return NewMarkdownRenderer(), nil
	case "json":
		return NewJSONRenderer(), nil
	}
	return nil, fmt.Errorf("unsupported format %q (want pdf, markdown or json)", format)
}
