// Embeddings renderer.
// Chunks the Markdown and embeds each chunk through a core.Embedder. Output
// is a human-readable .embeddings.txt file.

package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/chunk"
)

// EmbeddingsRenderer generates embeddings from Markdown chunks.
type EmbeddingsRenderer struct {
	Model     string
	ChunkSize int
	embedder  core.Embedder
}

// NewEmbeddingsRenderer creates an EmbeddingsRenderer backed by embedder.
func NewEmbeddingsRenderer(embedder core.Embedder, model string, chunkSize int) *EmbeddingsRenderer {
	return &EmbeddingsRenderer{
		Model:     model,
		ChunkSize: chunk.New(chunkSize).ChunkSize,
		embedder:  embedder,
	}
}

// Chunks returns how many chunks Render would embed for markdown.
func (r *EmbeddingsRenderer) Chunks(markdown string) int {
	return len(chunk.New(r.ChunkSize).Chunk(markdown))
}

// Render chunks the Markdown, embeds each chunk, and produces the
// human-readable .embeddings.txt output.
func (r *EmbeddingsRenderer) Render(ctx context.Context, markdown string, meta core.PageMetadata) ([]byte, error) {
	chunks := chunk.New(r.ChunkSize).Chunk(markdown)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no content to embed")
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "# source: %s\n", meta.URL)
	fmt.Fprintf(&buf, "# model: %s\n", r.Model)
	fmt.Fprintf(&buf, "# chunk_size: %d\n\n", r.ChunkSize)

	for i, chunkText := range chunks {
		embedding, err := r.embedder.Embed(ctx, chunkText, r.Model)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", i+1, err)
		}

		fmt.Fprintf(&buf, "--- chunk %d ---\n", i+1)
		fmt.Fprintf(&buf, "TEXT:\n%s\n\n", chunkText)

		vecStrs := make([]string, len(embedding))
		for j, v := range embedding {
			vecStrs[j] = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintf(&buf, "VECTOR:\n[%s]\n\n", strings.Join(vecStrs, ", "))
	}

	return []byte(buf.String()), nil
}

// Extension returns the file extension for embeddings output.
func (r *EmbeddingsRenderer) Extension() string {
	return ".embeddings.txt"
}
