package capabilities

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/capability"
	"github.com/gaurav-prasanna/pagegate/core/render"
)

// EmbedderInput is the input of the embedder capability.
type EmbedderInput struct {
	URL           string `json:"url" jsonschema_description:"Source URL of the text"`
	ExtractedFile string `json:"extracted_file" jsonschema_description:"Path to the Markdown or text file to embed"`
	Model         string `json:"model" jsonschema_description:"Embedding model; empty uses the configured one" jsonschema:"default="`
	ChunkSize     int    `json:"chunk_size" jsonschema_description:"Approximate chunk size in tokens" jsonschema:"default=512"`
}

// EmbedderOptions configures the embedder from a manifest.
type EmbedderOptions struct {
	Model string `json:"model"`
}

// NewEmbedder chunks a text artifact and embeds every chunk.
func NewEmbedder(d Deps, opts EmbedderOptions) capability.Capability {
	return capability.New("embedding_tool",
		"Chunks a text file and writes an embedding vector for every chunk",
		func(ctx context.Context, in EmbedderInput) (map[string]any, error) {
			text, err := artifact.ReadText(in.ExtractedFile)
			if err != nil {
				return nil, err
			}
			if d.Embedder == nil {
				return nil, errors.New("no embedding model configured")
			}
			model := firstNonEmpty(in.Model, opts.Model, d.EmbeddingModel)
			r := render.NewEmbeddingsRenderer(d.Embedder, model, in.ChunkSize)
			data, err := r.Render(ctx, text, core.PageMetadata{URL: in.URL})
			if err != nil {
				return nil, fmt.Errorf("embedding %s: %w", in.ExtractedFile, err)
			}
			chunks := r.Chunks(text)
			ref, err := d.Store.Write(in.URL, "embeddings", r.Extension(), data, map[string]any{
				"model":      model,
				"chunk_size": r.ChunkSize,
				"chunks":     chunks,
			})
			if err != nil {
				return nil, err
			}
			return withArtifact(map[string]any{
				"url":    in.URL,
				"chunks": chunks,
			}, "embeddings_file", ref), nil
		})
}
