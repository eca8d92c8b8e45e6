package llm

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// DefaultOllamaURL is the embeddings endpoint of a local Ollama server.
const DefaultOllamaURL = "http://localhost:11434/api/embeddings"

// OllamaEmbedder implements core.Embedder against the Ollama embeddings API.
type OllamaEmbedder struct {
	url    string
	client *http.Client
}

// NewOllamaEmbedder creates an embedder posting to url (DefaultOllamaURL if empty).
func NewOllamaEmbedder(url string, timeout time.Duration) *OllamaEmbedder {
	if url == "" {
		url = DefaultOllamaURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OllamaEmbedder{url: url, client: &http.Client{Timeout: timeout}}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed implements core.Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string, model string) ([]float64, error) {
	var resp ollamaResponse
	if err := postJSON(ctx, e.client, e.url, nil, ollamaRequest{Model: model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("embedding response was empty")
	}
	return resp.Embedding, nil
}
